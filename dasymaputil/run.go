/*
Copyright © 2026 the dasymap authors.
This file is part of dasymap.

dasymap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

dasymap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with dasymap.  If not, see <http://www.gnu.org/licenses/>.
*/

package dasymaputil

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dasymap/internal/stage"
	"github.com/spatialmodel/dasymap/weights"
)

// withStager runs f with a Stager whose files are removed when f
// returns.
func withStager(log logrus.FieldLogger, f func(*stage.Stager) error) error {
	s, err := stage.New(log)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Cleanup(); err != nil {
			log.WithError(err).Warn("removing staged files")
		}
	}()
	return f(s)
}

// fetchAll stages each of paths and returns the local file names.
func fetchAll(ctx context.Context, s *stage.Stager, paths ...string) ([]string, error) {
	o := make([]string, len(paths))
	for i, p := range paths {
		var err error
		o[i], err = s.Fetch(ctx, p)
		if err != nil {
			return nil, err
		}
	}
	return o, nil
}

// createFile writes the contents of file with write. The contents go to a
// temporary file in the same directory, which replaces file only after
// write succeeds, so a failed write leaves no partial output behind.
func createFile(file string, write func(io.Writer) error) error {
	f, err := ioutil.TempFile(filepath.Dir(file), "."+filepath.Base(file)+".")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", file, err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("creating output file: %w", err)
	}
	return nil
}

// output is a file written by a pipeline stage.
type output struct {
	file  string
	write func(io.Writer) error
}

// createFiles writes each of outputs in turn. If one of them fails, the
// ones already written are removed.
func createFiles(outputs ...output) error {
	for i, o := range outputs {
		if err := createFile(o.file, o.write); err != nil {
			for _, done := range outputs[:i] {
				os.Remove(done.file)
			}
			return err
		}
	}
	return nil
}

func formatNull(v sql.NullFloat64) string {
	if !v.Valid {
		return weights.NA
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

// writeCSV writes a header row followed by rows.
func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

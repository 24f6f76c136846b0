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

package weights

import (
	"database/sql"
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"
)

// NA is written in place of missing values.
const NA = "NA"

var tableHeader = []string{"class", "population", "percent_f1", "percent_f2", "percent"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNull(v sql.NullFloat64) string {
	if !v.Valid {
		return NA
	}
	return formatFloat(v.Float64)
}

func parseNull(s string) (sql.NullFloat64, error) {
	s = strings.TrimSpace(s)
	if s == NA || s == "" {
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

// WriteCSV writes t to w as CSV with a header row. Missing values are
// written as NA.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return fmt.Errorf("weights: writing CSV: %w", err)
	}
	for _, r := range t.Records {
		err := cw.Write([]string{
			strconv.Itoa(r.Class),
			formatFloat(r.Population),
			formatNull(r.PercentF1),
			formatNull(r.PercentF2),
			formatFloat(r.Percent),
		})
		if err != nil {
			return fmt.Errorf("weights: writing CSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("weights: writing CSV: %w", err)
	}
	return nil
}

// ReadCSV reads a table written by WriteCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(tableHeader)
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("weights: reading CSV: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("weights: reading CSV: missing header")
	}
	for i, h := range tableHeader {
		if !strings.EqualFold(strings.TrimSpace(recs[0][i]), h) {
			return nil, fmt.Errorf("weights: reading CSV: column %d is %q, want %q", i+1, recs[0][i], h)
		}
	}
	t := new(Table)
	for i, rec := range recs[1:] {
		line := i + 2
		r := new(Record)
		if r.Class, err = strconv.Atoi(strings.TrimSpace(rec[0])); err != nil {
			return nil, fmt.Errorf("weights: reading CSV line %d: %w", line, err)
		}
		if r.Population, err = strconv.ParseFloat(strings.TrimSpace(rec[1]), 64); err != nil {
			return nil, fmt.Errorf("weights: reading CSV line %d: %w", line, err)
		}
		if r.PercentF1, err = parseNull(rec[2]); err != nil {
			return nil, fmt.Errorf("weights: reading CSV line %d: %w", line, err)
		}
		if r.PercentF2, err = parseNull(rec[3]); err != nil {
			return nil, fmt.Errorf("weights: reading CSV line %d: %w", line, err)
		}
		if r.Percent, err = strconv.ParseFloat(strings.TrimSpace(rec[4]), 64); err != nil {
			return nil, fmt.Errorf("weights: reading CSV line %d: %w", line, err)
		}
		t.Records = append(t.Records, r)
	}
	return t, nil
}

// WriteXLSX writes t to w as an Excel workbook with a single sheet.
func (t *Table) WriteXLSX(w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("weights")
	if err != nil {
		return fmt.Errorf("weights: writing XLSX: %w", err)
	}
	row := sheet.AddRow()
	for _, h := range tableHeader {
		row.AddCell().SetString(h)
	}
	setNull := func(c *xlsx.Cell, v sql.NullFloat64) {
		if v.Valid {
			c.SetFloat(v.Float64)
		} else {
			c.SetString(NA)
		}
	}
	for _, r := range t.Records {
		row = sheet.AddRow()
		row.AddCell().SetInt(r.Class)
		row.AddCell().SetFloat(r.Population)
		setNull(row.AddCell(), r.PercentF1)
		setNull(row.AddCell(), r.PercentF2)
		row.AddCell().SetFloat(r.Percent)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("weights: writing XLSX: %w", err)
	}
	return nil
}

// Save writes t to w in gob format
// (format description at https://golang.org/pkg/encoding/gob/).
func (t *Table) Save(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(t); err != nil {
		return fmt.Errorf("weights: saving table: %w", err)
	}
	return nil
}

// Load reads a table written by Save.
func Load(r io.Reader) (*Table, error) {
	t := new(Table)
	if err := gob.NewDecoder(r).Decode(t); err != nil {
		return nil, fmt.Errorf("weights: loading table: %w", err)
	}
	return t, nil
}

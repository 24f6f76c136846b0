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

package stage

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func newStager(t *testing.T) *Stager {
	logger, _ := test.NewNullLogger()
	s, err := New(logger)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFetchLocal(t *testing.T) {
	s := newStager(t)
	defer s.Cleanup()
	f := filepath.Join(t.TempDir(), "legend.csv")
	if err := ioutil.WriteFile(f, []byte("a,b\n"), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := s.Fetch(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if p != f {
		t.Errorf("path = %s, want %s", p, f)
	}
	if _, err := s.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected an error for a missing local file")
	}
}

func TestFetchHTTP(t *testing.T) {
	files := map[string]string{
		"/data/units.shp": "shp",
		"/data/units.dbf": "dbf",
		"/data/units.shx": "shx",
	}
	var mu sync.Mutex
	failures := 2
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Path == "/data/units.dbf" && failures > 0 {
			failures--
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		b, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(b))
	}))
	defer ts.Close()

	s := newStager(t)
	p, err := s.Fetch(context.Background(), ts.URL+"/data/units.shp")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != "units.shp" {
		t.Errorf("path = %s", p)
	}
	for _, ext := range []string{".shp", ".dbf", ".shx"} {
		b, err := ioutil.ReadFile(p[:len(p)-4] + ext)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != ext[1:] {
			t.Errorf("%s = %q", ext, b)
		}
	}
	if _, err := os.Stat(p[:len(p)-4] + ".prj"); !os.IsNotExist(err) {
		t.Error("missing .prj should be skipped")
	}

	if _, err := s.Fetch(context.Background(), ts.URL+"/data/missing.csv"); err == nil {
		t.Error("expected an error for a missing remote file")
	}

	if err := s.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.Dir()); !os.IsNotExist(err) {
		t.Error("temporary directory was not removed")
	}
}

func TestFetchBlob(t *testing.T) {
	dir := t.TempDir()
	if err := ioutil.WriteFile(filepath.Join(dir, "weights.gob"), []byte("gob"), 0644); err != nil {
		t.Fatal(err)
	}
	s := newStager(t)
	defer s.Cleanup()
	p, err := s.Fetch(context.Background(), "file://"+filepath.ToSlash(dir)+"/weights.gob")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "gob" {
		t.Errorf("contents = %q", b)
	}
}

func TestIsBlob(t *testing.T) {
	for p, want := range map[string]bool{
		"gs://bucket/a.shp": true,
		"s3://bucket/a.shp": true,
		"file:///tmp/a.shp": true,
		"/tmp/a.shp":        false,
		"https://x/a.shp":   false,
	} {
		if IsBlob(p) != want {
			t.Errorf("IsBlob(%q) = %v", p, !want)
		}
	}
}

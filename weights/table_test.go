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
	"bytes"
	"database/sql"
	"strconv"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/tealeg/xlsx"
)

var testTable = &Table{Records: []*Record{
	{Class: 111, Population: 5.25, PercentF1: pct(60), PercentF2: pct(70), Percent: 65},
	{Class: 121, Population: 1, PercentF1: pct(9.5), Percent: 9.5},
	{Class: 141, Population: 3, PercentF2: pct(30), Percent: 30},
}}

func TestTableCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := testTable.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	const want = "class,population,percent_f1,percent_f2,percent\n" +
		"111,5.25,60,70,65\n" +
		"121,1,9.5,NA,9.5\n" +
		"141,3,NA,30,30\n"
	if buf.String() != want {
		t.Errorf("CSV = %q, want %q", buf.String(), want)
	}
	table, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(table, testTable); len(diff) != 0 {
		t.Error(diff)
	}

	if _, err := ReadCSV(strings.NewReader("a,b,c,d,e\n")); err == nil {
		t.Error("expected an error for a wrong header")
	}
	if _, err := ReadCSV(strings.NewReader(want + "x,1,2,3,4\n")); err == nil {
		t.Error("expected an error for a bad class")
	}
}

func TestTableXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := testTable.WriteXLSX(&buf); err != nil {
		t.Fatal(err)
	}
	f, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	sheet, ok := f.Sheet["weights"]
	if !ok {
		t.Fatal("missing weights sheet")
	}
	if len(sheet.Rows) != len(testTable.Records)+1 {
		t.Fatalf("got %d rows", len(sheet.Rows))
	}
	want := [][]string{
		{"class", "population", "percent_f1", "percent_f2", "percent"},
		{"111", "5.25", "60", "70", "65"},
		{"121", "1", "9.5", "NA", "9.5"},
		{"141", "3", "NA", "30", "30"},
	}
	for i, row := range sheet.Rows {
		for j, c := range row.Cells {
			if i == 0 || want[i][j] == NA {
				if c.Value != want[i][j] {
					t.Errorf("row %d column %d = %q, want %q", i, j, c.Value, want[i][j])
				}
				continue
			}
			v, err := c.Float()
			if err != nil {
				t.Fatal(err)
			}
			w, _ := strconv.ParseFloat(want[i][j], 64)
			if v != w {
				t.Errorf("row %d column %d = %g, want %g", i, j, v, w)
			}
		}
	}
}

func TestTableSaveLoad(t *testing.T) {
	var buf bytes.Buffer
	if err := testTable.Save(&buf); err != nil {
		t.Fatal(err)
	}
	table, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(table, testTable); len(diff) != 0 {
		t.Error(diff)
	}
	if table.Records[1].PercentF2 != (sql.NullFloat64{}) {
		t.Errorf("missing value was not preserved: %+v", table.Records[1].PercentF2)
	}
}

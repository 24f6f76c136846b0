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
	"bytes"
	"strings"
	"testing"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/dasymap/interp"
	"github.com/spatialmodel/dasymap/zonal"
)

// defaultConfig returns a configuration holding the default value of
// every option.
func defaultConfig() *viper.Viper {
	cfg := viper.New()
	for _, o := range options {
		cfg.SetDefault(o.name, o.defaultVal)
	}
	return cfg
}

func TestReadConfigDefaults(t *testing.T) {
	c, err := ReadConfig(defaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Qualifying) != 1 || c.Qualifying[0] != (zonal.ClassRange{Min: 111, Max: 142}) {
		t.Errorf("qualifying classes = %v", c.Qualifying)
	}
	if c.PixelRatio != 100 {
		t.Errorf("pixel ratio = %g", c.PixelRatio)
	}
	if c.Reconcile.Threshold != 1 || c.Reconcile.ZeroEpsilon != 0.1 {
		t.Errorf("reconcile config = %+v", c.Reconcile)
	}
	if c.AreaProj != interp.EqualAreaProj4 {
		t.Errorf("area projection = %s", c.AreaProj)
	}
	if c.TargetTruthColumn != "" || c.XLSX != "" {
		t.Errorf("unexpected optional settings: %+v", c)
	}
}

func TestReadConfigLists(t *testing.T) {
	cfg := defaultConfig()
	cfg.Set("Weights.Qualifying", "111-142, 211")
	cfg.Set("Weights.PixelRatio", "25")
	c, err := ReadConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Qualifying.Contains(211) || !c.Qualifying.Contains(121) || c.Qualifying.Contains(212) {
		t.Errorf("qualifying classes = %v", c.Qualifying)
	}
	if c.PixelRatio != 25 {
		t.Errorf("pixel ratio = %g", c.PixelRatio)
	}
}

func TestReadConfigInvalid(t *testing.T) {
	for _, test := range []struct {
		name, option string
		value        interface{}
	}{
		{name: "zero pixel ratio", option: "Weights.PixelRatio", value: 0.0},
		{name: "text pixel ratio", option: "Weights.PixelRatio", value: "many"},
		{name: "negative epsilon", option: "Weights.ZeroEpsilon", value: -1.0},
		{name: "bad class range", option: "Weights.Qualifying", value: []string{"142-111"}},
		{name: "missing population column", option: "Coarse.PopColumn", value: ""},
		{name: "missing class column", option: "LandCover.ClassColumn", value: ""},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Set(test.option, test.value)
			if _, err := ReadConfig(cfg); err == nil {
				t.Errorf("expected an error for %s=%v", test.option, test.value)
			}
		})
	}
}

func TestAreaFunc(t *testing.T) {
	c, err := ReadConfig(defaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, projected, err := c.areaFunc(nil); err != nil || projected {
		t.Errorf("without a spatial reference: projected=%v, err=%v", projected, err)
	}
	c.AreaProj = "+proj=nonsense"
	if _, _, err := c.areaFunc(wgs84SR(t)); err == nil {
		t.Error("expected an error for an invalid projection")
	}
}

func TestVersion(t *testing.T) {
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "dasymap v") {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestArgCount(t *testing.T) {
	Root.SetOutput(new(bytes.Buffer))
	defer Root.SetOutput(nil)
	for _, args := range [][]string{
		{"weights", "raster.nc", "coarse.shp"},
		{"refine", "a", "b", "c", "d", "e"},
		{"interpolate"},
		{"evaluate", "source.shp", "target.shp"},
	} {
		Root.SetArgs(args)
		if err := Root.Execute(); err == nil {
			t.Errorf("%v: expected a usage error", args)
		}
	}
}

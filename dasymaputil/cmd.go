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
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dasymap"
	"github.com/spatialmodel/dasymap/interp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log is the logger used by the commands.
var Log logrus.FieldLogger = logrus.StandardLogger()

// options are the configuration options available to dasymap.
var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Weights.Qualifying",
			usage: `
              Weights.Qualifying specifies the land-cover classes whose pixels
              receive population in method F1, as class codes or inclusive
              ranges such as "111-142".`,
			defaultVal: []string{"111-142"},
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags()},
		},
		{
			name: "Weights.PixelRatio",
			usage: `
              Weights.PixelRatio is the number of raster pixels per coarse cell,
              used to calculate the population per pixel in method F2.`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags()},
		},
		{
			name: "Weights.Threshold",
			usage: `
              Weights.Threshold is the smallest reconciled class percentage
              that is kept in the weight table.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags()},
		},
		{
			name: "Weights.ZeroEpsilon",
			usage: `
              Weights.ZeroEpsilon replaces F2 class percentages that are exactly
              zero before the estimates are averaged.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags()},
		},
		{
			name: "Raster.Variable",
			usage: `
              Raster.Variable is the name of the classified variable in the
              COARDS raster file. If it is empty the file must hold a single
              two-dimensional variable.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags()},
		},
		{
			name: "Legend.ValueColumn",
			usage: `
              Legend.ValueColumn is the legend column holding raw raster values.`,
			defaultVal: "Value",
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags()},
		},
		{
			name: "Legend.CodeColumn",
			usage: `
              Legend.CodeColumn is the legend column holding land-cover class codes.`,
			defaultVal: "CODE_18",
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags()},
		},
		{
			name: "Coarse.IDColumn",
			usage: `
              Coarse.IDColumn is the attribute holding the coarse cell identifiers.
              Cells are numbered in file order if it is empty.`,
			defaultVal: "GRD_ID",
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags(), refineCmd.Flags()},
		},
		{
			name: "Coarse.PopColumn",
			usage: `
              Coarse.PopColumn is the attribute holding the coarse cell population.`,
			defaultVal: "TOT_P",
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags(), refineCmd.Flags()},
		},
		{
			name: "LandCover.IDColumn",
			usage: `
              LandCover.IDColumn is the attribute holding the land-cover segment
              identifiers. Segments are numbered in file order if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{refineCmd.Flags()},
		},
		{
			name: "LandCover.ClassColumn",
			usage: `
              LandCover.ClassColumn is the attribute holding the land-cover class
              code of each segment.`,
			defaultVal: "CODE_18",
			flagsets:   []*pflag.FlagSet{refineCmd.Flags()},
		},
		{
			name: "Source.IDColumn",
			usage: `
              Source.IDColumn is the attribute holding the source polygon identifiers.`,
			defaultVal: "ID",
			flagsets:   []*pflag.FlagSet{interpolateCmd.Flags(), evaluateCmd.Flags()},
		},
		{
			name: "Source.ValueColumn",
			usage: `
              Source.ValueColumn is the attribute holding the value to interpolate.`,
			defaultVal: "population",
			flagsets:   []*pflag.FlagSet{interpolateCmd.Flags(), evaluateCmd.Flags()},
		},
		{
			name: "Target.IDColumn",
			usage: `
              Target.IDColumn is the attribute holding the target polygon identifiers.`,
			defaultVal: "ID",
			flagsets:   []*pflag.FlagSet{interpolateCmd.Flags(), evaluateCmd.Flags()},
		},
		{
			name: "Target.TruthColumn",
			usage: `
              Target.TruthColumn is the attribute holding the reference value of
              each target polygon. Error metrics are only calculated if it is set.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{interpolateCmd.Flags(), evaluateCmd.Flags()},
		},
		{
			name: "AreaProj",
			usage: `
              AreaProj is the equal-area projection, in Proj4 format, used to
              calculate polygon areas. If it is empty, areas are calculated in
              the native coordinates of the data, which are assumed to be meters.`,
			defaultVal: interp.EqualAreaProj4,
			flagsets:   []*pflag.FlagSet{interpolateCmd.Flags(), evaluateCmd.Flags()},
		},
		{
			name: "XLSX",
			usage: `
              XLSX is an optional path to additionally write the weight table to
              as a spreadsheet.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{weightsCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("DASYMAP")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(weightsCmd)
	Root.AddCommand(refineCmd)
	Root.AddCommand(interpolateCmd)
	Root.AddCommand(evaluateCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("dasymap: problem reading configuration file: %w", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "dasymap",
	Short: "Dasymetric population refinement.",
	Long: `dasymap redistributes population counts known on a coarse grid onto
land-cover classes, then apportions the refined population onto arbitrary
target polygons and compares the estimates to reference values.

The stages are run with the subcommands below, in the order
weights, refine, interpolate (or evaluate).

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'DASYMAP_var' where 'var' is the
name of the variable to be set with dots replaced by underscores
(for example DASYMAP_WEIGHTS_PIXELRATIO). Input files can be local paths, http(s) URLs,
or gs://, s3:// and file:// blob locations.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of dasymap.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("dasymap v%s\n", dasymap.Version)
	},
	DisableAutoGenTag: true,
}

var weightsCmd = &cobra.Command{
	Use:   "weights raster.nc coarse.shp legend.{csv,dbf} out_weights.csv out_weights.gob",
	Short: "Estimate land-cover class weights.",
	Long: `weights estimates the share of the population living on each land-cover
class, from a classified COARDS NetCDF raster, a coarse population grid
shapefile and a legend mapping raster values to class codes. The legend
is a CSV file or, if its name ends in .dbf, a dBASE table. The
weight table is written as CSV and as a gob file for the refine stage.`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadConfig(Cfg)
		if err != nil {
			return err
		}
		return Weights(context.Background(), Log, c, args[0], args[1], args[2], args[3], args[4])
	},
	DisableAutoGenTag: true,
}

var refineCmd = &cobra.Command{
	Use:   "refine landcover.shp coarse.shp weights.gob out_segments.shp",
	Short: "Distribute population onto land-cover segments.",
	Long: `refine distributes the population of each coarse grid cell onto the
land-cover segments it overlaps, in proportion to the class weight times
the overlapping area, and writes the segments with their population.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadConfig(Cfg)
		if err != nil {
			return err
		}
		return Refine(context.Background(), Log, c, args[0], args[1], args[2], args[3])
	},
	DisableAutoGenTag: true,
}

var interpolateCmd = &cobra.Command{
	Use:   "interpolate source.shp target.shp out.csv out.shp",
	Short: "Apportion source values onto target polygons.",
	Long: `interpolate apportions the values of the source polygons onto the target
polygons in proportion to the overlapping area, and writes the estimates,
target areas in km² and densities as CSV and shapefile. Missing values
are written as NA and -9999 respectively.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadConfig(Cfg)
		if err != nil {
			return err
		}
		return Interpolate(context.Background(), Log, c, args[0], args[1], args[2], args[3])
	},
	DisableAutoGenTag: true,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate source.shp target.shp out.csv",
	Short: "Compare interpolated values to reference values.",
	Long: `evaluate interpolates the source values onto the target polygons and
writes the difference between each estimate and the reference value in the
Target.TruthColumn attribute, in absolute terms and in percent.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadConfig(Cfg)
		if err != nil {
			return err
		}
		return Evaluate(context.Background(), Log, c, args[0], args[1], args[2])
	},
	DisableAutoGenTag: true,
}

/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package main

import (
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/tomazk/envcfg"
	"go.uber.org/zap/zapcore"

	"github.com/rayhong24/cmpt310-a4/classifier"
)

// Cfg contains the environment variable-based configuration settings.  Empty
// values leave the setting alone.
type Cfg struct {
	DBFile          string `envcfg:"NB_DB_FILE"`
	SmoothingK      string `envcfg:"NB_SMOOTHING_K"`
	AutomaticTuning string `envcfg:"NB_AUTOMATIC_TUNING"`
	SmoothingGrid   string `envcfg:"NB_SMOOTHING_GRID"`
	Parallel        string `envcfg:"NB_PARALLEL"`
	Listen          string `envcfg:"NB_LISTEN"`
	LogLevel        string `envcfg:"NB_LOG_LEVEL"`
}

type smoothingConfig struct {
	K               float64   `toml:"k"`
	AutomaticTuning bool      `toml:"automatic_tuning"`
	Grid            []float64 `toml:"grid"`
	Parallel        int       `toml:"parallel"`
}

type splitConfig struct {
	Validation float64 `toml:"validation"`
	Test       float64 `toml:"test"`
	Seed       int64   `toml:"seed"`
}

type reportConfig struct {
	CertainAbove   float64 `toml:"certain_above"`
	UncertainBelow float64 `toml:"uncertain_below"`
}

type serveConfig struct {
	Listen string `toml:"listen"`
}

// config is the merged experiment configuration.
type config struct {
	Database  string          `toml:"database"`
	LogLevel  string          `toml:"log_level"`
	Smoothing smoothingConfig `toml:"smoothing"`
	Split     splitConfig     `toml:"split"`
	Report    reportConfig    `toml:"report"`
	Serve     serveConfig     `toml:"serve"`
}

func defaultConfig() *config {
	return &config{
		Database: "nb-runs.db",
		Smoothing: smoothingConfig{
			K:        1,
			Parallel: 1,
		},
		Split: splitConfig{
			Validation: 0.2,
			Test:       0.2,
			Seed:       1,
		},
		Report: reportConfig{
			CertainAbove:   classifier.DefaultCertainAbove,
			UncertainBelow: classifier.DefaultUncertainBelow,
		},
		Serve: serveConfig{
			Listen: ":9090",
		},
	}
}

// Grid returns the smoothing grid to search.  An explicit grid wins over the
// k/automatic tuning pair.
func (c *config) Grid() []float64 {
	if len(c.Smoothing.Grid) > 0 {
		return append([]float64(nil), c.Smoothing.Grid...)
	}
	return classifier.GridFor(c.Smoothing.K, c.Smoothing.AutomaticTuning)
}

func parseGrid(s string) ([]float64, error) {
	var grid []float64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		k, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad smoothing grid entry %q", f)
		}
		grid = append(grid, k)
	}
	return grid, nil
}

// loadFile merges a TOML experiment file.  Unknown keys are an error.
func (c *config) loadFile(fs afero.Fs, path string) error {
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	md, err := toml.Decode(string(buf), c)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("%s: unknown setting %s", path, undecoded[0])
	}
	return nil
}

// applyEnv merges the environment.
func (c *config) applyEnv(env Cfg) error {
	var err error

	if env.DBFile != "" {
		c.Database = env.DBFile
	}
	if env.SmoothingK != "" {
		if c.Smoothing.K, err = strconv.ParseFloat(env.SmoothingK, 64); err != nil {
			return errors.Wrap(err, "NB_SMOOTHING_K")
		}
	}
	if env.AutomaticTuning != "" {
		if c.Smoothing.AutomaticTuning, err = strconv.ParseBool(env.AutomaticTuning); err != nil {
			return errors.Wrap(err, "NB_AUTOMATIC_TUNING")
		}
	}
	if env.SmoothingGrid != "" {
		if c.Smoothing.Grid, err = parseGrid(env.SmoothingGrid); err != nil {
			return errors.Wrap(err, "NB_SMOOTHING_GRID")
		}
	}
	if env.Parallel != "" {
		if c.Smoothing.Parallel, err = strconv.Atoi(env.Parallel); err != nil {
			return errors.Wrap(err, "NB_PARALLEL")
		}
	}
	if env.Listen != "" {
		c.Serve.Listen = env.Listen
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	return nil
}

// addConfigFlags registers the flags which override configuration settings.
func addConfigFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "TOML experiment file")
	fs.String("db", "", "run database path")
	fs.Float64("k", 1, "smoothing parameter")
	fs.Bool("auto", false, "search the default smoothing grid")
	fs.StringSlice("grid", nil, "explicit smoothing grid, overriding --k and --auto")
	fs.Int("parallel", 1, "smoothing candidates evaluated at once")
	fs.Float64("validation", 0.2, "validation fraction when splitting")
	fs.Float64("test", 0.2, "test fraction when splitting")
	fs.Int64("seed", 1, "split shuffle seed")
	fs.String("listen", "", "serve listen address")
}

// applyFlags merges flags the user actually set.
func (c *config) applyFlags(fs *pflag.FlagSet) error {
	var err error

	if fs.Changed("db") {
		c.Database, _ = fs.GetString("db")
	}
	if fs.Changed("k") {
		c.Smoothing.K, _ = fs.GetFloat64("k")
	}
	if fs.Changed("auto") {
		c.Smoothing.AutomaticTuning, _ = fs.GetBool("auto")
	}
	if fs.Changed("grid") {
		entries, _ := fs.GetStringSlice("grid")
		if c.Smoothing.Grid, err = parseGrid(strings.Join(entries, ",")); err != nil {
			return err
		}
	}
	if fs.Changed("parallel") {
		c.Smoothing.Parallel, _ = fs.GetInt("parallel")
	}
	if fs.Changed("validation") {
		c.Split.Validation, _ = fs.GetFloat64("validation")
	}
	if fs.Changed("test") {
		c.Split.Test, _ = fs.GetFloat64("test")
	}
	if fs.Changed("seed") {
		c.Split.Seed, _ = fs.GetInt64("seed")
	}
	if fs.Changed("listen") {
		c.Serve.Listen, _ = fs.GetString("listen")
	}
	return nil
}

// level returns the configured log level, if any.
func (c *config) level() (zapcore.Level, bool, error) {
	var l zapcore.Level
	if c.LogLevel == "" {
		return l, false, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, false, errors.Wrap(err, "log_level")
	}
	return l, true, nil
}

func (c *config) validate() error {
	for _, k := range c.Grid() {
		if !(k >= 0) {
			return errors.Errorf("smoothing parameter %v is not a non-negative number", k)
		}
	}
	v, t := c.Split.Validation, c.Split.Test
	if !(v >= 0) || !(t >= 0) || !(v+t < 1) {
		return errors.Errorf("bad split fractions: validation %v test %v", v, t)
	}
	if _, _, err := c.level(); err != nil {
		return err
	}
	if c.Report.UncertainBelow > c.Report.CertainAbove {
		return errors.Errorf("uncertain_below %v exceeds certain_above %v",
			c.Report.UncertainBelow, c.Report.CertainAbove)
	}
	return nil
}

// loadConfig builds the configuration: defaults, then the --config file, then
// the environment, then flags.
func loadConfig(fs afero.Fs, flags *pflag.FlagSet) (*config, error) {
	c := defaultConfig()

	if path, _ := flags.GetString("config"); path != "" {
		if err := c.loadFile(fs, path); err != nil {
			return nil, err
		}
	}

	var env Cfg
	if err := envcfg.Unmarshal(&env); err != nil {
		return nil, errors.Wrap(err, "environment")
	}
	if err := c.applyEnv(env); err != nil {
		return nil, err
	}

	if err := c.applyFlags(flags); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

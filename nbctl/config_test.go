/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package main

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/rayhong24/cmpt310-a4/classifier"
)

const mockConfig = `
database = "experiment.db"

[smoothing]
k = 0.5
automatic_tuning = true
parallel = 4

[split]
validation = 0.25
test = 0.1
seed = 42

[report]
certain_above = 0.8
uncertain_below = 0.3
`

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addConfigFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestConfigDefaults(t *testing.T) {
	assert := require.New(t)

	c, err := loadConfig(afero.NewMemMapFs(), testFlags(t))
	assert.NoError(err)
	assert.Equal(defaultConfig(), c)
	assert.Equal("nb-runs.db", c.Database)
	assert.Equal([]float64{1}, c.Grid())
	assert.Equal(":9090", c.Serve.Listen)
}

func TestConfigFile(t *testing.T) {
	assert := require.New(t)

	fs := afero.NewMemMapFs()
	assert.NoError(afero.WriteFile(fs, "/exp.toml", []byte(mockConfig), 0644))

	c, err := loadConfig(fs, testFlags(t, "--config", "/exp.toml"))
	assert.NoError(err)
	assert.Equal("experiment.db", c.Database)
	assert.Equal(classifier.DefaultGrid, c.Grid())
	assert.Equal(4, c.Smoothing.Parallel)
	assert.Equal(splitConfig{Validation: 0.25, Test: 0.1, Seed: 42}, c.Split)
	assert.Equal(0.8, c.Report.CertainAbove)

	assert.NoError(afero.WriteFile(fs, "/bad.toml", []byte("[smoothing]\nkk = 3\n"), 0644))
	_, err = loadConfig(fs, testFlags(t, "--config", "/bad.toml"))
	assert.Error(err)
	assert.Contains(err.Error(), "smoothing.kk")

	_, err = loadConfig(fs, testFlags(t, "--config", "/missing.toml"))
	assert.Error(err)

	assert.NoError(afero.WriteFile(fs, "/inverted.toml",
		[]byte("[report]\ncertain_above = 0.2\nuncertain_below = 0.5\n"), 0644))
	_, err = loadConfig(fs, testFlags(t, "--config", "/inverted.toml"))
	assert.Error(err)
}

func TestConfigPrecedence(t *testing.T) {
	assert := require.New(t)

	fs := afero.NewMemMapFs()
	assert.NoError(afero.WriteFile(fs, "/exp.toml", []byte(mockConfig), 0644))

	t.Setenv("NB_DB_FILE", "env.db")
	t.Setenv("NB_SMOOTHING_GRID", "0.1, 2")
	t.Setenv("NB_PARALLEL", "2")
	t.Setenv("NB_LISTEN", ":8000")

	c, err := loadConfig(fs, testFlags(t, "--config", "/exp.toml"))
	assert.NoError(err)
	assert.Equal("env.db", c.Database)
	assert.Equal([]float64{0.1, 2}, c.Grid())
	assert.Equal(2, c.Smoothing.Parallel)
	assert.Equal(":8000", c.Serve.Listen)
	// Untouched by the environment.
	assert.Equal(int64(42), c.Split.Seed)

	c, err = loadConfig(fs, testFlags(t, "--config", "/exp.toml",
		"--db", "flag.db", "--grid", "5,10", "--parallel", "3", "--seed", "7"))
	assert.NoError(err)
	assert.Equal("flag.db", c.Database)
	assert.Equal([]float64{5, 10}, c.Grid())
	assert.Equal(3, c.Smoothing.Parallel)
	assert.Equal(int64(7), c.Split.Seed)
}

func TestConfigEnvTuning(t *testing.T) {
	assert := require.New(t)

	t.Setenv("NB_SMOOTHING_K", "2.5")
	c, err := loadConfig(afero.NewMemMapFs(), testFlags(t))
	assert.NoError(err)
	assert.Equal([]float64{2.5}, c.Grid())

	t.Setenv("NB_AUTOMATIC_TUNING", "true")
	c, err = loadConfig(afero.NewMemMapFs(), testFlags(t))
	assert.NoError(err)
	assert.Equal(classifier.DefaultGrid, c.Grid())

	c, err = loadConfig(afero.NewMemMapFs(), testFlags(t, "--auto=false", "--k", "3"))
	assert.NoError(err)
	assert.Equal([]float64{3}, c.Grid())

	t.Setenv("NB_SMOOTHING_K", "lots")
	_, err = loadConfig(afero.NewMemMapFs(), testFlags(t))
	assert.Error(err)
}

func TestParseGrid(t *testing.T) {
	assert := require.New(t)

	g, err := parseGrid("0.001, 0.01,1")
	assert.NoError(err)
	assert.Equal([]float64{0.001, 0.01, 1}, g)

	_, err = parseGrid("1,x")
	assert.Error(err)

	c := defaultConfig()
	c.Smoothing.Grid = []float64{1, -1}
	assert.Error(c.validate())
}

func TestConfigBadSplit(t *testing.T) {
	assert := require.New(t)

	_, err := loadConfig(afero.NewMemMapFs(), testFlags(t, "--validation", "NaN"))
	assert.Error(err)
	assert.Contains(err.Error(), "bad split fractions")

	_, err = loadConfig(afero.NewMemMapFs(), testFlags(t, "--validation", "0.5", "--test", "0.5"))
	assert.Error(err)

	fs := afero.NewMemMapFs()
	assert.NoError(afero.WriteFile(fs, "/nan.toml", []byte("[split]\ntest = nan\n"), 0644))
	_, err = loadConfig(fs, testFlags(t, "--config", "/nan.toml"))
	assert.Error(err)

	_, err = loadConfig(afero.NewMemMapFs(), testFlags(t, "--k", "NaN"))
	assert.Error(err)
}

func TestConfigLogLevel(t *testing.T) {
	assert := require.New(t)

	c, err := loadConfig(afero.NewMemMapFs(), testFlags(t))
	assert.NoError(err)
	_, set, err := c.level()
	assert.NoError(err)
	assert.False(set)

	fs := afero.NewMemMapFs()
	assert.NoError(afero.WriteFile(fs, "/debug.toml", []byte("log_level = \"debug\"\n"), 0644))
	c, err = loadConfig(fs, testFlags(t, "--config", "/debug.toml"))
	assert.NoError(err)
	l, set, err := c.level()
	assert.NoError(err)
	assert.True(set)
	assert.Equal(zapcore.DebugLevel, l)

	t.Setenv("NB_LOG_LEVEL", "loud")
	_, err = loadConfig(fs, testFlags(t, "--config", "/debug.toml"))
	assert.Error(err)
	assert.Contains(err.Error(), "log_level")
}

/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package zaperr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	bufSinks map[string]*bufferSink

	errTestKind = errors.New("test kind")
)

// bufferSink is an in-memory sink for zap; zap has one, but only in an
// internal package.
type bufferSink struct {
	bytes.Buffer
}

// Sync implements zapcore.WriteSyncer, part of zap.Sink
func (b *bufferSink) Sync() error {
	return nil
}

// Close implements zap.Sink
func (b *bufferSink) Close() error {
	return nil
}

func logTo(t *testing.T, sink string) *zap.SugaredLogger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"buffer://" + sink}

	log, err := config.Build()
	require.NoError(t, err)
	return log.Sugar()
}

func TestBasic(t *testing.T) {
	assert := require.New(t)
	slog := logTo(t, "basic")

	ze := Errorw("This is my message", "payload", "this is my payload")
	slog.Infow("Outer message", "error", ze)

	m := make(map[string]interface{})
	err := json.Unmarshal(bufSinks["basic"].Bytes(), &m)
	assert.NoError(err)

	assert.Equal("Outer message", m["msg"])
	valObj, ok := m["error"].(map[string]interface{})
	assert.True(ok)
	assert.Equal("This is my message", valObj["msg"])
	assert.Equal("this is my payload", valObj["payload"])
	_, ok = valObj["kind"]
	assert.False(ok)
}

func TestKind(t *testing.T) {
	assert := require.New(t)
	slog := logTo(t, "kind")

	ze := Kindw(errTestKind, "feature missing", "feature", "f1", "label", "A")
	assert.Equal("test kind: feature missing", ze.Error())
	assert.Equal("feature missing", ze.Msg())
	assert.Equal(errTestKind, ze.Kind())
	assert.Len(ze.Fields(), 4)

	assert.True(errors.Is(ze, errTestKind))
	wrapped := errors.Wrap(ze, "classify")
	assert.True(errors.Is(wrapped, errTestKind))
	assert.False(errors.Is(Errorw("plain"), errTestKind))

	slog.Infow("failed", "error", ze)
	m := make(map[string]interface{})
	err := json.Unmarshal(bufSinks["kind"].Bytes(), &m)
	assert.NoError(err)

	valObj, ok := m["error"].(map[string]interface{})
	assert.True(ok)
	assert.Equal("test kind", valObj["kind"])
	assert.Equal("f1", valObj["feature"])
	assert.Equal("A", valObj["label"])
}

func TestNested(t *testing.T) {
	assert := require.New(t)
	slog := logTo(t, "nested")

	zeInner := Errorw("Inner message", "inner key", "inner value")
	ze := Errorw("Outer message", "error", zeInner)
	slog.Infow("Top-level message", "error", ze)

	m := make(map[string]interface{})
	err := json.Unmarshal(bufSinks["nested"].Bytes(), &m)
	assert.NoError(err)

	valObj, ok := m["error"].(map[string]interface{})
	assert.True(ok)
	valObj, ok = valObj["error"].(map[string]interface{})
	assert.True(ok)
	assert.Equal("inner value", valObj["inner key"])
}

func TestInvalidPairs(t *testing.T) {
	assert := require.New(t)
	slog := logTo(t, "invalid")

	ze := Errorw("Bad pairs", 17, "seventeen", "dangling")
	slog.Infow("Top-level message", "error", ze)

	m := make(map[string]interface{})
	err := json.Unmarshal(bufSinks["invalid"].Bytes(), &m)
	assert.NoError(err)

	valObj, ok := m["error"].(map[string]interface{})
	assert.True(ok)
	assert.Equal("dangling", valObj["ignored"])
	invalid, ok := valObj["invalid"].([]interface{})
	assert.True(ok)
	assert.Len(invalid, 1)
	pair, ok := invalid[0].(map[string]interface{})
	assert.True(ok)
	assert.Equal(float64(0), pair["position"])
	assert.Equal("seventeen", pair["value"])
}

func TestMain(m *testing.M) {
	bufSinks = make(map[string]*bufferSink)
	_ = zap.RegisterSink("buffer", func(u *url.URL) (zap.Sink, error) {
		name := u.Hostname()
		if _, ok := bufSinks[name]; ok {
			return nil, fmt.Errorf("Already created a buffer sink named %q", name)
		}
		bufSinks[name] = &bufferSink{}
		return bufSinks[name], nil
	})

	os.Exit(m.Run())
}

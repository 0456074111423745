/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package daemonutils

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/ssh/terminal"
)

type logType string

const (
	logTypeAuto logType = ""
	logTypeDev  logType = "dev"
	logTypeProd logType = "prod"
)

var (
	globalLog        *zap.Logger
	globalSugaredLog *zap.SugaredLogger
	globalLevel      zap.AtomicLevel
	levelFlag        = levelValue(zapcore.InfoLevel)
	logTypeFlag      logType
)

func (l *logType) String() string {
	if *l == logTypeDev {
		return "development"
	} else if *l == logTypeProd {
		return "production"
	} else {
		return "auto"
	}
}

func (l *logType) Set(s string) error {
	ss := strings.ToLower(s)
	if len(ss) >= 3 {
		ss = ss[0:3]
	}
	if ss == "dev" {
		*l = logTypeDev
		return nil
	} else if ss == "pro" {
		*l = logTypeProd
		return nil
	} else if ss == "aut" {
		*l = logTypeAuto
		return nil
	}
	return fmt.Errorf("Unknown Log Type '%s'.  Try [dev|prod|auto]", s)
}

// Type implements pflag.Value
func (l *logType) Type() string {
	return "logtype"
}

// levelValue adapts zapcore.Level to pflag.Value
type levelValue zapcore.Level

func (lv *levelValue) String() string {
	return zapcore.Level(*lv).String()
}

func (lv *levelValue) Set(s string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return err
	}
	*lv = levelValue(l)
	return nil
}

func (lv *levelValue) Type() string {
	return "level"
}

// AddLogFlags registers --log-level and --log-type on fs.
func AddLogFlags(fs *pflag.FlagSet) {
	fs.Var(&levelFlag, "log-level", "Log level [debug,info,warn,error,panic,fatal]")
	fs.Var(&logTypeFlag, "log-type", "Logging style [dev|prod|auto]")
}

// SetupLogs creates a pair of zap loggers-- one structured and one
// "sugared".
func SetupLogs() (*zap.Logger, *zap.SugaredLogger) {
	var log *zap.Logger
	var err error

	if globalLog != nil {
		return GetLogs()
	}

	lt := logTypeFlag
	if lt == logTypeAuto {
		if terminal.IsTerminal(int(os.Stderr.Fd())) {
			lt = logTypeDev
		} else {
			lt = logTypeProd
		}
	}

	globalLevel = zap.NewAtomicLevelAt(zapcore.Level(levelFlag))
	if lt == logTypeDev {
		config := zap.NewDevelopmentConfig()
		config.Level = globalLevel
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		log, err = config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		config := zap.NewProductionConfig()
		config.Level = globalLevel
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		log, err = config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if err != nil {
		panic("can't zap")
	}
	log.Debug(fmt.Sprintf("Zap %s Logging at %s", lt.String(), globalLevel))
	globalLog = log
	globalSugaredLog = globalLog.Sugar()
	return GetLogs()
}

// ResetupLogs is intended for use after the command line has been parsed,
// since the flags passed may necessitate rebuild of the loggers.
func ResetupLogs() (*zap.Logger, *zap.SugaredLogger) {
	globalLog = nil
	globalSugaredLog = nil
	return SetupLogs()
}

// GetLogs returns the current global pair of loggers.
func GetLogs() (*zap.Logger, *zap.SugaredLogger) {
	return globalLog, globalSugaredLog
}

// SetLevel adjusts the level of the loggers built by SetupLogs.
func SetLevel(l zapcore.Level) {
	globalLevel.SetLevel(l)
}

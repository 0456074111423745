/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package zaperr implements structured errors in the style of zap's sugared
// key/value logging.  Each error may carry a kind, a sentinel error which
// errors.Is() matches, so callers can branch on the class of failure while
// logs still receive the full context.
package zaperr

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapError is the structured error type.  It is exported for lint reasons.
type ZapError struct {
	kind error
	msg  string
	kv   []interface{}
}

func (ze ZapError) Error() string {
	if ze.kind == nil {
		return ze.msg
	}
	return ze.kind.Error() + ": " + ze.msg
}

// Unwrap returns the kind of the error, if any.
func (ze ZapError) Unwrap() error {
	return ze.kind
}

// Kind returns the sentinel error used to classify this error, or nil.
func (ze ZapError) Kind() error {
	return ze.kind
}

// Msg returns the message without the kind prefix.
func (ze ZapError) Msg() string {
	return ze.msg
}

// Fields returns the key/value context attached to the error.
func (ze ZapError) Fields() []interface{} {
	return ze.kv
}

// MarshalLogObject follows zap.SugaredLogger.sweetenFields(): strongly typed
// fields are added as-is, the rest is consumed as key/value pairs.  Pairs with
// a non-string key are collected under "invalid".
func (ze ZapError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	var invalid invalidPairs

	enc.AddString("msg", ze.msg)
	if ze.kind != nil {
		enc.AddString("kind", ze.kind.Error())
	}
	for i := 0; i < len(ze.kv); {
		if field, ok := ze.kv[i].(zapcore.Field); ok {
			field.AddTo(enc)
			i++
			continue
		}

		// Dangling key
		if i == len(ze.kv)-1 {
			zap.Any("ignored", ze.kv[i]).AddTo(enc)
			break
		}

		key, val := ze.kv[i], ze.kv[i+1]
		if keyStr, ok := key.(string); !ok {
			if cap(invalid) == 0 {
				invalid = make(invalidPairs, 0, len(ze.kv)/2)
			}
			invalid = append(invalid, invalidPair{i, key, val})
		} else {
			zap.Any(keyStr, val).AddTo(enc)
		}

		i += 2
	}

	if len(invalid) > 0 {
		zap.Array("invalid", invalid).AddTo(enc)
	}

	return nil
}

type invalidPair struct {
	position   int
	key, value interface{}
}

func (p invalidPair) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("position", int64(p.position))
	zap.Any("key", p.key).AddTo(enc)
	zap.Any("value", p.value).AddTo(enc)
	return nil
}

type invalidPairs []invalidPair

func (ps invalidPairs) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for i := range ps {
		enc.AppendObject(ps[i])
	}
	return nil
}

// Errorw returns an error which contains a message and an array of key/value
// pairs, which can be logged in structured (and even nested) fashion by zap.
func Errorw(msg string, args ...interface{}) ZapError {
	return ZapError{
		msg: msg,
		kv:  args,
	}
}

// Kindw is like Errorw, but tags the error with kind so that
// errors.Is(err, kind) reports true.
func Kindw(kind error, msg string, args ...interface{}) ZapError {
	return ZapError{
		kind: kind,
		msg:  msg,
		kv:   args,
	}
}

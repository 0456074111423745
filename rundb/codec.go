/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package rundb

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rayhong24/cmpt310-a4/classifier"
)

// Datums are stored as msgpack maps of feature name to 0/1, keys sorted so
// that equal datums encode identically.
func encodeDatum(d classifier.Datum) ([]byte, error) {
	m := make(map[string]uint8, len(d))
	for f, v := range d {
		if v != 0 && v != 1 {
			return nil, errors.Errorf("feature %s: non-binary value %d", f, v)
		}
		m[string(f)] = uint8(v)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(m); err != nil {
		return nil, errors.Wrap(err, "encoding datum")
	}
	return buf.Bytes(), nil
}

func decodeDatum(b []byte) (classifier.Datum, error) {
	var m map[string]uint8
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "decoding datum")
	}
	d := make(classifier.Datum, len(m))
	for f, v := range m {
		d[classifier.Feature(f)] = int(v)
	}
	return d, nil
}

/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package classifier

import (
	"github.com/pkg/errors"
)

// Error kinds.  Errors returned by this package are zaperr.ZapErrors tagged
// with one of these; test with errors.Is.
var (
	// ErrInvalidInput reports malformed or mismatched input sequences.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDivisionByZero reports a zero normalization denominator, which
	// happens when k == 0 and a (feature, label) pair was never observed.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrLookup reports use of an untrained model, or of a feature or
	// label the model does not know.
	ErrLookup = errors.New("lookup error")
)

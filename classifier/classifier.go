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

// Classifier labels datums with an installed Model.
type Classifier struct {
	model *Model
	// Log-joint scores of the last Classify call, kept for diagnostics.
	posteriors []LabelDist
}

// NewClassifier creates a Classifier which classifies with m.
func NewClassifier(m *Model) *Classifier {
	return &Classifier{model: m}
}

// Model returns the installed model.
func (c *Classifier) Model() *Model {
	return c.model
}

// Classify predicts a label for each datum.  The log-joint scores computed
// along the way are available from Posteriors() afterwards.
func (c *Classifier) Classify(data []Datum) ([]Label, error) {
	guesses := make([]Label, 0, len(data))
	posteriors := make([]LabelDist, 0, len(data))

	for i, datum := range data {
		guess, logJoint, err := c.model.Predict(datum)
		if err != nil {
			return nil, errors.Wrapf(err, "classify datum %d", i)
		}
		guesses = append(guesses, guess)
		posteriors = append(posteriors, logJoint)
	}

	c.posteriors = posteriors
	return guesses, nil
}

// Posteriors returns the log-joint mappings from the last Classify call, in
// datum order.
func (c *Classifier) Posteriors() []LabelDist {
	return c.posteriors
}

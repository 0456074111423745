/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/rayhong24/cmpt310-a4/classifier"
)

// Split names one of the three partitions of a dataset.
type Split string

// The dataset partitions, as stored.
const (
	Training   Split = "training"
	Validation Split = "validation"
	Test       Split = "test"
)

// AllSplits lists the partitions in storage order.
var AllSplits = []Split{Training, Validation, Test}

// Splits holds the three partitions of a labelled dataset.
type Splits struct {
	Training   *Samples
	Validation *Samples
	Test       *Samples
}

// Get returns the partition named by which.
func (s *Splits) Get(which Split) *Samples {
	switch which {
	case Training:
		return s.Training
	case Validation:
		return s.Validation
	case Test:
		return s.Test
	}
	return nil
}

// TrainingSet arranges the training and validation partitions for the
// estimator.
func (s *Splits) TrainingSet() classifier.TrainingSet {
	return classifier.TrainingSet{
		TrainingData:     s.Training.Data,
		TrainingLabels:   s.Training.Labels,
		ValidationData:   s.Validation.Data,
		ValidationLabels: s.Validation.Labels,
	}
}

// LegalLabels returns the sorted labels occurring in any partition.
func (s *Splits) LegalLabels() []classifier.Label {
	return LegalLabels(s.Training, s.Validation, s.Test)
}

func pick(s *Samples, idx []int) *Samples {
	p := &Samples{
		Data:   make([]classifier.Datum, len(idx)),
		Labels: make([]classifier.Label, len(idx)),
	}
	for i, j := range idx {
		p.Data[i] = s.Data[j]
		p.Labels[i] = s.Labels[j]
	}
	return p
}

// SplitSamples shuffles s with a PRNG seeded by seed, then takes the test
// fraction, then the validation fraction, and leaves the rest for training.
// The same seed always yields the same partitions.
func SplitSamples(s *Samples, validation, test float64, seed int64) (*Splits, error) {
	if !s.Labelled() {
		return nil, errors.New("cannot split an unlabelled dataset")
	}
	// Written to also reject NaN.
	if !(validation >= 0) || !(test >= 0) || !(validation+test < 1) {
		return nil, errors.Errorf("bad split fractions: validation %v test %v",
			validation, test)
	}

	n := s.Len()
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	ntest := int(math.Floor(test * float64(n)))
	nval := int(math.Floor(validation * float64(n)))
	if n-ntest-nval == 0 {
		return nil, errors.Errorf("%d samples leave nothing to train on", n)
	}

	return &Splits{
		Test:       pick(s, perm[:ntest]),
		Validation: pick(s, perm[ntest:ntest+nval]),
		Training:   pick(s, perm[ntest+nval:]),
	}, nil
}

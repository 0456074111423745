/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package classifier

import (
	"sort"
)

// Label is a class value the classifier predicts.
type Label string

// Feature names one binary feature.
type Feature string

// A Datum maps each observed feature to 0 (absent) or 1 (present).
type Datum map[Feature]int

// Features returns the datum's feature keys in sorted order.  Scores are
// accumulated in this order so that they are reproducible bit for bit.
func (d Datum) Features() []Feature {
	fs := make([]Feature, 0, len(d))
	for f := range d {
		fs = append(fs, f)
	}
	sortFeatures(fs)
	return fs
}

// Active returns the sorted features whose value is non-zero.
func (d Datum) Active() []Feature {
	fs := make([]Feature, 0, len(d))
	for f, v := range d {
		if v != 0 {
			fs = append(fs, f)
		}
	}
	sortFeatures(fs)
	return fs
}

// FeatureLabel is the key of the conditional tables.
type FeatureLabel struct {
	Feature Feature
	Label   Label
}

// LabelDist maps labels to a weight: a count, a probability or a
// log-probability depending on context.
type LabelDist map[Label]float64

// Copy returns an independent copy of d.
func (d LabelDist) Copy() LabelDist {
	c := make(LabelDist, len(d))
	for l, v := range d {
		c[l] = v
	}
	return c
}

// Total sums the values of d over labels.
func (d LabelDist) Total(labels []Label) float64 {
	var total float64
	for _, l := range labels {
		total += d[l]
	}
	return total
}

// Normalize scales d so that its values over labels sum to 1.  Every label
// is present afterwards.  A zero total leaves the values unchanged.
func (d LabelDist) Normalize(labels []Label) {
	total := d.Total(labels)
	for _, l := range labels {
		v := d[l]
		if total != 0 {
			v /= total
		}
		d[l] = v
	}
}

// CondTable maps (feature, label) pairs to a count or a probability.
type CondTable map[FeatureLabel]float64

// Copy returns an independent copy of t.
func (t CondTable) Copy() CondTable {
	c := make(CondTable, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// Vocabulary returns the sorted union of the feature keys of data.
func Vocabulary(data []Datum) []Feature {
	seen := make(map[Feature]bool)
	for _, d := range data {
		for f := range d {
			seen[f] = true
		}
	}
	fs := make([]Feature, 0, len(seen))
	for f := range seen {
		fs = append(fs, f)
	}
	sortFeatures(fs)
	return fs
}

func sortFeatures(fs []Feature) {
	sort.Slice(fs, func(i, j int) bool { return fs[i] < fs[j] })
}

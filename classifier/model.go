/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package classifier

import (
	"math"

	"github.com/rayhong24/cmpt310-a4/common/zaperr"
)

// Model is a trained Bernoulli Naive Bayes parameterization.  A Model is
// never modified once the estimator has produced it.
type Model struct {
	// Legal labels, in the order used to break ties.
	Labels []Label
	// Training vocabulary, sorted.
	Features []Feature
	// P(label), summing to 1 over Labels.
	Prior LabelDist
	// P(feature = 1 | label), smoothed by K.
	CondProb CondTable
	// Smoothing parameter that produced this model.
	K float64
}

// LogJoint computes log P(label) + sum log P(feature | label) for each legal
// label.  The result omits the evidence term, which is the same for every
// label.
func (m *Model) LogJoint(d Datum) (LabelDist, error) {
	if m == nil || m.Prior == nil || m.CondProb == nil {
		return nil, zaperr.Kindw(ErrLookup, "model has not been trained")
	}

	features := d.Features()
	logJoint := make(LabelDist, len(m.Labels))
	for _, label := range m.Labels {
		prior, ok := m.Prior[label]
		if !ok {
			return nil, zaperr.Kindw(ErrLookup, "no prior for label",
				"label", string(label))
		}

		score := math.Log(prior)
		for _, f := range features {
			p, ok := m.CondProb[FeatureLabel{f, label}]
			if !ok {
				return nil, zaperr.Kindw(ErrLookup,
					"feature not in training vocabulary",
					"feature", string(f), "label", string(label))
			}
			if d[f] == 0 {
				// Clamp; not a renormalization.
				x := 1 - p
				if x <= 0 {
					x = 1
				}
				score += math.Log(x)
			} else {
				score += math.Log(p)
			}
		}
		logJoint[label] = score
	}

	return logJoint, nil
}

// Predict returns the most probable label for d along with the log-joint
// scores it was chosen from.
func (m *Model) Predict(d Datum) (Label, LabelDist, error) {
	logJoint, err := m.LogJoint(d)
	if err != nil {
		return "", nil, err
	}
	return ArgMax(m.Labels, logJoint), logJoint, nil
}

// ArgMax returns the label with the highest score.  On equal scores the label
// appearing first in labels wins.
func ArgMax(labels []Label, scores LabelDist) Label {
	if len(labels) == 0 {
		return ""
	}

	best := labels[0]
	bestScore := scores[best]
	for _, l := range labels[1:] {
		if s := scores[l]; s > bestScore || (math.IsNaN(bestScore) && !math.IsNaN(s)) {
			best = l
			bestScore = s
		}
	}
	return best
}

func (m *Model) hasLabel(label Label) bool {
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// HighOddsFeatures ranks features by the odds ratio
// P(f = 1 | label1) / P(f = 1 | label2) and returns the n highest.
func (m *Model) HighOddsFeatures(label1, label2 Label, n int) ([]Feature, error) {
	if m == nil || m.CondProb == nil {
		return nil, zaperr.Kindw(ErrLookup, "model has not been trained")
	}
	for _, l := range []Label{label1, label2} {
		if !m.hasLabel(l) {
			return nil, zaperr.Kindw(ErrLookup, "unknown label",
				"label", string(l))
		}
	}

	odds := make(map[Feature]float64, len(m.Features))
	for _, f := range m.Features {
		p1 := m.CondProb[FeatureLabel{f, label1}]
		p2 := m.CondProb[FeatureLabel{f, label2}]
		if p2 == 0 {
			odds[f] = math.Inf(1)
			continue
		}
		odds[f] = p1 / p2
	}
	return TopFeatures(odds, n), nil
}

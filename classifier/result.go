/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// ClassifyUncertain indicates the classification produced no usable result
	ClassifyUncertain = 0
	// ClassifyCrossing indicates the classification a result, but it may not be reliable
	ClassifyCrossing = 1
	// ClassifyCertain indicates the classification produced a good quality result
	ClassifyCertain = 2
)

// Default region thresholds on the winning posterior.
const (
	DefaultCertainAbove   = 0.6
	DefaultUncertainBelow = 0.4
)

// Result represents the outcome of classifying one datum.
type Result struct {
	Label       Label
	Probability float64
	NextProb    float64
	Region      int
	LogJoint    LabelDist
}

func (r Result) String() string {
	return fmt.Sprintf("%s [%.2f]", r.Label, r.Probability)
}

// Equal returns true if r and s are substantively equal classification results
func (r Result) Equal(s Result) bool {
	if r.Label != s.Label {
		return false
	}
	if math.Abs(r.Probability-s.Probability) > 0.0001 {
		return false
	}
	return true
}

// Posterior normalizes log-joint scores into probabilities over labels.  If
// every score is -Inf the result is all zeros.
func Posterior(logJoint LabelDist, labels []Label) LabelDist {
	post := make(LabelDist, len(labels))
	if len(labels) == 0 {
		return post
	}

	scores := make([]float64, len(labels))
	allInf := true
	for i, l := range labels {
		scores[i] = logJoint[l]
		if !math.IsInf(scores[i], -1) {
			allInf = false
		}
	}
	if allInf {
		for _, l := range labels {
			post[l] = 0
		}
		return post
	}

	lse := floats.LogSumExp(scores)
	for i, l := range labels {
		post[l] = math.Exp(scores[i] - lse)
	}
	return post
}

// NewResult builds a Result from log-joint scores.  The label is chosen the
// same way the classifier chooses it; the region depends on the winning
// posterior against the two thresholds.
func NewResult(labels []Label, logJoint LabelDist, certainAbove, uncertainBelow float64) Result {
	post := Posterior(logJoint, labels)
	best := ArgMax(labels, logJoint)

	maxProb := post[best]
	nextProb := 0.0
	for _, l := range labels {
		if l != best && post[l] > nextProb {
			nextProb = post[l]
		}
	}

	region := ClassifyUncertain
	if maxProb > certainAbove {
		region = ClassifyCertain
	} else if maxProb > uncertainBelow {
		region = ClassifyCrossing
	}

	return Result{
		Label:       best,
		Probability: maxProb,
		NextProb:    nextProb,
		Region:      region,
		LogJoint:    logJoint,
	}
}

// Results converts the posteriors of the last Classify call into Results.
func (c *Classifier) Results(certainAbove, uncertainBelow float64) []Result {
	results := make([]Result, len(c.posteriors))
	for i, lj := range c.posteriors {
		results[i] = NewResult(c.model.Labels, lj, certainAbove, uncertainBelow)
	}
	return results
}

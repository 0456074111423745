/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// The estimator gathers the sufficient statistics of the training set once,
// then builds one smoothed model per candidate k and keeps the candidate
// which classifies the most validation datums correctly.
//
// For a binary feature f and label y, with k the smoothing parameter:
//
//     P(f = 1 | y) = (active(f, y) + k) / (seen(f, y) + 2k)
//
// where active counts the training datums labelled y with f == 1 and seen
// counts those in which f was observed at all.  The 2k accounts for smoothing
// both outcomes of the feature.

package classifier

import (
	"context"
	"math"

	"github.com/rayhong24/cmpt310-a4/common/zaperr"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// TrainingSet holds index-aligned training and validation sequences.
type TrainingSet struct {
	TrainingData     []Datum
	TrainingLabels   []Label
	ValidationData   []Datum
	ValidationLabels []Label
}

// Candidate records the validation outcome of one smoothing parameter.
type Candidate struct {
	K       float64
	Correct int
	Total   int
}

// Accuracy returns the percentage of validation datums classified correctly.
func (c Candidate) Accuracy() float64 {
	if c.Total == 0 {
		return 0
	}
	return 100.0 * float64(c.Correct) / float64(c.Total)
}

type sufficientStats struct {
	labelCounts  LabelDist
	activeCounts CondTable
	seenCounts   CondTable
}

// Estimator trains models over a grid of smoothing parameters.
type Estimator struct {
	labels   []Label
	grid     []float64
	parallel int
	slog     *zap.SugaredLogger
}

// NewEstimator creates an Estimator for the given legal labels and smoothing
// grid.  A nil logger discards the per-candidate diagnostics.
func NewEstimator(labels []Label, grid []float64, slog *zap.SugaredLogger) *Estimator {
	if slog == nil {
		slog = zap.NewNop().Sugar()
	}
	return &Estimator{
		labels:   append([]Label(nil), labels...),
		grid:     append([]float64(nil), grid...),
		parallel: 1,
		slog:     slog,
	}
}

// SetParallel sets how many candidates may be evaluated at once.  The
// selected model does not depend on it.
func (e *Estimator) SetParallel(n int) {
	if n < 1 {
		n = 1
	}
	e.parallel = n
}

func checkValues(which string, data []Datum) error {
	for i, d := range data {
		for f, v := range d {
			if v != 0 && v != 1 {
				return zaperr.Kindw(ErrInvalidInput,
					which+" datum has a non-binary value",
					"index", i, "feature", string(f), "value", v)
			}
		}
	}
	return nil
}

func (e *Estimator) validate(ts TrainingSet) error {
	if len(e.labels) == 0 {
		return zaperr.Kindw(ErrInvalidInput, "no legal labels")
	}
	legal := make(map[Label]bool, len(e.labels))
	for _, l := range e.labels {
		if legal[l] {
			return zaperr.Kindw(ErrInvalidInput, "duplicate legal label",
				"label", string(l))
		}
		legal[l] = true
	}

	if len(e.grid) == 0 {
		return zaperr.Kindw(ErrInvalidInput, "empty smoothing grid")
	}
	for _, k := range e.grid {
		if k < 0 || math.IsNaN(k) || math.IsInf(k, 0) {
			return zaperr.Kindw(ErrInvalidInput,
				"smoothing parameter must be a non-negative number",
				"k", k)
		}
		// The denominator adds 2k; past this every probability is 0.
		if math.IsInf(2*k, 0) {
			return zaperr.Kindw(ErrInvalidInput,
				"smoothing parameter too large", "k", k)
		}
	}

	if len(ts.TrainingData) != len(ts.TrainingLabels) {
		return zaperr.Kindw(ErrInvalidInput,
			"training data and labels differ in length",
			"data", len(ts.TrainingData), "labels", len(ts.TrainingLabels))
	}
	if len(ts.ValidationData) != len(ts.ValidationLabels) {
		return zaperr.Kindw(ErrInvalidInput,
			"validation data and labels differ in length",
			"data", len(ts.ValidationData), "labels", len(ts.ValidationLabels))
	}
	if len(ts.TrainingData) == 0 {
		return zaperr.Kindw(ErrInvalidInput, "no training data")
	}
	for i, l := range ts.TrainingLabels {
		if !legal[l] {
			return zaperr.Kindw(ErrInvalidInput,
				"training label is not a legal label",
				"index", i, "label", string(l))
		}
	}

	if err := checkValues("training", ts.TrainingData); err != nil {
		return err
	}
	return checkValues("validation", ts.ValidationData)
}

// gatherStats makes the single pass over the training data.
func gatherStats(data []Datum, labels []Label) *sufficientStats {
	stats := &sufficientStats{
		labelCounts:  make(LabelDist),
		activeCounts: make(CondTable),
		seenCounts:   make(CondTable),
	}

	for i, datum := range data {
		label := labels[i]
		for f, v := range datum {
			fl := FeatureLabel{f, label}
			stats.seenCounts[fl]++
			if v == 1 {
				stats.activeCounts[fl]++
			}
		}
		stats.labelCounts[label]++
	}
	return stats
}

// smooth builds the model for one k from a private copy of the statistics.
func (e *Estimator) smooth(stats *sufficientStats, features []Feature, k float64) (*Model, error) {
	prior := stats.labelCounts.Copy()
	counts := stats.seenCounts.Copy()
	active := stats.activeCounts.Copy()

	for _, label := range e.labels {
		for _, f := range features {
			fl := FeatureLabel{f, label}
			active[fl] += k
			counts[fl] += 2 * k
		}
	}

	prior.Normalize(e.labels)

	condProb := make(CondTable, len(features)*len(e.labels))
	for _, label := range e.labels {
		for _, f := range features {
			fl := FeatureLabel{f, label}
			if counts[fl] == 0 {
				return nil, zaperr.Kindw(ErrDivisionByZero,
					"feature never observed with label; use k > 0",
					"feature", string(f), "label", string(label), "k", k)
			}
			condProb[fl] = active[fl] / counts[fl]
		}
	}

	return &Model{
		Labels:   e.labels,
		Features: features,
		Prior:    prior,
		CondProb: condProb,
		K:        k,
	}, nil
}

func evaluate(m *Model, data []Datum, labels []Label) (Candidate, error) {
	c := Candidate{K: m.K, Total: len(labels)}

	guesses, err := NewClassifier(m).Classify(data)
	if err != nil {
		return c, err
	}
	for i, g := range guesses {
		if g == labels[i] {
			c.Correct++
		}
	}
	return c, nil
}

// Train gathers statistics from the training data and evaluates each
// candidate of the grid against the validation data.  It returns the model of
// the first candidate reaching the best validation accuracy, along with the
// outcome of every candidate in grid order.
func (e *Estimator) Train(ctx context.Context, ts TrainingSet) (*Model, []Candidate, error) {
	if err := e.validate(ts); err != nil {
		return nil, nil, err
	}

	features := Vocabulary(ts.TrainingData)
	stats := gatherStats(ts.TrainingData, ts.TrainingLabels)

	models := make([]*Model, len(e.grid))
	candidates := make([]Candidate, len(e.grid))
	errs := make([]error, len(e.grid))

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(e.parallel))
	var acquireErr error
	for i, k := range e.grid {
		if acquireErr = sem.Acquire(gctx, 1); acquireErr != nil {
			break
		}

		i, k := i, k
		g.Go(func() error {
			defer sem.Release(1)
			if err := gctx.Err(); err != nil {
				return err
			}

			m, err := e.smooth(stats, features, k)
			if err == nil {
				candidates[i], err = evaluate(m, ts.ValidationData, ts.ValidationLabels)
			}
			if err != nil {
				errs[i] = err
				return err
			}
			models[i] = m
			return nil
		})
	}
	groupErr := g.Wait()

	// Report in grid order up to the first candidate which failed or never
	// ran, as a sequential search would.
	bestCorrect := -1
	best := 0
	for i, c := range candidates {
		if errs[i] != nil {
			return nil, nil, errs[i]
		}
		if models[i] == nil {
			if groupErr == nil {
				groupErr = acquireErr
			}
			if groupErr == nil {
				groupErr = ctx.Err()
			}
			return nil, nil, groupErr
		}

		e.slog.Infof("Performance on validation set for k=%f: (%.1f%%)",
			c.K, c.Accuracy())
		if c.Correct > bestCorrect {
			bestCorrect = c.Correct
			best = i
		}
	}
	e.slog.Debugw("selected smoothing parameter", "k", e.grid[best],
		"correct", bestCorrect, "total", len(ts.ValidationLabels))

	return models[best], candidates, nil
}

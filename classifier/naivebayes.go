/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package classifier implements a Bernoulli Naive Bayes classifier over
// binary features, with Laplace smoothing whose parameter is chosen by
// validation accuracy.
package classifier

import (
	"context"

	"github.com/rayhong24/cmpt310-a4/common/zaperr"

	"go.uber.org/zap"
)

// DefaultGrid is searched when automatic tuning is enabled.
var DefaultGrid = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 20, 50}

// GridFor returns the smoothing grid implied by the k/automatic tuning pair.
func GridFor(k float64, automaticTuning bool) []float64 {
	if automaticTuning {
		return append([]float64(nil), DefaultGrid...)
	}
	return []float64{k}
}

// Method is the contract shared by classification methods.
type Method interface {
	Train(trainingData []Datum, trainingLabels []Label,
		validationData []Datum, validationLabels []Label) error
	Classify(data []Datum) ([]Label, error)
}

// NaiveBayes is a Method which trains a Bernoulli Naive Bayes model.
type NaiveBayes struct {
	legalLabels     []Label
	k               float64
	automaticTuning bool
	parallel        int
	slog            *zap.SugaredLogger

	classifier *Classifier
	candidates []Candidate
}

// NewNaiveBayes returns an untrained classifier for legalLabels with k = 1
// and automatic tuning off.
func NewNaiveBayes(legalLabels []Label, slog *zap.SugaredLogger) *NaiveBayes {
	return &NaiveBayes{
		legalLabels: append([]Label(nil), legalLabels...),
		k:           1,
		parallel:    1,
		slog:        slog,
	}
}

// SetSmoothing sets the k used when automatic tuning is off.
func (nb *NaiveBayes) SetSmoothing(k float64) {
	nb.k = k
}

// SetAutomaticTuning selects searching DefaultGrid instead of using k.
func (nb *NaiveBayes) SetAutomaticTuning(on bool) {
	nb.automaticTuning = on
}

// SetParallel sets how many smoothing candidates are evaluated at once.
func (nb *NaiveBayes) SetParallel(n int) {
	nb.parallel = n
}

// LegalLabels returns the labels the classifier chooses among.
func (nb *NaiveBayes) LegalLabels() []Label {
	return nb.legalLabels
}

// K returns the smoothing parameter; after training, the selected one.
func (nb *NaiveBayes) K() float64 {
	return nb.k
}

// Train implements Method, searching the grid given by the current
// smoothing settings.
func (nb *NaiveBayes) Train(trainingData []Datum, trainingLabels []Label,
	validationData []Datum, validationLabels []Label) error {

	ts := TrainingSet{
		TrainingData:     trainingData,
		TrainingLabels:   trainingLabels,
		ValidationData:   validationData,
		ValidationLabels: validationLabels,
	}
	return nb.TrainAndTune(context.Background(), ts,
		GridFor(nb.k, nb.automaticTuning))
}

// TrainAndTune trains over an explicit smoothing grid and installs the best
// model.  On failure the previously installed model, if any, is kept.
func (nb *NaiveBayes) TrainAndTune(ctx context.Context, ts TrainingSet, grid []float64) error {
	est := NewEstimator(nb.legalLabels, grid, nb.slog)
	est.SetParallel(nb.parallel)

	m, candidates, err := est.Train(ctx, ts)
	if err != nil {
		return err
	}

	nb.classifier = NewClassifier(m)
	nb.candidates = candidates
	nb.k = m.K
	return nil
}

// Classify implements Method.
func (nb *NaiveBayes) Classify(data []Datum) ([]Label, error) {
	if nb.classifier == nil {
		return nil, zaperr.Kindw(ErrLookup, "classify called before train")
	}
	return nb.classifier.Classify(data)
}

// Model returns the installed model, or nil before training.
func (nb *NaiveBayes) Model() *Model {
	if nb.classifier == nil {
		return nil
	}
	return nb.classifier.Model()
}

// Posteriors returns the log-joint mappings of the last Classify call.
func (nb *NaiveBayes) Posteriors() []LabelDist {
	if nb.classifier == nil {
		return nil
	}
	return nb.classifier.Posteriors()
}

// Candidates returns the validation outcome of each candidate of the last
// successful training, in grid order.
func (nb *NaiveBayes) Candidates() []Candidate {
	return nb.candidates
}

/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/lytics/multibayes"
	"github.com/spf13/cobra"

	"github.com/rayhong24/cmpt310-a4/classifier"
)

// sentenceOf renders the active features of d as a document for the text
// classifier.
func sentenceOf(d classifier.Datum) string {
	active := d.Active()
	words := make([]string, len(active))
	for i, f := range active {
		words[i] = string(f)
	}
	return strings.Join(words, " ")
}

// textBaseline is a multinomial text Bayes classifier over the sentences of
// active feature names.  It implements classifier.Method.
type textBaseline struct {
	labels []classifier.Label
	bayes  *multibayes.Classifier
}

func newTextBaseline(labels []classifier.Label, minClassSize int) *textBaseline {
	bayes := multibayes.NewClassifier()
	bayes.MinClassSize = minClassSize
	return &textBaseline{
		labels: labels,
		bayes:  bayes,
	}
}

// Train adds the training and validation data; the baseline has no
// parameter to tune.
func (t *textBaseline) Train(trainingData []classifier.Datum, trainingLabels []classifier.Label,
	validationData []classifier.Datum, validationLabels []classifier.Label) error {

	add := func(data []classifier.Datum, labels []classifier.Label) {
		for i, d := range data {
			t.bayes.Add(sentenceOf(d), []string{string(labels[i])})
		}
	}
	add(trainingData, trainingLabels)
	add(validationData, validationLabels)
	return nil
}

func (t *textBaseline) Classify(data []classifier.Datum) ([]classifier.Label, error) {
	guesses := make([]classifier.Label, len(data))
	for i, d := range data {
		post := t.bayes.Posterior(sentenceOf(d))
		scores := make(classifier.LabelDist, len(post))
		for l, p := range post {
			scores[classifier.Label(l)] = p
		}
		guesses[i] = classifier.ArgMax(t.labels, scores)
	}
	return guesses, nil
}

func compareSub(b *backdrop, cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("dataset")
	minClassSize, _ := cmd.Flags().GetInt("min-class-size")
	out := cmd.OutOrStdout()

	nb, splits, err := b.trainDataset(context.Background(), name)
	if err != nil {
		return err
	}

	baseline := newTextBaseline(splits.LegalLabels(), minClassSize)
	ts := splits.TrainingSet()
	if err := baseline.Train(ts.TrainingData, ts.TrainingLabels,
		ts.ValidationData, ts.ValidationLabels); err != nil {
		return err
	}

	methods := []struct {
		name string
		m    classifier.Method
	}{
		{fmt.Sprintf("bernoulli (k=%g)", nb.K()), nb},
		{fmt.Sprintf("multibayes (min %d)", minClassSize), baseline},
	}
	for _, m := range methods {
		correct, err := score(m.m, splits.Test)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-24s test %d/%d (%.1f%%)\n", m.name, correct,
			splits.Test.Len(), percent(correct, splits.Test.Len()))
	}
	return nil
}

var _ classifier.Method = (*textBaseline)(nil)
var _ classifier.Method = (*classifier.NaiveBayes)(nil)


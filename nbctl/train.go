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
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rayhong24/cmpt310-a4/classifier"
	"github.com/rayhong24/cmpt310-a4/dataset"
	"github.com/rayhong24/cmpt310-a4/rundb"
)

func ingestSub(b *backdrop, cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name, _ := cmd.Flags().GetString("dataset")

	samples, err := dataset.Open(ctx, b.fs, b.storage, args[0])
	if err != nil {
		return err
	}
	if !samples.Labelled() {
		return errors.Errorf("%s has no '%s' column", args[0], dataset.LabelColumn)
	}

	splits, err := dataset.SplitSamples(samples, b.cfg.Split.Validation,
		b.cfg.Split.Test, b.cfg.Split.Seed)
	if err != nil {
		return err
	}
	if err := b.db.InsertSamples(name, splits); err != nil {
		return err
	}

	b.slog.Infof("ingested %d samples from %s", samples.Len(), args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d training, %d validation, %d test; labels %v\n",
		name, splits.Training.Len(), splits.Validation.Len(), splits.Test.Len(),
		splits.LegalLabels())
	return nil
}

func trainSub(b *backdrop, cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name, _ := cmd.Flags().GetString("dataset")
	out := cmd.OutOrStdout()

	nb, splits, err := b.trainDataset(ctx, name)
	if err != nil {
		return err
	}

	testCorrect, err := score(nb, splits.Test)
	if err != nil {
		return errors.Wrap(err, "scoring test set")
	}

	var selected *classifier.Candidate
	recorded := make([]rundb.RecordedCandidate, 0, len(nb.Candidates()))
	for i, c := range nb.Candidates() {
		if selected == nil && c.K == nb.K() {
			selected = &nb.Candidates()[i]
		}
		recorded = append(recorded, rundb.RecordedCandidate{
			K:       c.K,
			Correct: c.Correct,
			Total:   c.Total,
		})
	}

	run := rundb.RecordedRun{
		RunID:       rundb.NewRunID(),
		Dataset:     name,
		Created:     time.Now().UTC(),
		K:           nb.K(),
		Correct:     selected.Correct,
		Total:       len(splits.Validation.Labels),
		TestCorrect: testCorrect,
		TestTotal:   splits.Test.Len(),
	}
	if err := b.db.InsertRun(run, recorded); err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s\n", run.RunID)
	fmt.Fprint(out, candidateTable(recorded, run.K))
	fmt.Fprintf(out, "selected k=%g; test accuracy %d/%d (%.1f%%)\n",
		run.K, run.TestCorrect, run.TestTotal,
		percent(run.TestCorrect, run.TestTotal))
	return nil
}

// candidateTable renders candidates one per line, marking the first with the
// selected k.
func candidateTable(cands []rundb.RecordedCandidate, selectedK float64) string {
	var msg strings.Builder
	marked := false
	for _, c := range cands {
		line := fmt.Sprintf("k=%-8g %d/%d (%.1f%%)", c.K, c.Correct, c.Total,
			percent(c.Correct, c.Total))
		if !marked && c.K == selectedK {
			marked = true
			fmt.Fprintf(&msg, "%s%s\n", checkMark, color.GreenString(line))
		} else {
			fmt.Fprintf(&msg, "   %s\n", line)
		}
	}
	return msg.String()
}

func formatResult(i int, r classifier.Result) string {
	prob := fmt.Sprintf("%.2f", r.Probability)
	label := string(r.Label)
	switch r.Region {
	case classifier.ClassifyCertain:
		label = color.GreenString(label)
	case classifier.ClassifyCrossing:
		label = color.YellowString(label)
	default:
		label = color.RedString(label)
	}
	return fmt.Sprintf("%d: %s (%s, next %.2f)", i, label, prob, r.NextProb)
}

func classifySub(b *backdrop, cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name, _ := cmd.Flags().GetString("dataset")
	out := cmd.OutOrStdout()

	nb, _, err := b.trainDataset(ctx, name)
	if err != nil {
		return err
	}

	samples, err := dataset.Open(ctx, b.fs, b.storage, args[0])
	if err != nil {
		return err
	}

	c := classifier.NewClassifier(nb.Model())
	guesses, err := c.Classify(samples.Data)
	if err != nil {
		return err
	}
	results := c.Results(b.cfg.Report.CertainAbove, b.cfg.Report.UncertainBelow)

	correct := 0
	for i, r := range results {
		line := formatResult(i, r)
		if samples.Labelled() {
			if guesses[i] == samples.Labels[i] {
				correct++
				line = checkMark + line
			} else {
				line = fmt.Sprintf("   %s [want %s]", line, samples.Labels[i])
			}
		}
		fmt.Fprintln(out, line)
	}
	if samples.Labelled() {
		fmt.Fprintf(out, "accuracy %d/%d (%.1f%%)\n", correct, samples.Len(),
			percent(correct, samples.Len()))
	}
	return nil
}

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

	"github.com/spf13/cobra"
	"github.com/tatsushid/go-prettytable"

	"github.com/rayhong24/cmpt310-a4/classifier"
)

// reviewSub reports on the stored datasets and on the smoothing parameter
// searches run against them.
func reviewSub(b *backdrop, cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("dataset")
	verbose, _ := cmd.Flags().GetBool("verbose")
	out := cmd.OutOrStdout()

	sets, err := b.db.Datasets()
	if err != nil {
		return err
	}
	for _, s := range sets {
		if name != "" && s.Name != name {
			continue
		}
		fmt.Fprintf(out, "dataset %s: %d training, %d validation, %d test\n",
			s.Name, s.Training, s.Validation, s.Test)
	}

	runs, err := b.db.GetRuns(name)
	if err != nil {
		return err
	}
	b.slog.Infof("runs: %d", len(runs))

	if len(runs) == 0 {
		return nil
	}

	table, _ := prettytable.NewTable(
		prettytable.Column{Header: "Run"},
		prettytable.Column{Header: "Dataset"},
		prettytable.Column{Header: "Created"},
		prettytable.Column{Header: "K"},
		prettytable.Column{Header: "Validation"},
		prettytable.Column{Header: "Test"},
	)
	table.Separator = "  "
	for _, r := range runs {
		table.AddRow(r.RunID, r.Dataset,
			r.Created.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%g", r.K),
			fmt.Sprintf("%d/%d (%.1f%%)", r.Correct, r.Total,
				percent(r.Correct, r.Total)),
			fmt.Sprintf("%d/%d (%.1f%%)", r.TestCorrect, r.TestTotal,
				percent(r.TestCorrect, r.TestTotal)))
	}
	if _, err := table.WriteTo(out); err != nil {
		return err
	}

	if !verbose {
		return nil
	}
	for _, r := range runs {
		cands, err := b.db.GetCandidates(r.RunID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\ncandidates for run %s:\n", r.RunID)
		fmt.Fprint(out, candidateTable(cands, r.K))
	}
	return nil
}

// featuresSub lists the features most indicative of a label.  With --odds it
// ranks by odds ratio against a second label; otherwise it asks for the
// method's own feature weights, which Naive Bayes does not keep.
func featuresSub(b *backdrop, cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("dataset")
	label, _ := cmd.Flags().GetString("label")
	against, _ := cmd.Flags().GetString("odds")
	n, _ := cmd.Flags().GetInt("count")
	out := cmd.OutOrStdout()

	nb, _, err := b.trainDataset(context.Background(), name)
	if err != nil {
		return err
	}

	var top []classifier.Feature
	if against != "" {
		top, err = nb.Model().HighOddsFeatures(classifier.Label(label),
			classifier.Label(against), n)
	} else {
		top, err = classifier.FindHighWeightFeatures(nb, classifier.Label(label))
		if len(top) > n {
			top = top[:n]
		}
	}
	if err != nil {
		return err
	}

	m := nb.Model()
	for i, f := range top {
		p := m.CondProb[classifier.FeatureLabel{Feature: f, Label: classifier.Label(label)}]
		fmt.Fprintf(out, "%3d %-24s P(%s|%s)=%.3f\n", i+1, f, f, label, p)
	}
	return nil
}

/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// nbctl ingests binary-feature datasets, tunes and evaluates Bernoulli Naive
// Bayes classifiers over them, and serves classifications over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rayhong24/cmpt310-a4/classifier"
	"github.com/rayhong24/cmpt310-a4/common/daemonutils"
	"github.com/rayhong24/cmpt310-a4/common/zaperr"
	"github.com/rayhong24/cmpt310-a4/dataset"
	"github.com/rayhong24/cmpt310-a4/rundb"
)

const (
	pname     = "nbctl"
	checkMark = `✔︎ `
)

// backdrop carries what every subcommand needs.
type backdrop struct {
	fs      afero.Fs
	storage *storage.Client
	cfg     *config
	db      rundb.DataStore
	slog    *zap.SugaredLogger
	// Set when slog came from daemonutils rather than the caller.
	ownLogs bool
}

// trainDataset rebuilds the classifier for the named dataset from its stored
// training and validation partitions.
func (b *backdrop) trainDataset(ctx context.Context, name string) (*classifier.NaiveBayes, *dataset.Splits, error) {
	splits, err := b.db.GetSplits(name)
	if err != nil {
		return nil, nil, err
	}

	nb := classifier.NewNaiveBayes(splits.LegalLabels(), b.slog)
	nb.SetParallel(b.cfg.Smoothing.Parallel)
	if err := nb.TrainAndTune(ctx, splits.TrainingSet(), b.cfg.Grid()); err != nil {
		return nil, nil, errors.Wrapf(err, "training on '%s'", name)
	}
	return nb, splits, nil
}

// score classifies s and counts the correct guesses.
func score(m classifier.Method, s *dataset.Samples) (int, error) {
	guesses, err := m.Classify(s.Data)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, g := range guesses {
		if g == s.Labels[i] {
			correct++
		}
	}
	return correct, nil
}

func percent(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100.0 * float64(correct) / float64(total)
}

func newRootCmd(b *backdrop) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           pname,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(ccmd *cobra.Command, args []string) error {
			if ccmd.Name() == "help" {
				return nil
			}
			if b.slog == nil {
				_, b.slog = daemonutils.ResetupLogs()
				b.ownLogs = true
			}

			var err error
			if b.cfg, err = loadConfig(b.fs, ccmd.Flags()); err != nil {
				return err
			}
			// --log-level wins over the configuration.
			if l, ok, _ := b.cfg.level(); ok && b.ownLogs &&
				!ccmd.Flags().Changed("log-level") {
				daemonutils.SetLevel(l)
			}
			b.slog.Debugw("configuration", "database", b.cfg.Database,
				"grid", b.cfg.Grid(), "parallel", b.cfg.Smoothing.Parallel)

			if b.db, err = rundb.OpenSQLite(b.cfg.Database); err != nil {
				return err
			}
			return b.db.CheckDB()
		},
		PersistentPostRunE: func(ccmd *cobra.Command, args []string) error {
			if b.db == nil {
				return nil
			}
			err := b.db.Close()
			b.db = nil
			return err
		},
	}
	addConfigFlags(rootCmd.PersistentFlags())
	daemonutils.AddLogFlags(rootCmd.PersistentFlags())

	ingestCmd := &cobra.Command{
		Use:   "ingest URL",
		Short: "Ingest and split a CSV dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return ingestSub(b, cmd, args) },
	}
	ingestCmd.Flags().String("dataset", "", "dataset name")
	ingestCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(ingestCmd)

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Tune the smoothing parameter and record the run",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return trainSub(b, cmd, args) },
	}
	trainCmd.Flags().String("dataset", "", "dataset name")
	trainCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(trainCmd)

	classifyCmd := &cobra.Command{
		Use:   "classify URL",
		Short: "Classify the rows of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return classifySub(b, cmd, args) },
	}
	classifyCmd.Flags().String("dataset", "", "training dataset name")
	classifyCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(classifyCmd)

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Review datasets and recorded runs",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return reviewSub(b, cmd, args) },
	}
	reviewCmd.Flags().String("dataset", "", "restrict to dataset")
	reviewCmd.Flags().Bool("verbose", false, "list every candidate")
	rootCmd.AddCommand(reviewCmd)

	featuresCmd := &cobra.Command{
		Use:   "features",
		Short: "Rank the features most indicative of a label",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return featuresSub(b, cmd, args) },
	}
	featuresCmd.Flags().String("dataset", "", "dataset name")
	featuresCmd.Flags().String("label", "", "label to rank features for")
	featuresCmd.Flags().String("odds", "", "rank by odds ratio against this label")
	featuresCmd.Flags().IntP("count", "n", classifier.HighWeightCount, "features to list")
	featuresCmd.MarkFlagRequired("dataset")
	featuresCmd.MarkFlagRequired("label")
	rootCmd.AddCommand(featuresCmd)

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare against a multinomial text Bayes baseline",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return compareSub(b, cmd, args) },
	}
	compareCmd.Flags().String("dataset", "", "dataset name")
	compareCmd.Flags().Int("min-class-size", 0, "baseline minimum class size")
	compareCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(compareCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve classifications over HTTP",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return serveSub(b, cmd, args) },
	}
	serveCmd.Flags().String("dataset", "", "dataset name")
	serveCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(serveCmd)

	return rootCmd
}

// execute runs one command line against b.  Failures carrying structured
// context are logged with it before being returned.
func execute(b *backdrop, args []string, stdout io.Writer) error {
	rootCmd := newRootCmd(b)
	rootCmd.SetArgs(args)
	rootCmd.SetOutput(stdout)

	err := rootCmd.Execute()
	if ze, ok := errors.Cause(err).(zaperr.ZapError); ok && b.slog != nil {
		b.slog.Errorw("command failed", "args", args, "error", ze)
	}
	return err
}

func run(args []string, stdout io.Writer) error {
	b := &backdrop{
		fs: afero.NewOsFs(),
	}
	return execute(b, args, stdout)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", pname, err)
		os.Exit(1)
	}
}

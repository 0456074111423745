/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package dataset reads labelled binary-feature datasets and splits them into
// training, validation and test sets.
//
// A dataset file is CSV.  The header names the features; if its last column
// is named "label", that column holds each row's label.  Every feature cell is
// 0 or 1.
package dataset

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/rayhong24/cmpt310-a4/classifier"
)

// LabelColumn is the header name of the optional label column.
const LabelColumn = "label"

// Samples holds index-aligned datums and labels.  Labels is nil for an
// unlabelled dataset.
type Samples struct {
	Data   []classifier.Datum
	Labels []classifier.Label
}

// Len returns the number of datums.
func (s *Samples) Len() int {
	return len(s.Data)
}

// Labelled reports whether every datum carries a label.
func (s *Samples) Labelled() bool {
	return s.Labels != nil && len(s.Labels) == len(s.Data)
}

// LegalLabels returns the sorted distinct labels of the given sample sets.
func LegalLabels(sets ...*Samples) []classifier.Label {
	seen := make(map[classifier.Label]bool)
	for _, s := range sets {
		if s == nil {
			continue
		}
		for _, l := range s.Labels {
			seen[l] = true
		}
	}
	labels := make([]classifier.Label, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// ReadCSV parses a dataset from r.
func ReadCSV(r io.Reader) (*Samples, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty dataset")
	} else if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}

	labelled := strings.TrimSpace(header[len(header)-1]) == LabelColumn
	nfeatures := len(header)
	if labelled {
		nfeatures--
	}
	features := make([]classifier.Feature, nfeatures)
	seen := make(map[string]bool, nfeatures)
	for i := 0; i < nfeatures; i++ {
		name := strings.TrimSpace(header[i])
		if name == "" {
			return nil, errors.Errorf("empty feature name in column %d", i+1)
		}
		if seen[name] {
			return nil, errors.Errorf("duplicate feature %q", name)
		}
		seen[name] = true
		features[i] = classifier.Feature(name)
	}

	s := &Samples{}
	if labelled {
		s.Labels = []classifier.Label{}
	}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "reading dataset")
		}
		line, _ := reader.FieldPos(0)

		d := make(classifier.Datum, nfeatures)
		for i, f := range features {
			switch strings.TrimSpace(row[i]) {
			case "0":
				d[f] = 0
			case "1":
				d[f] = 1
			default:
				return nil, errors.Errorf("line %d: feature %s: bad value %q",
					line, f, row[i])
			}
		}
		s.Data = append(s.Data, d)

		if labelled {
			label := strings.TrimSpace(row[nfeatures])
			if label == "" {
				return nil, errors.Errorf("line %d: empty label", line)
			}
			s.Labels = append(s.Labels, classifier.Label(label))
		}
	}
	return s, nil
}

// WriteCSV writes s in the format ReadCSV accepts.  Columns follow the sorted
// vocabulary of s; features missing from a datum are written as 0.
func WriteCSV(w io.Writer, s *Samples) error {
	features := classifier.Vocabulary(s.Data)
	labelled := s.Labelled()

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(features)+1)
	for _, f := range features {
		header = append(header, string(f))
	}
	if labelled {
		header = append(header, LabelColumn)
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for i, d := range s.Data {
		row := make([]string, 0, len(header))
		for _, f := range features {
			if d[f] != 0 {
				row = append(row, "1")
			} else {
				row = append(row, "0")
			}
		}
		if labelled {
			row = append(row, string(s.Labels[i]))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "writing row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing dataset")
}

/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package dataset

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/rayhong24/cmpt310-a4/classifier"
)

const mockBucketName = "nb-datasets"

const mockCSV = `f1,f2,f3,label
1,0,1,A
1,1,0,A
0,1,0,B
0,0,1,B
`

func TestReadCSV(t *testing.T) {
	assert := require.New(t)

	s, err := ReadCSV(strings.NewReader(mockCSV))
	assert.NoError(err)
	assert.Equal(4, s.Len())
	assert.True(s.Labelled())
	assert.Equal(classifier.Datum{"f1": 1, "f2": 0, "f3": 1}, s.Data[0])
	assert.Equal([]classifier.Label{"A", "A", "B", "B"}, s.Labels)
	assert.Equal([]classifier.Label{"A", "B"}, LegalLabels(s))

	s, err = ReadCSV(strings.NewReader("f1, f2\n1, 0\n0, 0\n"))
	assert.NoError(err)
	assert.False(s.Labelled())
	assert.Nil(s.Labels)
	assert.Equal(classifier.Datum{"f1": 0, "f2": 0}, s.Data[1])
}

func TestReadCSVBad(t *testing.T) {
	testCases := map[string]string{
		"empty":          "",
		"bad value":      "f1,label\n2,A\n",
		"ragged":         "f1,f2,label\n1,A\n",
		"empty label":    "f1,label\n1,\n",
		"duplicate":      "f1,f1,label\n1,1,A\n",
		"empty feature":  "f1,,label\n1,1,A\n",
		"non-numeric":    "f1,label\nyes,A\n",
		"unquoted quote": "f1,label\n1,\"A\n",
	}
	for name, text := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(text))
			require.Error(t, err)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	assert := require.New(t)

	s := &Samples{
		Data:   []classifier.Datum{{"b": 1}, {"a": 1, "b": 0}},
		Labels: []classifier.Label{"x", "y"},
	}
	var buf bytes.Buffer
	assert.NoError(WriteCSV(&buf, s))
	assert.Equal("a,b,label\n0,1,x\n1,0,y\n", buf.String())

	r, err := ReadCSV(&buf)
	assert.NoError(err)
	assert.Equal(s.Labels, r.Labels)
	assert.Equal(classifier.Datum{"a": 0, "b": 1}, r.Data[0])
}

func TestOpenFile(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	fs := afero.NewMemMapFs()
	assert.NoError(afero.WriteFile(fs, "/data/four.csv", []byte(mockCSV), 0644))

	s, err := Open(ctx, fs, nil, "/data/four.csv")
	assert.NoError(err)
	assert.Equal(4, s.Len())

	s, err = Open(ctx, fs, nil, "file:///data/four.csv")
	assert.NoError(err)
	assert.Equal(4, s.Len())

	_, err = Open(ctx, fs, nil, "/data/missing.csv")
	assert.Error(err)

	_, err = Open(ctx, fs, nil, "https://example.com/four.csv")
	assert.Error(err)
	assert.Contains(err.Error(), "unsupported scheme https")
}

func TestOpenGCS(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	server := fakestorage.NewServer([]fakestorage.Object{
		{
			BucketName: mockBucketName,
			Name:       "sets/four.csv",
			Content:    []byte(mockCSV),
		},
	})
	defer server.Stop()

	url := fmt.Sprintf("gs://%s/sets/four.csv", mockBucketName)
	s, err := Open(ctx, afero.NewMemMapFs(), server.Client(), url)
	assert.NoError(err)
	assert.Equal([]classifier.Label{"A", "A", "B", "B"}, s.Labels)

	url = fmt.Sprintf("gs://%s/sets/missing.csv", mockBucketName)
	_, err = Open(ctx, afero.NewMemMapFs(), server.Client(), url)
	assert.Error(err)
}

func makeSamples(n int) *Samples {
	s := &Samples{}
	for i := 0; i < n; i++ {
		s.Data = append(s.Data, classifier.Datum{
			classifier.Feature(fmt.Sprintf("id%d", i)): 1,
		})
		s.Labels = append(s.Labels, classifier.Label(fmt.Sprintf("L%d", i%3)))
	}
	return s
}

func TestSplitSamples(t *testing.T) {
	assert := require.New(t)

	s := makeSamples(10)
	sp, err := SplitSamples(s, 0.2, 0.3, 1)
	assert.NoError(err)
	assert.Equal(3, sp.Test.Len())
	assert.Equal(2, sp.Validation.Len())
	assert.Equal(5, sp.Training.Len())
	assert.Equal([]classifier.Label{"L0", "L1", "L2"}, sp.LegalLabels())

	// Every sample lands in exactly one partition.
	seen := make(map[classifier.Feature]int)
	for _, which := range AllSplits {
		part := sp.Get(which)
		for i, d := range part.Data {
			for f := range d {
				seen[f]++
				assert.Equal(s.Labels[int(f[2]-'0')], part.Labels[i])
			}
		}
	}
	assert.Len(seen, 10)
	for _, c := range seen {
		assert.Equal(1, c)
	}

	again, err := SplitSamples(s, 0.2, 0.3, 1)
	assert.NoError(err)
	assert.Equal(sp, again)

	ts := sp.TrainingSet()
	assert.Equal(sp.Training.Data, ts.TrainingData)
	assert.Equal(sp.Validation.Labels, ts.ValidationLabels)
}

func TestSplitSamplesBad(t *testing.T) {
	assert := require.New(t)

	s := makeSamples(10)
	_, err := SplitSamples(s, 0.5, 0.5, 1)
	assert.Error(err)
	_, err = SplitSamples(s, -0.1, 0.2, 1)
	assert.Error(err)
	_, err = SplitSamples(s, math.NaN(), 0.2, 1)
	assert.Error(err)
	_, err = SplitSamples(s, 0.2, math.NaN(), 1)
	assert.Error(err)
	_, err = SplitSamples(s, math.Inf(1), 0, 1)
	assert.Error(err)
	_, err = SplitSamples(&Samples{Data: s.Data}, 0.2, 0.2, 1)
	assert.Error(err)
	_, err = SplitSamples(makeSamples(1), 0.4, 0.5, 1)
	assert.NoError(err)
	_, err = SplitSamples(&Samples{Labels: []classifier.Label{}}, 0.2, 0.2, 1)
	assert.Error(err)
}

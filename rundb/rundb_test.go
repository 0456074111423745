/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package rundb

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rayhong24/cmpt310-a4/classifier"
	"github.com/rayhong24/cmpt310-a4/dataset"
)

const mockCSV = `f1,f2,f3,label
1,0,1,A
1,1,0,A
0,1,0,B
0,0,1,B
1,1,1,A
0,0,0,B
1,0,0,A
0,1,1,B
1,1,0,A
0,0,1,B
`

func openTestDB(t *testing.T) DataStore {
	assert := require.New(t)

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	assert.NoError(err)
	assert.NoError(db.CheckDB())
	t.Cleanup(func() { db.Close() })
	return db
}

func mockSplits(t *testing.T) *dataset.Splits {
	s, err := dataset.ReadCSV(strings.NewReader(mockCSV))
	require.NoError(t, err)
	sp, err := dataset.SplitSamples(s, 0.2, 0.2, 1)
	require.NoError(t, err)
	return sp
}

func TestDatumCodec(t *testing.T) {
	assert := require.New(t)

	d := classifier.Datum{"b": 1, "a": 0, "c": 1}
	b1, err := encodeDatum(d)
	assert.NoError(err)
	b2, err := encodeDatum(classifier.Datum{"c": 1, "a": 0, "b": 1})
	assert.NoError(err)
	assert.Equal(b1, b2)

	r, err := decodeDatum(b1)
	assert.NoError(err)
	assert.Equal(d, r)

	_, err = encodeDatum(classifier.Datum{"a": 3})
	assert.Error(err)
	_, err = decodeDatum([]byte{0xc1})
	assert.Error(err)
}

func TestCheckDB(t *testing.T) {
	assert := require.New(t)

	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := OpenSQLite(path)
	assert.NoError(err)
	assert.NoError(db.CheckDB())
	// Idempotent
	assert.NoError(db.CheckDB())

	sdb := db.(*SQLiteRunDB)
	_, err = sdb.Exec("UPDATE version SET schema_hash = 'bogus' WHERE table_name = 'run'")
	assert.NoError(err)
	err = db.CheckDB()
	assert.Error(err)
	assert.Contains(err.Error(), "schema hash mismatch for 'run'")
	assert.NoError(db.Close())
}

func TestSamples(t *testing.T) {
	assert := require.New(t)

	db := openTestDB(t)
	sp := mockSplits(t)
	assert.NoError(db.InsertSamples("four", sp))

	got, err := db.GetSplits("four")
	assert.NoError(err)
	assert.Equal(sp, got)

	test, err := db.GetSamples("four", dataset.Test)
	assert.NoError(err)
	assert.Equal(sp.Test, test)

	sets, err := db.Datasets()
	assert.NoError(err)
	assert.Equal([]RecordedDataset{
		{Name: "four", Training: 6, Validation: 2, Test: 2},
	}, sets)

	// Re-ingesting replaces rather than appends.
	assert.NoError(db.InsertSamples("four", sp))
	sets, err = db.Datasets()
	assert.NoError(err)
	assert.Equal(6, sets[0].Training)

	_, err = db.GetSplits("missing")
	assert.Error(err)
	empty, err := db.GetSamples("missing", dataset.Training)
	assert.NoError(err)
	assert.Equal(0, empty.Len())
}

func TestRuns(t *testing.T) {
	assert := require.New(t)

	db := openTestDB(t)
	assert.NoError(db.InsertSamples("four", mockSplits(t)))

	now := time.Now().UTC().Truncate(time.Second)
	r1 := RecordedRun{
		RunID:       NewRunID(),
		Dataset:     "four",
		Created:     now,
		K:           0.5,
		Correct:     2,
		Total:       2,
		TestCorrect: 1,
		TestTotal:   2,
	}
	cands := []RecordedCandidate{
		{K: 0.1, Correct: 1, Total: 2},
		{K: 0.5, Correct: 2, Total: 2},
	}
	assert.NoError(db.InsertRun(r1, cands))

	r2 := r1
	r2.RunID = NewRunID()
	r2.Dataset = "other"
	r2.Created = now.Add(time.Minute)
	assert.NoError(db.InsertRun(r2, nil))
	assert.NotEqual(r1.RunID, r2.RunID)

	runs, err := db.GetRuns("four")
	assert.NoError(err)
	assert.Len(runs, 1)
	assert.Equal(r1.RunID, runs[0].RunID)
	assert.Equal(0.5, runs[0].K)
	assert.True(now.Equal(runs[0].Created))

	runs, err = db.GetRuns("")
	assert.NoError(err)
	assert.Len(runs, 2)
	assert.Equal(r2.RunID, runs[1].RunID)

	got, err := db.GetCandidates(r1.RunID)
	assert.NoError(err)
	assert.Equal([]RecordedCandidate{
		{RunID: r1.RunID, Position: 0, K: 0.1, Correct: 1, Total: 2},
		{RunID: r1.RunID, Position: 1, K: 0.5, Correct: 2, Total: 2},
	}, got)

	// Duplicate run ids are refused.
	assert.Error(db.InsertRun(r1, nil))

	assert.NoError(db.DeleteDataset("four"))
	runs, err = db.GetRuns("four")
	assert.NoError(err)
	assert.Empty(runs)
	got, err = db.GetCandidates(r1.RunID)
	assert.NoError(err)
	assert.Empty(got)
	sets, err := db.Datasets()
	assert.NoError(err)
	assert.Empty(sets)
}

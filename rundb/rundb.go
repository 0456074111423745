/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package rundb stores ingested dataset samples and the outcome of smoothing
// parameter searches in a SQLite database.  Trained models are not stored;
// they are rebuilt from the samples.
package rundb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// sql driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/satori/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/rayhong24/cmpt310-a4/classifier"
	"github.com/rayhong24/cmpt310-a4/dataset"
)

// DataStore represents the run database.  This interface also facilitates
// mocking the database See
// http://www.alexedwards.net/blog/organising-database-access
type DataStore interface {
	CheckDB() error
	InsertSamples(name string, splits *dataset.Splits) error
	GetSamples(name string, which dataset.Split) (*dataset.Samples, error)
	GetSplits(name string) (*dataset.Splits, error)
	DeleteDataset(name string) error
	Datasets() ([]RecordedDataset, error)
	InsertRun(RecordedRun, []RecordedCandidate) error
	GetRuns(name string) ([]RecordedRun, error)
	GetCandidates(runID string) ([]RecordedCandidate, error)
	Close() error
}

// SQLiteRunDB satisifies the DataStore interface, and represents a SQLite
// database containing samples and runs.
type SQLiteRunDB struct {
	*sqlx.DB
}

func getShake256(schema string) string {
	buf := []byte(schema)
	h := make([]byte, 64)
	sha3.ShakeSum256(h, buf)
	return fmt.Sprintf("%x", h)
}

func checkTableSchema(db *sqlx.DB, tname string, tschema string, verb string) error {
	tschemaHash := getShake256(tschema)

	_, err := db.Exec(tschema)
	if err != nil {
		return errors.Wrapf(err, "could not create '%s' table", tname)
	}

	row := db.QueryRow("SELECT table_name, schema_hash, create_date FROM version WHERE table_name = $1;", tname)

	var name, schemaHash string
	var creationDate time.Time

	err = row.Scan(&name, &schemaHash, &creationDate)
	if err == sql.ErrNoRows {
		_, err := db.Exec("INSERT INTO version (table_name, schema_hash, create_date) VALUES ($1, $2, $3)", tname, tschemaHash, time.Now().UTC())
		if err != nil {
			return errors.Wrap(err, "insert version failed")
		}
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "scan error")
	}

	if tschemaHash != schemaHash {
		return errors.Errorf("schema hash mismatch for '%s' (have %s, created %v); delete and re-%s",
			tname, schemaHash, creationDate, verb)
	}
	return nil
}

const versionSchema = `
    CREATE TABLE IF NOT EXISTS version (
	table_name TEXT PRIMARY KEY,
	schema_hash TEXT,
	create_date TIMESTAMP
    );`

const sampleSchema = `
    CREATE TABLE IF NOT EXISTS sample (
	dataset TEXT,
	split TEXT,
	position INTEGER,
	label TEXT,
	datum BLOB,
	PRIMARY KEY (dataset, split, position)
    );`

const runSchema = `
    CREATE TABLE IF NOT EXISTS run (
	run_id TEXT PRIMARY KEY,
	dataset TEXT,
	create_date TIMESTAMP,
	k FLOAT,
	correct INTEGER,
	total INTEGER,
	test_correct INTEGER,
	test_total INTEGER
    );`

const candidateSchema = `
    CREATE TABLE IF NOT EXISTS candidate (
	run_id TEXT,
	position INTEGER,
	k FLOAT,
	correct INTEGER,
	total INTEGER,
	PRIMARY KEY (run_id, position)
    );`

// CheckDB creates any missing tables and tests whether the existing ones
// look as we expect.
func (db *SQLiteRunDB) CheckDB() error {
	_, err := db.Exec(versionSchema)
	if err != nil {
		return errors.Wrap(err, "could not create version table")
	}

	tables := []struct {
		name   string
		schema string
		verb   string
	}{
		{"sample", sampleSchema, "ingest"},
		{"run", runSchema, "train"},
		{"candidate", candidateSchema, "train"},
	}
	for _, t := range tables {
		if err := checkTableSchema(db.DB, t.name, t.schema, t.verb); err != nil {
			return err
		}
	}
	return nil
}

// RecordedDataset summarizes the samples stored for one dataset.
type RecordedDataset struct {
	Name       string `db:"dataset"`
	Training   int    `db:"training"`
	Validation int    `db:"validation"`
	Test       int    `db:"test"`
}

// RecordedRun represents an entry in the run table: one smoothing parameter
// search, the parameter it selected, and the selected model's accuracy.
type RecordedRun struct {
	RunID       string    `db:"run_id"`
	Dataset     string    `db:"dataset"`
	Created     time.Time `db:"create_date"`
	K           float64   `db:"k"`
	Correct     int       `db:"correct"`
	Total       int       `db:"total"`
	TestCorrect int       `db:"test_correct"`
	TestTotal   int       `db:"test_total"`
}

// RecordedCandidate represents one grid entry of a run.
type RecordedCandidate struct {
	RunID    string  `db:"run_id"`
	Position int     `db:"position"`
	K        float64 `db:"k"`
	Correct  int     `db:"correct"`
	Total    int     `db:"total"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewV4().String()
}

// InsertSamples replaces the samples stored for the named dataset.
func (db *SQLiteRunDB) InsertSamples(name string, splits *dataset.Splits) error {
	tx, err := db.Beginx()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sample WHERE dataset = $1", name); err != nil {
		return errors.Wrapf(err, "could not clear dataset '%s'", name)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO sample (dataset, split, position, label, datum)
		VALUES ($1, $2, $3, $4, $5);`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, which := range dataset.AllSplits {
		s := splits.Get(which)
		if s == nil {
			continue
		}
		for i, d := range s.Data {
			blob, err := encodeDatum(d)
			if err != nil {
				return errors.Wrapf(err, "%s sample %d", which, i)
			}
			var label string
			if s.Labelled() {
				label = string(s.Labels[i])
			}
			if _, err := stmt.Exec(name, string(which), i, label, blob); err != nil {
				return errors.Wrapf(err, "insert %s sample %d", which, i)
			}
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

type sampleRow struct {
	Label string `db:"label"`
	Datum []byte `db:"datum"`
}

// GetSamples returns one partition of the named dataset in its stored order.
func (db *SQLiteRunDB) GetSamples(name string, which dataset.Split) (*dataset.Samples, error) {
	rows := make([]sampleRow, 0)
	err := db.Select(&rows, `
		SELECT label, datum FROM sample
		WHERE dataset = $1 AND split = $2
		ORDER BY position ASC`, name, string(which))
	if err != nil {
		return nil, errors.Wrap(err, "sample select failed")
	}

	s := &dataset.Samples{
		Data:   make([]classifier.Datum, 0, len(rows)),
		Labels: make([]classifier.Label, 0, len(rows)),
	}
	for i, r := range rows {
		d, err := decodeDatum(r.Datum)
		if err != nil {
			return nil, errors.Wrapf(err, "%s sample %d", which, i)
		}
		s.Data = append(s.Data, d)
		s.Labels = append(s.Labels, classifier.Label(r.Label))
	}
	return s, nil
}

// GetSplits returns all three partitions of the named dataset.
func (db *SQLiteRunDB) GetSplits(name string) (*dataset.Splits, error) {
	sp := &dataset.Splits{}
	for _, which := range dataset.AllSplits {
		s, err := db.GetSamples(name, which)
		if err != nil {
			return nil, err
		}
		switch which {
		case dataset.Training:
			sp.Training = s
		case dataset.Validation:
			sp.Validation = s
		case dataset.Test:
			sp.Test = s
		}
	}
	if sp.Training.Len() == 0 {
		return nil, errors.Errorf("no training samples for dataset '%s'", name)
	}
	return sp, nil
}

// DeleteDataset removes the named dataset's samples and runs.
func (db *SQLiteRunDB) DeleteDataset(name string) error {
	tx, err := db.Beginx()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	stmts := []string{
		"DELETE FROM candidate WHERE run_id IN (SELECT run_id FROM run WHERE dataset = $1)",
		"DELETE FROM run WHERE dataset = $1",
		"DELETE FROM sample WHERE dataset = $1",
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s, name); err != nil {
			return errors.Wrapf(err, "could not delete dataset '%s'", name)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// Datasets returns a summary of every stored dataset, ordered by name.
func (db *SQLiteRunDB) Datasets() ([]RecordedDataset, error) {
	sets := make([]RecordedDataset, 0)
	err := db.Select(&sets, `
		SELECT dataset,
			SUM(split = 'training') AS training,
			SUM(split = 'validation') AS validation,
			SUM(split = 'test') AS test
		FROM sample GROUP BY dataset ORDER BY dataset ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "dataset select failed")
	}
	return sets, nil
}

// InsertRun records a run and its candidates.
func (db *SQLiteRunDB) InsertRun(r RecordedRun, cands []RecordedCandidate) error {
	tx, err := db.Beginx()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`
		INSERT INTO run
			(run_id, dataset, create_date, k, correct, total, test_correct, test_total)
		VALUES (:run_id, :dataset, :create_date, :k, :correct, :total, :test_correct, :test_total);`,
		r)
	if err != nil {
		return errors.Wrapf(err, "could not insert run '%s'", r.RunID)
	}

	for i, c := range cands {
		c.RunID = r.RunID
		c.Position = i
		_, err := tx.NamedExec(`
			INSERT INTO candidate (run_id, position, k, correct, total)
			VALUES (:run_id, :position, :k, :correct, :total);`, c)
		if err != nil {
			return errors.Wrapf(err, "could not insert candidate %d", i)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// GetRuns returns the runs recorded for the named dataset, oldest first.  An
// empty name returns every run.
func (db *SQLiteRunDB) GetRuns(name string) ([]RecordedRun, error) {
	runs := make([]RecordedRun, 0)
	var err error
	if name == "" {
		err = db.Select(&runs, "SELECT * FROM run ORDER BY create_date ASC, run_id ASC")
	} else {
		err = db.Select(&runs, "SELECT * FROM run WHERE dataset = $1 ORDER BY create_date ASC, run_id ASC", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "run select failed")
	}
	return runs, nil
}

// GetCandidates returns a run's candidates in grid order.
func (db *SQLiteRunDB) GetCandidates(runID string) ([]RecordedCandidate, error) {
	cands := make([]RecordedCandidate, 0)
	err := db.Select(&cands, "SELECT * FROM candidate WHERE run_id = $1 ORDER BY position ASC", runID)
	if err != nil {
		return nil, errors.Wrap(err, "candidate select failed")
	}
	return cands, nil
}

// OpenSQLite opens the SQLite database named by dbPath
func OpenSQLite(dbPath string) (DataStore, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "run database %s open", dbPath)
	}
	return &SQLiteRunDB{
		DB: db,
	}, nil
}

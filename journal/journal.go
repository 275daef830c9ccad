// Copyright (c) 2024 The Open Data Package Checker Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// This is the run journal, which logs all checker activity. The journal is a
// table of run records (one per completed run), shared between the checker
// and the report service.

// a record storing all information relevant to a run
type Record struct {
	// UUID associated with the run
	Id uuid.UUID `json:"id"`
	// the run's name (timestamped, encodes the run's scope)
	Name string `json:"name"`
	// the run's active checker kinds, joined by "-" (e.g. "link" or
	// "link-shacl")
	Mode string `json:"mode"`
	// times at which the run started and finished
	StartTime time.Time `json:"start_time"`
	StopTime  time.Time `json:"stop_time"`
	// number of packages checked
	NumPackages int `json:"num_packages"`
	// number of result rows emitted
	NumRows int `json:"num_rows"`
	// status of the run ("succeeded" or "failed")
	Status string `json:"status"`
}

const schema string = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	mode TEXT NOT NULL,
	start_time TEXT NOT NULL,
	stop_time TEXT NOT NULL,
	num_packages INTEGER NOT NULL,
	num_rows INTEGER NOT NULL,
	status TEXT NOT NULL
)`

// the run journal, backed by a SQLite database file
type Journal struct {
	conn *sqlite.Conn
}

// opens the run journal at the given path, creating the database and its
// schema if necessary
func Open(path string) (*Journal, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return nil, &CantOpenError{Message: err.Error()}
	}
	if err := sqlitex.ExecuteTransient(conn, schema, nil); err != nil {
		conn.Close()
		return nil, &CantOpenError{Message: err.Error()}
	}
	return &Journal{conn: conn}, nil
}

// saves and closes the run journal
func (j *Journal) Close() error {
	if j.conn == nil {
		return &NotOpenError{}
	}
	err := j.conn.Close()
	j.conn = nil
	return err
}

// records a completed run
func (j *Journal) RecordRun(record Record) error {
	switch record.Status {
	case "succeeded", "failed":
		// pass-through (see below)
	default:
		return &NewRecordError{
			Id:      record.Id,
			Message: fmt.Sprintf("Invalid status: %s", record.Status),
		}
	}
	if j.conn == nil {
		return &NotOpenError{}
	}

	err := sqlitex.ExecuteTransient(j.conn,
		`INSERT INTO runs (id, name, mode, start_time, stop_time,
		                   num_packages, num_rows, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				record.Id.String(),
				record.Name,
				record.Mode,
				record.StartTime.UTC().Format(time.RFC3339),
				record.StopTime.UTC().Format(time.RFC3339),
				record.NumPackages,
				record.NumRows,
				record.Status,
			},
		})
	if err != nil {
		return &NewRecordError{Id: record.Id, Message: err.Error()}
	}
	return nil
}

// retrieves records for runs that started within the time range with the
// given (inclusive) bounds, in start-time order
func (j *Journal) Records(start, stop time.Time) ([]Record, error) {
	if j.conn == nil {
		return nil, &NotOpenError{}
	}
	records := make([]Record, 0)
	var scanErr error
	err := sqlitex.ExecuteTransient(j.conn,
		`SELECT id, name, mode, start_time, stop_time, num_packages, num_rows, status
		 FROM runs WHERE start_time >= ? AND start_time <= ?
		 ORDER BY start_time`,
		&sqlitex.ExecOptions{
			Args: []any{
				start.UTC().Format(time.RFC3339),
				stop.UTC().Format(time.RFC3339),
			},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record, err := scanRecord(stmt)
				if err != nil {
					scanErr = err
					return err
				}
				records = append(records, record)
				return nil
			},
		})
	if scanErr != nil {
		return nil, scanErr
	}
	return records, err
}

// retrieves the record for the run with the given ID
func (j *Journal) Record(id uuid.UUID) (Record, error) {
	if j.conn == nil {
		return Record{}, &NotOpenError{}
	}
	var record Record
	found := false
	var scanErr error
	err := sqlitex.ExecuteTransient(j.conn,
		`SELECT id, name, mode, start_time, stop_time, num_packages, num_rows, status
		 FROM runs WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record, scanErr = scanRecord(stmt)
				found = scanErr == nil
				return scanErr
			},
		})
	if err != nil {
		return Record{}, err
	}
	if scanErr != nil {
		return Record{}, scanErr
	}
	if !found {
		return Record{}, &RecordNotFoundError{Id: id}
	}
	return record, nil
}

func scanRecord(stmt *sqlite.Stmt) (Record, error) {
	id, err := uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return Record{}, err
	}
	startTime, err := time.Parse(time.RFC3339, stmt.ColumnText(3))
	if err != nil {
		return Record{}, err
	}
	stopTime, err := time.Parse(time.RFC3339, stmt.ColumnText(4))
	if err != nil {
		return Record{}, err
	}
	return Record{
		Id:          id,
		Name:        stmt.ColumnText(1),
		Mode:        stmt.ColumnText(2),
		StartTime:   startTime,
		StopTime:    stopTime,
		NumPackages: int(stmt.ColumnInt64(5)),
		NumRows:     int(stmt.ColumnInt64(6)),
		Status:      stmt.ColumnText(7),
	}, nil
}

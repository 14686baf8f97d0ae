package store

import (
	"database/sql"
	"time"
)

// ImportRun records a single import of station data for auditing.
type ImportRun struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Source       string // file path or URL
	Stations     sql.NullInt64
	Records      sql.NullInt64
	Success      bool
	ErrorMessage sql.NullString
}

// StartImportRun creates a new import run record and returns it.
func (s *Store) StartImportRun(source string) (*ImportRun, error) {
	run := &ImportRun{
		StartedAt: time.Now().UTC(),
		Source:    source,
	}

	result, err := s.db.Exec(`
		INSERT INTO import_runs (started_at, source, success)
		VALUES (?, ?, FALSE)
	`, run.StartedAt, run.Source)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteImportRun stores the outcome of run. err == nil marks it successful.
func (s *Store) CompleteImportRun(run *ImportRun, stations, records int, err error) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	run.Stations = sql.NullInt64{Int64: int64(stations), Valid: true}
	run.Records = sql.NullInt64{Int64: int64(records), Valid: true}
	run.Success = err == nil
	if err != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	}

	_, execErr := s.db.Exec(`
		UPDATE import_runs SET
			finished_at = ?,
			stations = ?,
			records = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.Stations, run.Records, run.Success, run.ErrorMessage, run.ID)
	return execErr
}

// RecentImportRuns returns the latest runs, newest first.
func (s *Store) RecentImportRuns(limit int) ([]ImportRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, source, stations, records, success, error_message
		FROM import_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ImportRun
	for rows.Next() {
		var r ImportRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Source,
			&r.Stations, &r.Records, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

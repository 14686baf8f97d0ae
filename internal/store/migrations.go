package store

import (
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Stations and station-daily records",
		SQL: `
CREATE TABLE IF NOT EXISTS stations (
    station_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    zone TEXT,
    zone_name TEXT
);

CREATE TABLE IF NOT EXISTS daily_records (
    date TEXT NOT NULL,
    station_id TEXT NOT NULL,
    temp_mean REAL,
    temp_min REAL,
    temp_max REAL,
    snow_depth REAL,
    precipitation REAL,
    ground_temp_min REAL,
    updated_at DATETIME NOT NULL,
    PRIMARY KEY (date, station_id)
);

CREATE INDEX IF NOT EXISTS idx_daily_records_station ON daily_records(station_id, date);
`,
	},
	{
		Version:     2,
		Description: "Import run audit log",
		SQL: `
CREATE TABLE IF NOT EXISTS import_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    source TEXT NOT NULL,
    stations INTEGER,
    records INTEGER,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_import_runs_started ON import_runs(started_at);
`,
	},
}

// Migrate applies every migration not yet recorded in schema_migrations,
// each in its own transaction.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	current, err := s.MigrationVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		s.logger.Info("applying migration", "version", m.Version, "description", m.Description)
		if err := s.apply(m); err != nil {
			return fmt.Errorf("migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}

// MigrationVersion returns the highest applied migration, 0 for a fresh database.
func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

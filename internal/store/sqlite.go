package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/paulmach/orb"
	_ "modernc.org/sqlite"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/interp"
	"github.com/lox/wxmap/internal/models"
)

const dateLayout = "2006-01-02"

// metricColumns whitelists the daily_records columns a metric key may select.
var metricColumns = map[string]string{
	colormap.TempMean:      "temp_mean",
	colormap.TempMin:       "temp_min",
	colormap.TempMax:       "temp_max",
	colormap.SnowDepth:     "snow_depth",
	colormap.Precipitation: "precipitation",
	colormap.GroundTempMin: "ground_temp_min",
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "store")}
}

// Open opens the SQLite database at path with WAL journaling.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}

func (s *Store) UpsertStation(st models.Station) error {
	return upsertStation(s.db, st)
}

func (s *Store) GetStations() ([]models.Station, error) {
	rows, err := s.db.Query(`SELECT station_id, name, latitude, longitude, zone, zone_name FROM stations ORDER BY zone, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

func (s *Store) GetStation(stationID string) (*models.Station, error) {
	row := s.db.QueryRow(`SELECT station_id, name, latitude, longitude, zone, zone_name FROM stations WHERE station_id = ?`, stationID)
	st, err := scanStation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) UpsertDaily(r models.DailyRecord) error {
	return upsertDaily(s.db, r)
}

// Import writes stations and records in one transaction. A record that
// repeats an existing (date, station) pair replaces it.
func (s *Store) Import(ctx context.Context, stations []models.Station, records []models.DailyRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, st := range stations {
		if err := upsertStation(tx, st); err != nil {
			return fmt.Errorf("upsert station %s: %w", st.StationID, err)
		}
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := upsertDaily(tx, r); err != nil {
			return fmt.Errorf("upsert record %s/%s: %w", r.Date.Format(dateLayout), r.StationID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// GetDaily returns every station's record for date, joined with the station.
func (s *Store) GetDaily(date time.Time) ([]models.StationDay, error) {
	rows, err := s.db.Query(`
		SELECT s.station_id, s.name, s.latitude, s.longitude, s.zone, s.zone_name,
			d.date, d.temp_mean, d.temp_min, d.temp_max, d.snow_depth, d.precipitation, d.ground_temp_min
		FROM daily_records d
		JOIN stations s ON s.station_id = d.station_id
		WHERE d.date = ?
		ORDER BY s.zone, s.name
	`, date.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []models.StationDay
	for rows.Next() {
		var (
			sd      models.StationDay
			dateStr string
			zone    sql.NullString
			zoneNm  sql.NullString
		)
		if err := rows.Scan(&sd.Station.StationID, &sd.Name, &sd.Latitude, &sd.Longitude, &zone, &zoneNm,
			&dateStr, &sd.TempMean, &sd.TempMin, &sd.TempMax, &sd.SnowDepth, &sd.Precipitation, &sd.GroundTempMin); err != nil {
			return nil, err
		}
		sd.Zone, sd.ZoneName = zone.String, zoneNm.String
		sd.DailyRecord.StationID = sd.Station.StationID
		if sd.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", dateStr, err)
		}
		days = append(days, sd)
	}
	return days, rows.Err()
}

// Dates lists the distinct dates with records, ascending. A zero from or to
// leaves that end of the range open.
func (s *Store) Dates(from, to time.Time) ([]time.Time, error) {
	lo, hi := "0000-01-01", "9999-12-31"
	if !from.IsZero() {
		lo = from.Format(dateLayout)
	}
	if !to.IsZero() {
		hi = to.Format(dateLayout)
	}
	rows, err := s.db.Query(`SELECT DISTINCT date FROM daily_records WHERE date >= ? AND date <= ? ORDER BY date`, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", d, err)
		}
		dates = append(dates, t)
	}
	return dates, rows.Err()
}

// ZoneSummaries aggregates the records of date per zone.
func (s *Store) ZoneSummaries(date time.Time) ([]models.ZoneSummary, error) {
	rows, err := s.db.Query(`
		SELECT s.zone, s.zone_name,
			AVG(d.temp_mean), MIN(d.temp_min), MAX(d.temp_max),
			AVG(d.snow_depth), SUM(d.precipitation), MIN(d.ground_temp_min),
			COUNT(*)
		FROM daily_records d
		JOIN stations s ON s.station_id = d.station_id
		WHERE d.date = ?
		GROUP BY s.zone, s.zone_name
		ORDER BY s.zone
	`, date.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.ZoneSummary
	for rows.Next() {
		var (
			zs           models.ZoneSummary
			zone, zoneNm sql.NullString
		)
		if err := rows.Scan(&zone, &zoneNm, &zs.TempMean, &zs.TempMin, &zs.TempMax,
			&zs.SnowDepth, &zs.Precipitation, &zs.GroundTempMin, &zs.StationCount); err != nil {
			return nil, err
		}
		zs.Date, zs.Zone, zs.ZoneName = date, zone.String, zoneNm.String
		summaries = append(summaries, zs)
	}
	return summaries, rows.Err()
}

// SampleDates lists every date with records.
func (s *Store) SampleDates(ctx context.Context) ([]time.Time, error) {
	return s.Dates(time.Time{}, time.Time{})
}

// Samples returns one sample per station with a record on date, located at
// (lon, lat). Missing measurements are NaN so callers can count them.
func (s *Store) Samples(ctx context.Context, date time.Time, metric string) ([]interp.Sample, error) {
	col, ok := metricColumns[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %q", colormap.ErrUnknownMetric, metric)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.station_id, s.longitude, s.latitude, d.`+col+`
		FROM daily_records d
		JOIN stations s ON s.station_id = d.station_id
		WHERE d.date = ?
		ORDER BY s.station_id
	`, date.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []interp.Sample
	for rows.Next() {
		var (
			smp      interp.Sample
			lon, lat float64
			v        sql.NullFloat64
		)
		if err := rows.Scan(&smp.StationID, &lon, &lat, &v); err != nil {
			return nil, err
		}
		smp.Location = orb.Point{lon, lat}
		smp.Value = math.NaN()
		if v.Valid {
			smp.Value = v.Float64
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

// Stats counts stored stations and records.
func (s *Store) Stats() (stations, records int, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM stations`).Scan(&stations); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM daily_records`).Scan(&records); err != nil {
		return 0, 0, err
	}
	return stations, records, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func upsertStation(db execer, st models.Station) error {
	_, err := db.Exec(`
		INSERT INTO stations (station_id, name, latitude, longitude, zone, zone_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			zone = excluded.zone,
			zone_name = excluded.zone_name
	`, st.StationID, st.Name, st.Latitude, st.Longitude, st.Zone, st.ZoneName)
	return err
}

func upsertDaily(db execer, r models.DailyRecord) error {
	_, err := db.Exec(`
		INSERT INTO daily_records (date, station_id, temp_mean, temp_min, temp_max, snow_depth, precipitation, ground_temp_min, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, station_id) DO UPDATE SET
			temp_mean = excluded.temp_mean,
			temp_min = excluded.temp_min,
			temp_max = excluded.temp_max,
			snow_depth = excluded.snow_depth,
			precipitation = excluded.precipitation,
			ground_temp_min = excluded.ground_temp_min,
			updated_at = excluded.updated_at
	`, r.Date.Format(dateLayout), r.StationID, r.TempMean, r.TempMin, r.TempMax, r.SnowDepth, r.Precipitation, r.GroundTempMin, time.Now().UTC())
	return err
}

func scanStation(row scanner) (models.Station, error) {
	var (
		st           models.Station
		zone, zoneNm sql.NullString
	)
	if err := row.Scan(&st.StationID, &st.Name, &st.Latitude, &st.Longitude, &zone, &zoneNm); err != nil {
		return st, err
	}
	st.Zone, st.ZoneName = zone.String, zoneNm.String
	return st, nil
}

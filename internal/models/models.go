package models

import (
	"database/sql"
	"time"

	"github.com/lox/wxmap/internal/colormap"
)

// Station is an FMI observation station.
type Station struct {
	StationID string // fmisid
	Name      string
	Latitude  float64
	Longitude float64
	Zone      string
	ZoneName  string
}

// DailyRecord is one station's aggregated observations for a single day.
type DailyRecord struct {
	Date          time.Time
	StationID     string
	TempMean      sql.NullFloat64
	TempMin       sql.NullFloat64
	TempMax       sql.NullFloat64
	SnowDepth     sql.NullFloat64
	Precipitation sql.NullFloat64
	GroundTempMin sql.NullFloat64
}

// Value returns the measurement for a metric key. Unknown keys are never valid.
func (r DailyRecord) Value(metric string) sql.NullFloat64 {
	switch metric {
	case colormap.TempMean:
		return r.TempMean
	case colormap.TempMin:
		return r.TempMin
	case colormap.TempMax:
		return r.TempMax
	case colormap.SnowDepth:
		return r.SnowDepth
	case colormap.Precipitation:
		return r.Precipitation
	case colormap.GroundTempMin:
		return r.GroundTempMin
	}
	return sql.NullFloat64{}
}

// SetValue stores v under a metric key and reports whether the key is known.
func (r *DailyRecord) SetValue(metric string, v sql.NullFloat64) bool {
	switch metric {
	case colormap.TempMean:
		r.TempMean = v
	case colormap.TempMin:
		r.TempMin = v
	case colormap.TempMax:
		r.TempMax = v
	case colormap.SnowDepth:
		r.SnowDepth = v
	case colormap.Precipitation:
		r.Precipitation = v
	case colormap.GroundTempMin:
		r.GroundTempMin = v
	default:
		return false
	}
	return true
}

// StationDay joins a daily record with its station for display.
type StationDay struct {
	Station
	DailyRecord
}

// ZoneSummary aggregates one zone's stations for a date.
type ZoneSummary struct {
	Date          time.Time
	Zone          string
	ZoneName      string
	TempMean      sql.NullFloat64 // mean
	TempMin       sql.NullFloat64 // min
	TempMax       sql.NullFloat64 // max
	SnowDepth     sql.NullFloat64 // mean
	Precipitation sql.NullFloat64 // sum
	GroundTempMin sql.NullFloat64 // min
	StationCount  int
}

// Zone is a latitude band used to group stations.
type Zone struct {
	ID     string
	Name   string
	LatMin float64
	LatMax float64
}

var Zones = []Zone{
	{ID: "etela_suomi", Name: "Etelä-Suomi", LatMin: 0, LatMax: 62},
	{ID: "keski_suomi", Name: "Keski-Suomi", LatMin: 62, LatMax: 64},
	{ID: "pohjois_suomi", Name: "Pohjois-Suomi", LatMin: 64, LatMax: 66},
	{ID: "lappi", Name: "Lappi", LatMin: 66, LatMax: 90},
}

// UnknownZoneName labels stations outside every band.
const UnknownZoneName = "Tuntematon"

// ZoneFor returns the zone whose band contains lat. The lower edge is inclusive.
func ZoneFor(lat float64) (Zone, bool) {
	for _, z := range Zones {
		if lat >= z.LatMin && lat < z.LatMax {
			return z, true
		}
	}
	return Zone{Name: UnknownZoneName}, false
}

// AssignZone fills Zone and ZoneName from the station latitude.
func (s *Station) AssignZone() {
	z, _ := ZoneFor(s.Latitude)
	s.Zone = z.ID
	s.ZoneName = z.Name
}

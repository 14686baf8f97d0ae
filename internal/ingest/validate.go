package ingest

import (
	"database/sql"

	"github.com/lox/wxmap/internal/models"
)

const (
	FlagTempOutOfRange   = "temp_out_of_range"
	FlagTempMinAboveMax  = "temp_min_above_max"
	FlagSnowOutOfRange   = "snow_out_of_range"
	FlagPrecipOutOfRange = "precip_out_of_range"
	FlagGroundOutOfRange = "ground_temp_out_of_range"
)

// Plausible limits for Finnish daily observations.
const (
	minTemp   = -60.0
	maxTemp   = 45.0
	maxSnow   = 500.0 // cm
	maxPrecip = 300.0 // mm
)

func ValidateRecord(r *models.DailyRecord) []string {
	var flags []string

	for _, v := range []sql.NullFloat64{r.TempMean, r.TempMin, r.TempMax} {
		if v.Valid && (v.Float64 < minTemp || v.Float64 > maxTemp) {
			flags = append(flags, FlagTempOutOfRange)
			break
		}
	}

	if r.TempMin.Valid && r.TempMax.Valid && r.TempMin.Float64 > r.TempMax.Float64 {
		flags = append(flags, FlagTempMinAboveMax)
	}

	if r.SnowDepth.Valid && (r.SnowDepth.Float64 < 0 || r.SnowDepth.Float64 > maxSnow) {
		flags = append(flags, FlagSnowOutOfRange)
	}

	if r.Precipitation.Valid && (r.Precipitation.Float64 < 0 || r.Precipitation.Float64 > maxPrecip) {
		flags = append(flags, FlagPrecipOutOfRange)
	}

	if r.GroundTempMin.Valid && (r.GroundTempMin.Float64 < minTemp || r.GroundTempMin.Float64 > maxTemp) {
		flags = append(flags, FlagGroundOutOfRange)
	}

	return flags
}

// Sanitize nulls every measurement a flag refers to and returns the flags.
func Sanitize(r *models.DailyRecord) []string {
	flags := ValidateRecord(r)
	for _, f := range flags {
		switch f {
		case FlagTempOutOfRange:
			for _, v := range []*sql.NullFloat64{&r.TempMean, &r.TempMin, &r.TempMax} {
				if v.Valid && (v.Float64 < minTemp || v.Float64 > maxTemp) {
					*v = sql.NullFloat64{}
				}
			}
		case FlagTempMinAboveMax:
			r.TempMin, r.TempMax = sql.NullFloat64{}, sql.NullFloat64{}
		case FlagSnowOutOfRange:
			r.SnowDepth = sql.NullFloat64{}
		case FlagPrecipOutOfRange:
			r.Precipitation = sql.NullFloat64{}
		case FlagGroundOutOfRange:
			r.GroundTempMin = sql.NullFloat64{}
		}
	}
	return flags
}

package interp

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Sample is one station measurement at a location. Geographic samples store
// (lon, lat) in Location; screen samples store (x, y) pixels.
type Sample struct {
	StationID string
	Location  orb.Point
	Value     float64
}

// Valid reports whether v can take part in interpolation.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Value converts an optional measurement to the NaN-for-missing form.
func Value(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Filter drops samples without a usable value and returns how many were dropped.
func Filter(samples []Sample) ([]Sample, int) {
	valid := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if Valid(s.Value) {
			valid = append(valid, s)
		}
	}
	return valid, len(samples) - len(valid)
}

// Metric is a distance function together with the distance under which a
// query is treated as sitting exactly on a sample.
type Metric struct {
	Name     string
	Distance func(a, b orb.Point) float64
	Epsilon  float64
}

var (
	// Geographic measures great-circle kilometres between (lon, lat) points.
	Geographic = Metric{Name: "haversine", Distance: HaversineKm, Epsilon: 1e-10}

	// Screen measures Euclidean pixels between projected points.
	Screen = Metric{Name: "euclidean", Distance: planar.Distance, Epsilon: 1e-4}
)

// EarthRadiusKm is the mean Earth radius used by the grid catalogs.
const EarthRadiusKm = 6371.0

// orbEarthRadiusKm is the equatorial radius orb's geo package measures with.
const orbEarthRadiusKm = 6378.137

// HaversineKm is the great-circle distance in kilometres on a sphere of
// EarthRadiusKm.
func HaversineKm(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b) / 1000 * (EarthRadiusKm / orbEarthRadiusKm)
}

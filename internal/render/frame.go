package render

import (
	"github.com/paulmach/orb"

	"github.com/lox/wxmap/internal/grid"
	"github.com/lox/wxmap/internal/interp"
)

// Projection maps geographic (lon, lat) points to screen pixels.
type Projection interface {
	Project(orb.Point) orb.Point
}

// Point is one station measurement with both of its positions.
type Point struct {
	StationID string
	Geo       orb.Point
	Screen    orb.Point
	Value     float64
}

// Frame is everything one render pass needs. The caller projects station
// positions; the engine never converts between geographic and screen space
// except through Projection.
type Frame struct {
	Metric string
	Points []Point

	// Viewport is the drawable screen rectangle.
	Viewport orb.Bound

	// Region is the screen-space outline used for clipping. Empty means
	// the viewport.
	Region orb.Polygon

	// PixelScale converts nominal marker sizes to pixels. Zero means 1.
	PixelScale float64

	// Projection and GeoBounds let contour sample a geographic grid, or use
	// Precomputed when it is set. Without a projection contour sampling
	// falls back to screen space.
	Projection  Projection
	GeoBounds   orb.Bound
	Precomputed *grid.Grid
}

func (f Frame) pixelScale() float64 {
	if f.PixelScale <= 0 {
		return 1
	}
	return f.PixelScale
}

// clip returns the region, or the viewport as a polygon.
func (f Frame) clip() orb.Polygon {
	if len(f.Region) > 0 && len(f.Region[0]) >= 3 {
		return f.Region
	}
	return orb.Polygon{f.Viewport.ToRing()}
}

// area is the screen rectangle covered by the clip region.
func (f Frame) area() orb.Bound {
	return f.clip().Bound()
}

// valid splits the frame's points into usable ones and a count of the rest.
func (f Frame) valid() ([]Point, int) {
	out := make([]Point, 0, len(f.Points))
	for _, p := range f.Points {
		if interp.Valid(p.Value) {
			out = append(out, p)
		}
	}
	return out, len(f.Points) - len(out)
}

func screenSamples(points []Point) []interp.Sample {
	out := make([]interp.Sample, len(points))
	for i, p := range points {
		out[i] = interp.Sample{StationID: p.StationID, Location: p.Screen, Value: p.Value}
	}
	return out
}

func geoSamples(points []Point) []interp.Sample {
	out := make([]interp.Sample, len(points))
	for i, p := range points {
		out[i] = interp.Sample{StationID: p.StationID, Location: p.Geo, Value: p.Value}
	}
	return out
}

// present keeps points at or above the coverage threshold.
func present(points []Point, threshold float64) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Value >= threshold {
			out = append(out, p)
		}
	}
	return out
}

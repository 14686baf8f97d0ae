package render

import (
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/grid"
	"github.com/lox/wxmap/internal/interp"
)

const (
	contourCells   = 60
	contourOpacity = 0.75
	contourMargin  = 5.0
	contourLevels  = 10
)

func steps(from, to, step float64) []float64 {
	var out []float64
	for v := from; v <= to+step/1e6; v += step {
		out = append(out, v)
	}
	return out
}

var contourThresholds = map[string][]float64{
	colormap.TempMean:      steps(-30, 30, 5),
	colormap.TempMin:       steps(-35, 25, 5),
	colormap.TempMax:       steps(-25, 35, 5),
	colormap.GroundTempMin: steps(-30, 20, 5),
	colormap.SnowDepth:     {1, 5, 10, 20, 30, 50, 70, 100},
	colormap.Precipitation: {0.5, 1, 2, 5, 10, 15, 20, 30},
}

// Thresholds returns the contour levels for a metric whose samples span
// [lo, hi]. Preset levels are kept only within contourMargin of that span;
// metrics without presets get contourLevels even steps from lo to hi.
func Thresholds(metric string, lo, hi float64) []float64 {
	if preset, ok := contourThresholds[metric]; ok {
		var out []float64
		for _, t := range preset {
			if t >= lo-contourMargin && t <= hi+contourMargin {
				out = append(out, t)
			}
		}
		return out
	}
	if hi <= lo {
		return []float64{lo}
	}
	out := make([]float64, contourLevels)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(contourLevels-1)
	}
	return out
}

// Contour slices an IDW grid into filled bands at the metric's thresholds,
// drawn lowest first so higher bands sit on top.
type Contour struct {
	Mapper *colormap.Mapper
	// Smoothing is a box-blur radius in cells applied before slicing.
	// Zero leaves the field as sampled.
	Smoothing int
}

func (s *Contour) Render(f Frame, scale colormap.MetricScale) Output {
	points, _ := f.valid()
	if len(points) == 0 {
		return Output{}
	}
	g, project := s.field(f, points)
	if g == nil {
		return Output{}
	}
	if s.Smoothing > 0 {
		g = g.Smooth(s.Smoothing)
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	lo, hi := floats.Min(values), floats.Max(values)

	out := Output{Clip: f.clip()}
	for _, t := range Thresholds(scale.Key, lo, hi) {
		fill := s.Mapper.ColorFor(scale, t)
		for _, poly := range g.Isorings(t) {
			out.Primitives = append(out.Primitives, Polygon{
				Rings:   projectPolygon(poly, project),
				Fill:    fill,
				Opacity: contourOpacity,
			})
		}
	}
	return out
}

// field picks the grid to contour: a precomputed or freshly sampled
// geographic grid when the frame can project, a screen grid otherwise.
func (s *Contour) field(f Frame, points []Point) (*grid.Grid, func(orb.Point) orb.Point) {
	if f.Projection != nil {
		if f.Precomputed != nil {
			return f.Precomputed, f.Projection.Project
		}
		if hasArea(f.GeoBounds) {
			g := grid.NewSampler(interp.New(interp.Geographic)).
				Sample(f.GeoBounds, contourCells, contourCells, geoSamples(points))
			return g, f.Projection.Project
		}
	}
	area := f.area()
	if !hasArea(area) {
		return nil, nil
	}
	g := grid.NewSampler(interp.New(interp.Screen)).
		Sample(area, contourCells, contourCells, screenSamples(points))
	return g, nil
}

func projectPolygon(poly orb.Polygon, project func(orb.Point) orb.Point) orb.Polygon {
	if project == nil {
		return poly
	}
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		r := make(orb.Ring, len(ring))
		for j, p := range ring {
			r[j] = project(p)
		}
		out[i] = r
	}
	return out
}

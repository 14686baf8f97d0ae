package render

import (
	"image"
	"math"

	"github.com/paulmach/orb"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/grid"
	"github.com/lox/wxmap/internal/interp"
)

// Heat blur tuning. Each pass shrinks the circles and raises their opacity
// so overlapping passes approximate a soft falloff around each station.
const (
	blurPasses        = 4
	blurRadius        = 80.0
	blurRadiusDecay   = 0.2
	blurBaseOpacity   = 0.15
	blurOpacityStep   = 0.05
	coverageFadeShare = 0.3
	coverageAlpha     = 200
)

// Interpolated approximates a continuous field with layered translucent
// circles. Coverage metrics instead drop absent stations and draw the rest
// as one blended region with a soft edge.
type Interpolated struct {
	Mapper *colormap.Mapper
}

func (s *Interpolated) Render(f Frame, scale colormap.MetricScale) Output {
	points, _ := f.valid()
	if scale.Coverage {
		return s.coverage(f, scale, present(points, colormap.CoveragePresence))
	}
	if len(points) == 0 {
		return Output{}
	}

	ps := f.pixelScale()
	fills := make([]colormap.Color, len(points))
	for i, p := range points {
		fills[i] = s.Mapper.ColorFor(scale, p.Value)
	}

	out := Output{Primitives: make([]Primitive, 0, blurPasses*len(points))}
	for pass := 0; pass < blurPasses; pass++ {
		radius := blurRadius * (1 - blurRadiusDecay*float64(pass)) * ps
		opacity := blurBaseOpacity + blurOpacityStep*float64(pass)
		for i, p := range points {
			out.Primitives = append(out.Primitives, Circle{
				Center:    p.Screen,
				Radius:    radius,
				Fill:      fills[i],
				Opacity:   opacity,
				StationID: p.StationID,
			})
		}
	}
	return out
}

func (s *Interpolated) coverage(f Frame, scale colormap.MetricScale, points []Point) Output {
	area := f.area()
	if len(points) == 0 || !hasArea(area) {
		return Output{}
	}

	radius := blurRadius * f.pixelScale()
	inner := radius * (1 - coverageFadeShare)
	samples := screenSamples(points)
	idw := &interp.IDW{Metric: interp.Screen, Power: interp.DefaultPower, MaxDistance: radius}

	rows, cols := grid.AspectResolution(area, rasterCells)
	lattice := grid.New(area, rows, cols)
	mask := regionMask(f.clip(), lattice)

	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	drawn := false
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			q := lattice.Point(row, col)
			nearest := nearestDistance(q, samples)
			if nearest > radius {
				continue
			}
			v, ok := idw.Interpolate(q, samples)
			if !ok {
				continue
			}
			fade := 1.0
			if nearest > inner {
				fade = (radius - nearest) / (radius - inner)
			}
			a := maskAlpha(mask, col, row, uint8(math.Round(coverageAlpha*fade)))
			if a == 0 {
				continue
			}
			img.SetNRGBA(col, row, s.Mapper.ColorFor(scale, v).NRGBA(a))
			drawn = true
		}
	}
	if !drawn {
		return Output{}
	}
	return Output{Primitives: []Primitive{Raster{Image: img, Bounds: pixelBounds(lattice)}}}
}

func nearestDistance(q orb.Point, samples []interp.Sample) float64 {
	best := math.Inf(1)
	for _, s := range samples {
		if d := interp.Screen.Distance(q, s.Location); d < best {
			best = d
		}
	}
	return best
}

package render

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/interp"
)

const (
	hexRadius  = 22.0
	hexOpacity = 0.85
)

// Hexagon tiles the region with pointy-top hexagons. Each hexagon's color
// is an IDW blend of the station colors, weighted from its centre.
type Hexagon struct {
	Mapper *colormap.Mapper
}

func (s *Hexagon) Render(f Frame, scale colormap.MetricScale) Output {
	points, _ := f.valid()
	area := f.area()
	if len(points) == 0 || !hasArea(area) {
		return Output{}
	}

	locs := make([]orb.Point, len(points))
	fills := make([]colormap.Color, len(points))
	for i, p := range points {
		locs[i] = p.Screen
		fills[i] = s.Mapper.ColorFor(scale, p.Value)
	}

	radius := hexRadius * f.pixelScale()
	width := math.Sqrt(3) * radius
	clip := f.clip()
	idw := interp.New(interp.Screen)

	out := Output{Clip: clip}
	for row := 0; ; row++ {
		y := area.Min[1] + float64(row)*1.5*radius
		if y > area.Max[1]+radius {
			break
		}
		x0 := area.Min[0]
		if row%2 == 1 {
			x0 += width / 2
		}
		for x := x0; x <= area.Max[0]+width/2; x += width {
			centre := orb.Point{x, y}
			if !planar.PolygonContains(clip, centre) {
				continue
			}
			weights, ok := idw.Weights(centre, locs)
			if !ok {
				continue
			}
			out.Primitives = append(out.Primitives, Polygon{
				Rings:   orb.Polygon{hexRing(centre, radius)},
				Fill:    blend(fills, weights),
				Opacity: hexOpacity,
			})
		}
	}
	return out
}

func blend(colors []colormap.Color, weights []float64) colormap.Color {
	var r, g, b float64
	for i, w := range weights {
		r += w * float64(colors[i].R)
		g += w * float64(colors[i].G)
		b += w * float64(colors[i].B)
	}
	return colormap.FromChannels(r, g, b)
}

func hexRing(c orb.Point, radius float64) orb.Ring {
	ring := make(orb.Ring, 0, 7)
	for i := 0; i < 6; i++ {
		a := math.Pi / 180 * float64(60*i-30)
		ring = append(ring, orb.Point{c[0] + radius*math.Cos(a), c[1] + radius*math.Sin(a)})
	}
	return append(ring, ring[0])
}

package render

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/interp"
)

const voronoiOpacity = 0.85

// Voronoi fills the part of the region nearest to each station with that
// station's color. Stations sharing a screen position share one cell, drawn
// for the first of them.
type Voronoi struct {
	Mapper *colormap.Mapper
}

func (s *Voronoi) Render(f Frame, scale colormap.MetricScale) Output {
	points, _ := f.valid()
	if len(points) == 0 {
		return Output{}
	}
	subject := openRing(f.clip()[0])
	if len(subject) < 3 {
		return Output{}
	}

	out := Output{Primitives: make([]Primitive, 0, len(points))}
outer:
	for i, p := range points {
		for _, q := range points[:i] {
			if coincident(p.Screen, q.Screen) {
				continue outer
			}
		}
		cell := subject
		for j, q := range points {
			if j == i || coincident(p.Screen, q.Screen) {
				continue
			}
			cell = clipHalfPlane(cell, p.Screen, q.Screen)
			if len(cell) < 3 {
				continue outer
			}
		}
		ring := append(orb.Ring(nil), cell...)
		ring = append(ring, ring[0])
		out.Primitives = append(out.Primitives, Polygon{
			Rings:   orb.Polygon{ring},
			Fill:    s.Mapper.ColorFor(scale, p.Value),
			Opacity: voronoiOpacity,
		})
	}
	return out
}

func coincident(a, b orb.Point) bool {
	return planar.Distance(a, b) < interp.Screen.Epsilon
}

func openRing(r orb.Ring) orb.Ring {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

// clipHalfPlane keeps the part of the open ring that is at least as close
// to a as to b.
func clipHalfPlane(ring orb.Ring, a, b orb.Point) orb.Ring {
	nx, ny := b[0]-a[0], b[1]-a[1]
	c := (b[0]*b[0] + b[1]*b[1] - a[0]*a[0] - a[1]*a[1]) / 2
	side := func(p orb.Point) float64 { return nx*p[0] + ny*p[1] - c }

	out := make(orb.Ring, 0, len(ring)+1)
	prev := ring[len(ring)-1]
	ps := side(prev)
	for _, cur := range ring {
		cs := side(cur)
		switch {
		case cs <= 0 && ps <= 0:
			out = append(out, cur)
		case cs <= 0:
			out = append(out, intersect(prev, cur, ps, cs), cur)
		case ps <= 0:
			out = append(out, intersect(prev, cur, ps, cs))
		}
		prev, ps = cur, cs
	}
	return out
}

func intersect(p, q orb.Point, ps, qs float64) orb.Point {
	t := ps / (ps - qs)
	return orb.Point{p[0] + (q[0]-p[0])*t, p[1] + (q[1]-p[1])*t}
}

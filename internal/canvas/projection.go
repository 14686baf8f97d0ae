package canvas

import (
	"math"

	"github.com/paulmach/orb"
)

// Equirectangular maps (lon, lat) onto a pixel canvas, shrinking longitude
// by the cosine of the middle latitude so shapes keep their local aspect.
// Y grows downwards.
type Equirectangular struct {
	Bounds  orb.Bound
	Width   int
	Height  int
	Padding float64

	scale float64
	kx    float64
}

// NewEquirectangular fits bounds into width pixels and derives the height.
func NewEquirectangular(bounds orb.Bound, width int, padding float64) *Equirectangular {
	midLat := (bounds.Min[1] + bounds.Max[1]) / 2
	kx := math.Cos(midLat * math.Pi / 180)
	dLon := (bounds.Max[0] - bounds.Min[0]) * kx
	dLat := bounds.Max[1] - bounds.Min[1]

	p := &Equirectangular{Bounds: bounds, Width: width, Padding: padding, kx: kx}
	if dLon <= 0 || dLat <= 0 {
		p.Height = width
		return p
	}
	p.scale = (float64(width) - 2*padding) / dLon
	p.Height = int(math.Ceil(dLat*p.scale + 2*padding))
	return p
}

func (p *Equirectangular) Project(pt orb.Point) orb.Point {
	return orb.Point{
		p.Padding + (pt[0]-p.Bounds.Min[0])*p.kx*p.scale,
		p.Padding + (p.Bounds.Max[1]-pt[1])*p.scale,
	}
}

// Viewport is the full pixel rectangle.
func (p *Equirectangular) Viewport() orb.Bound {
	return orb.Bound{Max: orb.Point{float64(p.Width), float64(p.Height)}}
}

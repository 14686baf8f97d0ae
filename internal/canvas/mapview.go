package canvas

import (
	"image"
	"image/color"

	"github.com/paulmach/orb"

	"github.com/lox/wxmap/internal/grid"
	"github.com/lox/wxmap/internal/interp"
	"github.com/lox/wxmap/internal/region"
	"github.com/lox/wxmap/internal/render"
)

var (
	Background   = color.NRGBA{R: 14, G: 22, B: 38, A: 255}
	LandColor    = color.NRGBA{R: 42, G: 52, B: 70, A: 255}
	OutlineColor = color.NRGBA{R: 120, G: 132, B: 150, A: 255}
)

// referenceWidth is the canvas width at which marker sizes are nominal.
const referenceWidth = 600

// NewFrame projects geographic samples and the region outline onto proj.
func NewFrame(metric string, samples []interp.Sample, proj *Equirectangular, outline orb.Polygon, pre *grid.Grid) render.Frame {
	points := make([]render.Point, len(samples))
	for i, s := range samples {
		points[i] = render.Point{
			StationID: s.StationID,
			Geo:       s.Location,
			Screen:    proj.Project(s.Location),
			Value:     s.Value,
		}
	}
	f := render.Frame{
		Metric:      metric,
		Points:      points,
		Viewport:    proj.Viewport(),
		PixelScale:  float64(proj.Width) / referenceWidth,
		Projection:  proj,
		GeoBounds:   proj.Bounds,
		Precomputed: pre,
	}
	if len(outline) > 0 {
		f.Region = region.Project(outline, proj.Project)
	}
	return f
}

// LegendMargin separates an overlaid legend from the canvas edges.
const LegendMargin = 10

// DrawMap paints the land area, the render output over it and a thin
// outline on top. A non-nil legend is placed in the bottom-left corner.
func DrawMap(f render.Frame, out render.Output, legend image.Image) *Canvas {
	vp := f.Viewport
	c := New(int(vp.Max[0]), int(vp.Max[1]), Background)
	if len(f.Region) > 0 {
		c.FillPolygon(f.Region, LandColor)
	}
	c.Draw(out)
	for _, ring := range f.Region {
		c.StrokeRing(ring, 1, OutlineColor)
	}
	if legend != nil {
		y := c.img.Bounds().Dy() - legend.Bounds().Dy() - LegendMargin
		c.Overlay(legend, image.Pt(LegendMargin, max(y, 0)))
	}
	return c
}

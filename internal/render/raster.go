package render

import (
	"image"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/grid"
	"github.com/lox/wxmap/internal/interp"
)

const rasterAlpha = 220

// RasterMode paints a false-color bitmap of the k-nearest IDW field over
// the region, masked to its outline.
type RasterMode struct {
	Mapper *colormap.Mapper

	// K is the neighbour count. Zero means interp.DefaultK.
	K int
}

func (r *RasterMode) Render(f Frame, scale colormap.MetricScale) Output {
	points, _ := f.valid()
	area := f.area()
	if len(points) == 0 || !hasArea(area) {
		return Output{}
	}

	k := r.K
	if k <= 0 {
		k = interp.DefaultK
	}
	rows, cols := grid.AspectResolution(area, rasterCells)
	g := grid.NewSampler(interp.NewNearest(interp.Screen, k)).Sample(area, rows, cols, screenSamples(points))
	mask := regionMask(f.clip(), g)

	img := image.NewNRGBA(image.Rect(0, 0, g.Cols, g.Rows))
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := g.At(row, col)
			if !interp.Valid(v) {
				continue
			}
			a := maskAlpha(mask, col, row, rasterAlpha)
			if a == 0 {
				continue
			}
			img.SetNRGBA(col, row, r.Mapper.ColorFor(scale, v).NRGBA(a))
		}
	}
	return Output{Primitives: []Primitive{Raster{Image: img, Bounds: pixelBounds(g)}}}
}

package render

import (
	"image"

	"github.com/paulmach/orb"
	"golang.org/x/image/vector"

	"github.com/lox/wxmap/internal/grid"
)

// rasterCells is the lattice size along the longer screen axis for the
// bitmap modes.
const rasterCells = 150

func hasArea(b orb.Bound) bool {
	return b.Max[0] > b.Min[0] && b.Max[1] > b.Min[1]
}

// regionMask rasterizes region onto the pixel lattice of g, where pixel
// (c, r) is centred on lattice point (r, c). Returns nil for a degenerate
// lattice.
func regionMask(region orb.Polygon, g *grid.Grid) *image.Alpha {
	dx, dy := g.Step()
	if dx == 0 || dy == 0 {
		return nil
	}
	toPixel := func(p orb.Point) (float32, float32) {
		return float32((p[0]-g.Bounds.Min[0])/dx + 0.5), float32((p[1]-g.Bounds.Min[1])/dy + 0.5)
	}

	ras := vector.NewRasterizer(g.Cols, g.Rows)
	for _, ring := range region {
		if len(ring) < 3 {
			continue
		}
		ras.MoveTo(toPixel(ring[0]))
		for _, p := range ring[1:] {
			ras.LineTo(toPixel(p))
		}
		ras.ClosePath()
	}
	mask := image.NewAlpha(image.Rect(0, 0, g.Cols, g.Rows))
	ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// maskAlpha scales alpha by the mask coverage at pixel (x, y).
func maskAlpha(mask *image.Alpha, x, y int, alpha uint8) uint8 {
	if mask == nil {
		return alpha
	}
	return uint8(uint32(alpha) * uint32(mask.AlphaAt(x, y).A) / 255)
}

// pixelBounds is the screen rectangle covered by g's pixels: the lattice
// bounds grown by half a step on every side.
func pixelBounds(g *grid.Grid) orb.Bound {
	dx, dy := g.Step()
	return orb.Bound{
		Min: orb.Point{g.Bounds.Min[0] - dx/2, g.Bounds.Min[1] - dy/2},
		Max: orb.Point{g.Bounds.Max[0] + dx/2, g.Bounds.Max[1] + dy/2},
	}
}

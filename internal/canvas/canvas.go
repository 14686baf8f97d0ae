// Package canvas draws render output onto bitmaps.
package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/lox/wxmap/internal/render"
)

const circleSegments = 48

// Canvas is an RGBA bitmap that render primitives are composited onto.
type Canvas struct {
	img *image.NRGBA
}

// New returns a canvas filled with background.
func New(width, height int, background color.NRGBA) *Canvas {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	fill(img, img.Bounds(), background)
	return &Canvas{img: img}
}

func (c *Canvas) Image() *image.NRGBA { return c.img }

// FillPolygon paints p in a solid color.
func (c *Canvas) FillPolygon(p orb.Polygon, col color.NRGBA) {
	fillPolygon(c.img, p, col)
}

// Overlay composites img with its top-left corner at at.
func (c *Canvas) Overlay(img image.Image, at image.Point) {
	r := img.Bounds().Sub(img.Bounds().Min).Add(at)
	draw.Draw(c.img, r, img, img.Bounds().Min, draw.Over)
}

// StrokeRing draws the ring as a line of the given pixel width.
func (c *Canvas) StrokeRing(ring orb.Ring, width float64, col color.NRGBA) {
	var segs orb.Polygon
	h := width / 2
	for i := 1; i < len(ring); i++ {
		a, b := ring[i-1], ring[i]
		dx, dy := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*h, dx/l*h
		segs = append(segs, orb.Ring{
			{a[0] + nx, a[1] + ny}, {b[0] + nx, b[1] + ny},
			{b[0] - nx, b[1] - ny}, {a[0] - nx, a[1] - ny},
			{a[0] + nx, a[1] + ny},
		})
	}
	fillPolygon(c.img, segs, col)
}

// Draw composites every primitive in order. When the output has a clip
// outline the primitives are drawn on a separate layer and masked by it.
func (c *Canvas) Draw(out render.Output) {
	dst := c.img
	if len(out.Clip) > 0 {
		dst = image.NewNRGBA(c.img.Bounds())
	}
	for _, p := range out.Primitives {
		switch p := p.(type) {
		case render.Circle:
			fillPolygon(dst, orb.Polygon{circleRing(p.Center, p.Radius)}, p.Fill.NRGBA(opacity(p.Opacity)))
		case render.Polygon:
			fillPolygon(dst, p.Rings, p.Fill.NRGBA(opacity(p.Opacity)))
		case render.Raster:
			drawRaster(dst, p)
		}
	}
	if len(out.Clip) == 0 {
		return
	}
	mask := image.NewAlpha(c.img.Bounds())
	fillPolygon(mask, out.Clip, color.NRGBA{A: 255})
	draw.DrawMask(c.img, c.img.Bounds(), dst, image.Point{}, mask, image.Point{}, draw.Over)
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, c.img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PNG encodes img into a byte slice.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func opacity(o float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, o)) * 255))
}

func fillPolygon(dst draw.Image, p orb.Polygon, col color.NRGBA) {
	b := dst.Bounds()
	ras := vector.NewRasterizer(b.Dx(), b.Dy())
	drawn := false
	for _, ring := range p {
		if len(ring) < 3 {
			continue
		}
		ras.MoveTo(float32(ring[0][0]), float32(ring[0][1]))
		for _, pt := range ring[1:] {
			ras.LineTo(float32(pt[0]), float32(pt[1]))
		}
		ras.ClosePath()
		drawn = true
	}
	if drawn {
		ras.Draw(dst, b, image.NewUniform(col), image.Point{})
	}
}

func circleRing(c orb.Point, r float64) orb.Ring {
	ring := make(orb.Ring, 0, circleSegments+1)
	for i := 0; i < circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		ring = append(ring, orb.Point{c[0] + r*math.Cos(a), c[1] + r*math.Sin(a)})
	}
	return append(ring, ring[0])
}

func drawRaster(dst draw.Image, r render.Raster) {
	if r.Image == nil {
		return
	}
	rect := image.Rect(
		int(math.Floor(r.Bounds.Min[0])), int(math.Floor(r.Bounds.Min[1])),
		int(math.Ceil(r.Bounds.Max[0])), int(math.Ceil(r.Bounds.Max[1])),
	)
	draw.ApproxBiLinear.Scale(dst, rect, r.Image, r.Image.Bounds(), draw.Over, nil)
}

package canvas

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lox/wxmap/internal/colormap"
)

// Legend bar image limits.
const (
	LegendMinWidth  = 120
	LegendMinHeight = 60
	legendPadding   = 10
	legendTitleY    = 16
	legendBarTop    = 24
	legendLabelGap  = 14
)

var (
	legendBackground = color.NRGBA{R: 20, G: 24, B: 36, A: 230}
	legendText       = color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	legendTick       = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
)

// Legend draws a continuous scale bar for the metric: title on top, the
// gradient across the full range, and a labelled tick at every stop.
func Legend(mapper *colormap.Mapper, scale colormap.MetricScale, width, height int) *image.NRGBA {
	width = max(width, LegendMinWidth)
	height = max(height, LegendMinHeight)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	fill(img, img.Bounds(), legendBackground)

	face := basicfont.Face7x13
	title := scale.Name
	if title == "" {
		title = scale.Key
	}
	if scale.Unit != "" {
		title = fmt.Sprintf("%s (%s)", title, scale.Unit)
	}
	drawText(img, title, legendPadding, legendTitleY, legendText, face)

	barLeft, barRight := legendPadding, width-legendPadding
	barBottom := height - legendPadding - legendLabelGap
	span := float64(barRight - barLeft - 1)
	for x := barLeft; x < barRight; x++ {
		t := float64(x-barLeft) / span
		c := mapper.ColorFor(scale, scale.Min+t*(scale.Max-scale.Min)).NRGBA(255)
		for y := legendBarTop; y < barBottom; y++ {
			img.SetNRGBA(x, y, c)
		}
	}

	for _, s := range mapper.LegendGradient(scale) {
		if s.Position < 0 || s.Position > 1 {
			continue
		}
		x := barLeft + int(s.Position*span)
		for y := barBottom; y < barBottom+3; y++ {
			img.SetNRGBA(x, y, legendTick)
		}
		label := strconv.FormatFloat(scale.Min+s.Position*(scale.Max-scale.Min), 'f', -1, 64)
		w := font.MeasureString(face, label).Ceil()
		lx := min(max(x-w/2, 0), width-w)
		drawText(img, label, lx, barBottom+legendLabelGap, legendText, face)
	}
	return img
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// drawText draws text with its baseline at (x, y).
func drawText(img *image.NRGBA, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

package render

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"

	"github.com/paulmach/orb"

	"github.com/lox/wxmap/internal/colormap"
)

// Primitive is a drawable shape with its color already resolved. All
// coordinates are in the frame's screen space.
type Primitive interface {
	primitive()
}

type Circle struct {
	Center    orb.Point
	Radius    float64
	Fill      colormap.Color
	Opacity   float64
	StationID string
}

// Polygon is an outer ring followed by optional holes.
type Polygon struct {
	Rings   orb.Polygon
	Fill    colormap.Color
	Opacity float64
}

// Raster is a bitmap stretched over Bounds. Pixel alpha carries both
// opacity and the region mask.
type Raster struct {
	Image  *image.NRGBA
	Bounds orb.Bound
}

func (Circle) primitive()  {}
func (Polygon) primitive() {}
func (Raster) primitive()  {}

func (c Circle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string         `json:"type"`
		Center    orb.Point      `json:"center"`
		Radius    float64        `json:"radius"`
		Fill      colormap.Color `json:"fill"`
		Opacity   float64        `json:"opacity"`
		StationID string         `json:"station_id,omitempty"`
	}{"circle", c.Center, c.Radius, c.Fill, c.Opacity, c.StationID})
}

func (p Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string         `json:"type"`
		Rings   orb.Polygon    `json:"rings"`
		Fill    colormap.Color `json:"fill"`
		Opacity float64        `json:"opacity"`
	}{"polygon", p.Rings, p.Fill, p.Opacity})
}

// MarshalJSON embeds the bitmap as a base64 PNG.
func (r Raster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	w, h := 0, 0
	if r.Image != nil {
		if err := png.Encode(&buf, r.Image); err != nil {
			return nil, fmt.Errorf("encode raster: %w", err)
		}
		w, h = r.Image.Bounds().Dx(), r.Image.Bounds().Dy()
	}
	return json.Marshal(struct {
		Type   string     `json:"type"`
		Bounds [4]float64 `json:"bounds"`
		Width  int        `json:"width"`
		Height int        `json:"height"`
		PNG    string     `json:"png"`
	}{
		Type:   "raster",
		Bounds: [4]float64{r.Bounds.Min[0], r.Bounds.Min[1], r.Bounds.Max[0], r.Bounds.Max[1]},
		Width:  w,
		Height: h,
		PNG:    base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

// Output is the result of one render pass.
type Output struct {
	Mode       Mode        `json:"mode"`
	Metric     string      `json:"metric,omitempty"`
	Primitives []Primitive `json:"primitives"`

	// Clip, when set, must be applied to every primitive when drawing.
	Clip orb.Polygon `json:"clip,omitempty"`

	// Excluded counts samples dropped for missing values.
	Excluded int `json:"excluded"`
}

func (o Output) Empty() bool { return len(o.Primitives) == 0 }

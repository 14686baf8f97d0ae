package colormap

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrInvalidColor = errors.New("invalid color")

// Color is an opaque 8-bit RGB color. It is the only color representation
// used inside the render pipeline; text forms exist only at the edges.
type Color struct {
	R, G, B uint8
}

// NoData is returned for missing values and unknown metrics. No built-in
// scale can produce it from a finite value.
var NoData = Color{R: 0x99, G: 0x99, B: 0x99}

// ParseColor accepts "#rrggbb", "#rgb" and "rgb(r, g, b)".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		var ch [3]uint8
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < 0 || n > 255 {
				return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
			}
			ch[i] = uint8(n)
		}
		return Color{R: ch[0], G: ch[1], B: ch[2]}, nil
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidColor, s, err)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// MustParseColor is ParseColor for static tables.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Lerp blends a towards b by t, rounding each channel independently.
func Lerp(a, b Color, t float64) Color {
	return Color{
		R: lerpChannel(a.R, b.R, t),
		G: lerpChannel(a.G, b.G, t),
		B: lerpChannel(a.B, b.B, t),
	}
}

func lerpChannel(a, b uint8, t float64) uint8 {
	return channel(float64(a) + (float64(b)-float64(a))*t)
}

// channel rounds and clamps a float channel value into a byte.
func channel(v float64) uint8 {
	v = math.Round(v)
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// FromChannels builds a color from float channels, rounding each one.
func FromChannels(r, g, b float64) Color {
	return Color{R: channel(r), G: channel(g), B: channel(b)}
}

// Hex returns the "#rrggbb" form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String returns the "rgb(r, g, b)" form.
func (c Color) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// NRGBA converts to an image color with the given alpha.
func (c Color) NRGBA(alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

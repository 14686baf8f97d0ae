package render

import "fmt"

// Mode selects how a frame is drawn.
type Mode int

const (
	ModeStations Mode = iota
	ModeInterpolated
	ModeVoronoi
	ModeHexagon
	ModeContour
	ModeRaster
	modeCount
)

var modeNames = [modeCount]string{
	ModeStations:     "stations",
	ModeInterpolated: "interpolated",
	ModeVoronoi:      "voronoi",
	ModeHexagon:      "hexagon",
	ModeContour:      "contour",
	ModeRaster:       "raster",
}

// Modes lists every mode in declaration order.
func Modes() []Mode {
	out := make([]Mode, 0, modeCount)
	for m := Mode(0); m < modeCount; m++ {
		out = append(out, m)
	}
	return out
}

// ParseMode resolves a mode name. Names are case-sensitive.
func ParseMode(s string) (Mode, bool) {
	for m, name := range modeNames {
		if name == s {
			return Mode(m), true
		}
	}
	return 0, false
}

func (m Mode) Valid() bool { return m >= 0 && m < modeCount }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid render mode %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, ok := ParseMode(string(b))
	if !ok {
		return fmt.Errorf("unknown render mode %q", b)
	}
	*m = parsed
	return nil
}

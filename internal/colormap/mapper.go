package colormap

import "math"

// Mapper resolves metric values to colors using a scale table. Create one at
// startup and pass it to whatever needs colors.
type Mapper struct {
	table *Table
}

func NewMapper(table *Table) *Mapper {
	if table == nil {
		table = DefaultTable()
	}
	return &Mapper{table: table}
}

// Scale looks up a metric scale by key.
func (m *Mapper) Scale(key string) (MetricScale, bool) {
	return m.table.Lookup(key)
}

// Metrics lists the known metric keys.
func (m *Mapper) Metrics() []string {
	return m.table.Keys()
}

// IsValue reports whether v is a usable measurement.
func IsValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ColorFor maps v onto the scale gradient. Missing values give NoData;
// out-of-range values take the boundary color.
func (m *Mapper) ColorFor(scale MetricScale, v float64) Color {
	if !IsValue(v) || len(scale.Stops) == 0 {
		return NoData
	}
	v = scale.Clamp(v)

	stops := scale.Stops
	if v <= stops[0].Value {
		return stops[0].Color
	}
	for i := 1; i < len(stops); i++ {
		hi := stops[i]
		if v > hi.Value {
			continue
		}
		if v == hi.Value {
			return hi.Color
		}
		lo := stops[i-1]
		var t float64
		if span := hi.Value - lo.Value; span != 0 {
			t = (v - lo.Value) / span
		}
		return Lerp(lo.Color, hi.Color, t)
	}
	return stops[len(stops)-1].Color
}

// ColorForPtr treats a nil value as missing.
func (m *Mapper) ColorForPtr(scale MetricScale, v *float64) Color {
	if v == nil {
		return NoData
	}
	return m.ColorFor(scale, *v)
}

// ColorForMetric resolves the scale by key first. Unknown keys give NoData.
func (m *Mapper) ColorForMetric(key string, v float64) Color {
	scale, ok := m.table.Lookup(key)
	if !ok {
		return NoData
	}
	return m.ColorFor(scale, v)
}

// Normalize maps v to [0,1] across the scale range. A zero-width range
// gives 0.5, as does a missing value.
func (m *Mapper) Normalize(scale MetricScale, v float64) float64 {
	span := scale.Max - scale.Min
	if span == 0 || !IsValue(v) {
		return 0.5
	}
	return (scale.Clamp(v) - scale.Min) / span
}

// LegendStop is one color anchor of a continuous legend bar.
type LegendStop struct {
	Position float64 `json:"position"`
	Color    Color   `json:"color"`
}

// LegendGradient places every stop along [0,1] of the scale range.
func (m *Mapper) LegendGradient(scale MetricScale) []LegendStop {
	out := make([]LegendStop, 0, len(scale.Stops))
	span := scale.Max - scale.Min
	for _, s := range scale.Stops {
		pos := 0.5
		if span != 0 {
			pos = (s.Value - scale.Min) / span
		}
		out = append(out, LegendStop{Position: pos, Color: s.Color})
	}
	return out
}

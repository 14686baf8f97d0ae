package colormap

import (
	"math"
	"testing"
)

func newTestMapper(t *testing.T) *Mapper {
	t.Helper()
	table, err := NewTable(BuiltinScales()...)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return NewMapper(table)
}

func mustScale(t *testing.T, m *Mapper, key string) MetricScale {
	t.Helper()
	s, ok := m.Scale(key)
	if !ok {
		t.Fatalf("scale %s not found", key)
	}
	return s
}

func TestColorForClampsOutOfRange(t *testing.T) {
	m := newTestMapper(t)
	for _, key := range m.Metrics() {
		t.Run(key, func(t *testing.T) {
			s := mustScale(t, m, key)
			if got, want := m.ColorFor(s, s.Min-50), m.ColorFor(s, s.Min); got != want {
				t.Errorf("below min: got %v, want %v", got, want)
			}
			if got, want := m.ColorFor(s, s.Max+50), m.ColorFor(s, s.Max); got != want {
				t.Errorf("above max: got %v, want %v", got, want)
			}
		})
	}
}

func TestColorForExactAtStops(t *testing.T) {
	m := newTestMapper(t)
	for _, key := range m.Metrics() {
		s := mustScale(t, m, key)
		for i, st := range s.Stops {
			if got := m.ColorFor(s, st.Value); got != st.Color {
				t.Errorf("%s stop %d (%v): got %v, want %v", key, i, st.Value, got, st.Color)
			}
		}
	}
}

func TestColorForMidpointIsChannelMean(t *testing.T) {
	m := newTestMapper(t)
	for _, key := range m.Metrics() {
		s := mustScale(t, m, key)
		for i := 1; i < len(s.Stops); i++ {
			lo, hi := s.Stops[i-1], s.Stops[i]
			got := m.ColorFor(s, (lo.Value+hi.Value)/2)
			check := func(name string, got, a, b uint8) {
				mean := (float64(a) + float64(b)) / 2
				if math.Abs(float64(got)-mean) > 0.5 {
					t.Errorf("%s segment %d %s = %d, want about %.1f", key, i, name, got, mean)
				}
			}
			check("R", got.R, lo.Color.R, hi.Color.R)
			check("G", got.G, lo.Color.G, hi.Color.G)
			check("B", got.B, lo.Color.B, hi.Color.B)
		}
	}
}

func TestColorForNoData(t *testing.T) {
	m := newTestMapper(t)
	s := mustScale(t, m, TempMean)

	nan := m.ColorFor(s, math.NaN())
	null := m.ColorForPtr(s, nil)
	inf := m.ColorFor(s, math.Inf(1))
	if nan != NoData || null != NoData || inf != NoData {
		t.Fatalf("missing values: NaN=%v nil=%v Inf=%v, want %v", nan, null, inf, NoData)
	}

	for _, key := range m.Metrics() {
		s := mustScale(t, m, key)
		step := (s.Max - s.Min) / 5000
		for v := s.Min; v <= s.Max; v += step {
			if m.ColorFor(s, v) == NoData {
				t.Fatalf("%s: finite value %v produced the no-data color", key, v)
			}
		}
	}
}

func TestColorForTempMeanScenario(t *testing.T) {
	m := newTestMapper(t)
	s := mustScale(t, m, TempMean)

	lo := MustParseColor("#3182bd")
	hi := MustParseColor("#deebf7")
	want := Lerp(lo, hi, 0.75)
	if got := m.ColorFor(s, -5); got != want {
		t.Errorf("ColorFor(-5) = %v, want %v", got, want)
	}
	if want != (Color{R: 179, G: 209, B: 233}) {
		t.Errorf("blend at 0.75 = %v", want)
	}
}

func TestColorForMetricUnknownKey(t *testing.T) {
	m := newTestMapper(t)
	if got := m.ColorForMetric("wind_gust", 12); got != NoData {
		t.Errorf("unknown metric: got %v, want NoData", got)
	}
	s := mustScale(t, m, Precipitation)
	if got, want := m.ColorForMetric(Precipitation, 3), m.ColorFor(s, 3); got != want {
		t.Errorf("known metric: got %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	m := newTestMapper(t)
	s := mustScale(t, m, SnowDepth)

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"min", 0, 0},
		{"max", 100, 1},
		{"middle", 25, 0.25},
		{"below clamps", -10, 0},
		{"above clamps", 250, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Normalize(s, tt.value); got != tt.want {
				t.Errorf("Normalize(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}

	flat := MetricScale{Key: "flat", Min: 3, Max: 3}
	if got := m.Normalize(flat, 3); got != 0.5 {
		t.Errorf("zero-width range: got %v, want 0.5", got)
	}
}

func TestLegendGradientSnowDepth(t *testing.T) {
	m := newTestMapper(t)
	s := mustScale(t, m, SnowDepth)

	legend := m.LegendGradient(s)
	if len(legend) != 7 {
		t.Fatalf("len(legend) = %d, want 7", len(legend))
	}
	if legend[0].Position != 0 {
		t.Errorf("first position = %v, want 0", legend[0].Position)
	}
	if legend[6].Position != 1 {
		t.Errorf("last position = %v, want 1", legend[6].Position)
	}
	for i := 1; i < len(legend); i++ {
		if legend[i].Position <= legend[i-1].Position {
			t.Errorf("position %d (%v) not above %d (%v)", i, legend[i].Position, i-1, legend[i-1].Position)
		}
	}
}

func TestBuiltinScalesStopCounts(t *testing.T) {
	for _, s := range BuiltinScales() {
		if n := len(s.Stops); n < 6 || n > 7 {
			t.Errorf("%s has %d stops, want 6-7", s.Key, n)
		}
		if err := s.Validate(); err != nil {
			t.Errorf("%s: %v", s.Key, err)
		}
	}
}

func TestNewTableRejectsBadScales(t *testing.T) {
	tests := []struct {
		name  string
		scale MetricScale
	}{
		{"too few stops", MetricScale{Key: "a", Min: 0, Max: 1, Stops: []Stop{{0, Color{}}}}},
		{"non increasing", MetricScale{Key: "b", Min: 0, Max: 1, Stops: []Stop{{0, Color{}}, {0, Color{}}, {1, Color{}}}}},
		{"gap at min", MetricScale{Key: "c", Min: 0, Max: 1, Stops: []Stop{{0.2, Color{}}, {1, Color{}}}}},
		{"gap at max", MetricScale{Key: "d", Min: 0, Max: 1, Stops: []Stop{{0, Color{}}, {0.8, Color{}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTable(tt.scale); err == nil {
				t.Error("expected error")
			}
		})
	}
}

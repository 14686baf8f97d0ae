package grid

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/lox/wxmap/internal/interp"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleGrid() *Grid {
	g := New(FinlandBounds, 3, 3)
	for i := range g.Values {
		g.Values[i] = float64(i) - 4
	}
	g.Values[4] = math.NaN()
	return g
}

func TestCatalogRoundTrip(t *testing.T) {
	c := NewCatalog()
	c.Add(day("2024-01-08"), "temp_mean", sampleGrid())
	c.Add(day("2024-01-01"), "temp_mean", sampleGrid())
	c.Add(day("2024-01-01"), "snow_depth", sampleGrid())

	var buf bytes.Buffer
	if err := c.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.Contains(buf.String(), `"lat_min":59.5`) || !strings.Contains(buf.String(), "null") {
		t.Errorf("unexpected encoding: %s", buf.String())
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 3 {
		t.Errorf("Len = %d, want 3", loaded.Len())
	}
	g, ok := loaded.Lookup(day("2024-01-01"), "snow_depth")
	if !ok {
		t.Fatal("Lookup missed")
	}
	if !g.Equal(sampleGrid()) {
		t.Errorf("grid changed: %v", g.Values)
	}
	dates := loaded.Dates("temp_mean")
	if len(dates) != 2 || !dates[0].Equal(day("2024-01-01")) {
		t.Errorf("Dates = %v", dates)
	}
}

func TestCatalogGzipFile(t *testing.T) {
	c := NewCatalog()
	c.Add(day("2023-12-24"), "precipitation", sampleGrid())

	for _, name := range []string{"grids.json", "grids.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := c.SaveFile(path); err != nil {
				t.Fatalf("SaveFile: %v", err)
			}
			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if _, ok := loaded.Lookup(day("2023-12-24"), "precipitation"); !ok {
				t.Error("entry missing after reload")
			}
		})
	}
}

func TestCatalogNearest(t *testing.T) {
	c := NewCatalog()
	c.Add(day("2024-01-01"), "temp_mean", sampleGrid())
	c.Add(day("2024-01-08"), "temp_mean", sampleGrid())

	tests := []struct {
		name   string
		query  string
		window int
		want   string
	}{
		{"exact", "2024-01-08", 3, "2024-01-08"},
		{"closer earlier", "2024-01-04", 3, "2024-01-01"},
		{"closer later", "2024-01-05", 3, "2024-01-08"},
		{"before first", "2023-12-30", 3, "2024-01-01"},
		{"outside window", "2024-01-04", 2, ""},
		{"after last", "2024-01-20", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, ok := c.Nearest(day(tt.query), "temp_mean", tt.window)
			if tt.want == "" {
				if ok {
					t.Errorf("got %v, want none", got)
				}
				return
			}
			if !ok || got.Format(DateLayout) != tt.want {
				t.Errorf("got %v (ok=%v), want %s", got, ok, tt.want)
			}
		})
	}

	if _, _, ok := c.Nearest(day("2024-01-01"), "snow_depth", 3); ok {
		t.Error("unknown metric should miss")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short values", `[{"date":"2024-01-01","metric":"temp_mean","resolution":2,"bounds":{"lat_min":0,"lat_max":1,"lon_min":0,"lon_max":1},"values":[1,2,3]}]`},
		{"bad date", `[{"date":"01/01/2024","metric":"temp_mean","resolution":2,"bounds":{"lat_min":0,"lat_max":1,"lon_min":0,"lon_max":1},"values":[1,2,3,4]}]`},
		{"empty bounds", `[{"date":"2024-01-01","metric":"temp_mean","resolution":2,"bounds":{"lat_min":1,"lat_max":1,"lon_min":0,"lon_max":1},"values":[1,2,3,4]}]`},
		{"no metric", `[{"date":"2024-01-01","resolution":2,"bounds":{"lat_min":0,"lat_max":1,"lon_min":0,"lon_max":1},"values":[1,2,3,4]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.body))
			if !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("err = %v, want ErrInvalidGrid", err)
			}
		})
	}

	if _, err := Load(strings.NewReader("{")); err == nil {
		t.Error("malformed JSON should fail")
	}
}

type fakeSource struct {
	dates   []time.Time
	samples map[string][]interp.Sample
}

func (f *fakeSource) SampleDates(context.Context) ([]time.Time, error) { return f.dates, nil }

func (f *fakeSource) Samples(_ context.Context, date time.Time, metric string) ([]interp.Sample, error) {
	return f.samples[date.Format(DateLayout)+"/"+metric], nil
}

func TestGenerate(t *testing.T) {
	corner := interp.Sample{StationID: "sw", Location: FinlandBounds.Min, Value: 1.234}
	src := &fakeSource{
		dates: []time.Time{day("2024-01-01"), day("2024-01-02"), day("2024-01-08"), day("2024-01-10")},
		samples: map[string][]interp.Sample{
			"2024-01-01/temp_mean": {corner},
			"2024-01-08/temp_mean": {corner, {Location: orb.Point{25, 65}, Value: math.NaN()}},
		},
	}
	opts := DefaultGenerateOptions([]string{"temp_mean", "snow_depth"})
	opts.Resolution = 10

	c, err := Generate(context.Background(), src, opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Len() != 4 {
		t.Fatalf("Len = %d, want 4 (two dates x two metrics)", c.Len())
	}
	if _, ok := c.Lookup(day("2024-01-02"), "temp_mean"); ok {
		t.Error("off-interval date was sampled")
	}

	g, ok := c.Lookup(day("2024-01-01"), "temp_mean")
	if !ok {
		t.Fatal("missing first grid")
	}
	if got := g.At(0, 0); got != 1.2 {
		t.Errorf("station cell = %v, want 1.2", got)
	}
	if got := g.At(9, 9); !math.IsNaN(got) {
		t.Errorf("cell beyond radius = %v, want no data", got)
	}

	snow, _ := c.Lookup(day("2024-01-08"), "snow_depth")
	if _, _, ok := snow.Range(); ok {
		t.Error("metric without samples should be all no data")
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{dates: []time.Time{day("2024-01-01")}}
	if _, err := Generate(ctx, src, DefaultGenerateOptions([]string{"temp_mean"})); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

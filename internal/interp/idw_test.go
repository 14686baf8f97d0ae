package interp

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
)

func randomSamples(r *rand.Rand, n int, spread float64) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{
			Location: orb.Point{r.Float64() * spread, r.Float64() * spread},
			Value:    r.Float64()*60 - 30,
		}
	}
	return samples
}

func sampleRange(samples []Sample) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		lo = math.Min(lo, s.Value)
		hi = math.Max(hi, s.Value)
	}
	return lo, hi
}

func TestInterpolateExactMatch(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	samples := randomSamples(r, 40, 500)

	for _, w := range []*IDW{New(Screen), NewNearest(Screen, 5)} {
		for i, s := range samples {
			got, ok := w.Estimate(s.Location, samples)
			if !ok {
				t.Fatalf("sample %d: no estimate", i)
			}
			if got != s.Value {
				t.Errorf("K=%d sample %d: got %v, want %v", w.K, i, got, s.Value)
			}
		}
	}
}

func TestInterpolateExactMatchFirstWins(t *testing.T) {
	at := orb.Point{10, 10}
	samples := []Sample{
		{Location: orb.Point{0, 0}, Value: 1},
		{Location: at, Value: 7},
		{Location: at, Value: 9},
	}
	got, ok := New(Screen).Interpolate(at, samples)
	if !ok || got != 7 {
		t.Errorf("got %v (ok=%v), want 7", got, ok)
	}
}

func TestInterpolateWithinSampleBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	w := New(Screen)
	for trial := 0; trial < 200; trial++ {
		samples := randomSamples(r, 1+r.IntN(30), 100)
		lo, hi := sampleRange(samples)
		q := orb.Point{r.Float64()*140 - 20, r.Float64()*140 - 20}

		got, ok := w.Interpolate(q, samples)
		if !ok {
			t.Fatalf("trial %d: no estimate", trial)
		}
		if got < lo || got > hi {
			t.Fatalf("trial %d: %v outside [%v, %v]", trial, got, lo, hi)
		}
	}
}

func TestEqualValuesExact(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 10))
	for _, v := range []float64{0.1, -3.5, 12.7} {
		samples := randomSamples(r, 30, 8)
		for i := range samples {
			samples[i].Location = orb.Point{20 + samples[i].Location[0], 60 + samples[i].Location[1]}
			samples[i].Value = v
		}
		for _, w := range []*IDW{New(Geographic), NewNearest(Geographic, 5)} {
			for i := 0; i < 150; i++ {
				q := orb.Point{18 + r.Float64()*14, 59 + r.Float64()*11}
				if got, ok := w.Estimate(q, samples); !ok || got != v {
					t.Fatalf("K=%d value %v at %v: got %v (ok=%v)", w.K, v, q, got, ok)
				}
			}
		}
	}
}

func TestInterpolateEdgeCases(t *testing.T) {
	w := New(Geographic)
	q := orb.Point{25, 62}

	if _, ok := w.Interpolate(q, nil); ok {
		t.Error("empty sample set should give no estimate")
	}

	single := []Sample{{Location: orb.Point{24, 60}, Value: -3.5}}
	for _, p := range []orb.Point{{20, 60}, {30, 69}, q} {
		if got, ok := w.Interpolate(p, single); !ok || got != -3.5 {
			t.Errorf("single sample at %v: got %v (ok=%v)", p, got, ok)
		}
	}

	coincident := []Sample{
		{Location: orb.Point{24, 60}, Value: 4},
		{Location: orb.Point{24, 60}, Value: 4},
		{Location: orb.Point{24, 60}, Value: 4},
	}
	if got, ok := w.Interpolate(q, coincident); !ok || got != 4 {
		t.Errorf("coincident samples: got %v (ok=%v)", got, ok)
	}

	invalid := []Sample{
		{Location: orb.Point{24, 60}, Value: math.NaN()},
		{Location: orb.Point{26, 63}, Value: math.Inf(-1)},
	}
	if _, ok := w.Interpolate(q, invalid); ok {
		t.Error("all-invalid samples should give no estimate")
	}
}

func TestInterpolateMaxDistance(t *testing.T) {
	w := New(Geographic)
	w.MaxDistance = 150

	samples := []Sample{
		{Location: orb.Point{25, 60}, Value: 1},
		{Location: orb.Point{25, 70}, Value: 100},
	}
	got, ok := w.Interpolate(orb.Point{25, 60.5}, samples)
	if !ok || got != 1 {
		t.Errorf("near query: got %v (ok=%v), want 1", got, ok)
	}
	if _, ok := w.Interpolate(orb.Point{25, 65}, samples); ok {
		t.Error("query farther than radius from every sample should give no estimate")
	}
}

func TestInterpolateScenarioMidpoint(t *testing.T) {
	a := Sample{Location: orb.Point{25, 60}, Value: -5}
	b := Sample{Location: orb.Point{27, 65}, Value: 10}
	mid := orb.Point{26, 62.5}

	got, ok := New(Geographic).Interpolate(mid, []Sample{a, b})
	if !ok {
		t.Fatal("no estimate")
	}
	if got <= -5 || got >= 10 {
		t.Fatalf("midpoint value %v not strictly between -5 and 10", got)
	}

	da := HaversineKm(mid, a.Location)
	db := HaversineKm(mid, b.Location)
	if da < db && got >= 2.5 {
		t.Errorf("nearer to a (%.1f < %.1f km) but value %v leans to b", da, db, got)
	}
	if db < da && got <= 2.5 {
		t.Errorf("nearer to b (%.1f < %.1f km) but value %v leans to a", db, da, got)
	}
}

func TestNearestMatchesFullScanUpToK(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	full := New(Screen)
	near := NewNearest(Screen, DefaultK)

	for trial := 0; trial < 50; trial++ {
		samples := randomSamples(r, 1+r.IntN(DefaultK), 300)
		q := orb.Point{r.Float64() * 300, r.Float64() * 300}
		a, okA := full.Interpolate(q, samples)
		b, okB := near.Nearest(q, samples)
		if okA != okB || a != b {
			t.Fatalf("trial %d: full=%v (%v) nearest=%v (%v)", trial, a, okA, b, okB)
		}
	}
}

func TestNearestConvergesOnClusteredSamples(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	full := New(Screen)
	near := NewNearest(Screen, DefaultK)

	for trial := 0; trial < 20; trial++ {
		q := orb.Point{500, 500}
		var samples []Sample
		for i := 0; i < DefaultK; i++ {
			angle := r.Float64() * 2 * math.Pi
			dist := 0.5 + r.Float64()*2
			samples = append(samples, Sample{
				Location: orb.Point{q[0] + dist*math.Cos(angle), q[1] + dist*math.Sin(angle)},
				Value:    r.Float64() * 10,
			})
		}
		for i := 0; i < 300; i++ {
			samples = append(samples, Sample{
				Location: orb.Point{r.Float64() * 100, 2000 + r.Float64()*100},
				Value:    -20 + r.Float64()*40,
			})
		}
		r.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })

		a, _ := full.Interpolate(q, samples)
		b, _ := near.Nearest(q, samples)
		if math.Abs(a-b) > 0.01 {
			t.Fatalf("trial %d: full=%v nearest=%v", trial, a, b)
		}
	}
}

func TestNearestKeepsClosest(t *testing.T) {
	samples := []Sample{
		{Location: orb.Point{1, 0}, Value: 10},
		{Location: orb.Point{100, 0}, Value: 1000},
		{Location: orb.Point{0, 1}, Value: 10},
		{Location: orb.Point{0, 100}, Value: 1000},
	}
	w := NewNearest(Screen, 2)
	got, ok := w.Nearest(orb.Point{0, 0}, samples)
	if !ok || got != 10 {
		t.Errorf("got %v (ok=%v), want 10 from the two nearest samples", got, ok)
	}
}

func TestWeights(t *testing.T) {
	w := New(Screen)
	locs := []orb.Point{{0, 0}, {10, 0}, {0, 20}}

	weights, ok := w.Weights(orb.Point{3, 4}, locs)
	if !ok {
		t.Fatal("no weights")
	}
	var sum float64
	for _, v := range weights {
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("weights sum to %v, want 1", sum)
	}
	if weights[0] <= weights[1] || weights[0] <= weights[2] {
		t.Errorf("nearest location should dominate: %v", weights)
	}

	exact, ok := w.Weights(orb.Point{10, 0}, locs)
	if !ok || exact[1] != 1 || exact[0] != 0 || exact[2] != 0 {
		t.Errorf("exact match weights = %v", exact)
	}

	if _, ok := w.Weights(orb.Point{}, nil); ok {
		t.Error("no locations should give no weights")
	}
}

func TestFilter(t *testing.T) {
	samples := []Sample{
		{StationID: "a", Value: 1},
		{StationID: "b", Value: math.NaN()},
		{StationID: "c", Value: 0},
		{StationID: "d", Value: Value(nil)},
	}
	valid, excluded := Filter(samples)
	if excluded != 2 {
		t.Errorf("excluded = %d, want 2", excluded)
	}
	if len(valid) != 2 || valid[0].StationID != "a" || valid[1].StationID != "c" {
		t.Errorf("valid = %+v", valid)
	}
}

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name string
		a, b orb.Point
		want float64
	}{
		{"same point", orb.Point{25, 62}, orb.Point{25, 62}, 0},
		{"one degree of latitude", orb.Point{25, 60}, orb.Point{25, 61}, EarthRadiusKm * math.Pi / 180},
		{"quarter meridian", orb.Point{0, 0}, orb.Point{0, 90}, EarthRadiusKm * math.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HaversineKm(tt.a, tt.b); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("HaversineKm = %v, want %v", got, tt.want)
			}
		})
	}
}

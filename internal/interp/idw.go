package interp

import (
	"container/heap"
	"math"

	"github.com/paulmach/orb"
)

const (
	DefaultPower = 2.0

	// DefaultK is the neighbour count used by Nearest.
	DefaultK = 15
)

// Estimator estimates a field value at a query point. ok is false when
// there is nothing to estimate from; callers must treat that as no data.
type Estimator interface {
	Estimate(q orb.Point, samples []Sample) (value float64, ok bool)
}

// IDW is inverse distance weighting: each sample contributes with weight
// 1/d^Power. A query within Metric.Epsilon of a sample returns that sample's
// value (first match in sample order).
type IDW struct {
	Metric Metric
	Power  float64

	// K bounds the neighbours used by Nearest and Estimate. Zero means all.
	K int

	// MaxDistance ignores samples farther than this. Zero means unlimited.
	MaxDistance float64
}

// New returns an exact (full scan) IDW with power 2.
func New(metric Metric) *IDW {
	return &IDW{Metric: metric, Power: DefaultPower}
}

// NewNearest returns an IDW that only uses the k nearest samples.
func NewNearest(metric Metric, k int) *IDW {
	return &IDW{Metric: metric, Power: DefaultPower, K: k}
}

func (w *IDW) power() float64 {
	if w.Power <= 0 {
		return DefaultPower
	}
	return w.Power
}

func (w *IDW) inRange(d float64) bool {
	return w.MaxDistance <= 0 || d <= w.MaxDistance
}

// Estimate uses Nearest when K is set, Interpolate otherwise.
func (w *IDW) Estimate(q orb.Point, samples []Sample) (float64, bool) {
	if w.K > 0 {
		return w.Nearest(q, samples)
	}
	return w.Interpolate(q, samples)
}

// Interpolate scans every sample.
func (w *IDW) Interpolate(q orb.Point, samples []Sample) (float64, bool) {
	p := w.power()
	var acc accumulator
	for _, s := range samples {
		if !Valid(s.Value) {
			continue
		}
		d := w.Metric.Distance(q, s.Location)
		if d < w.Metric.Epsilon {
			return s.Value, true
		}
		if !w.inRange(d) {
			continue
		}
		acc.add(1/math.Pow(d, p), s.Value)
	}
	return acc.result()
}

// Nearest applies IDW to the K closest samples only. This is an
// approximation: the tail beyond the K-th neighbour is dropped, which keeps
// the per-query cost at O(n log K) when a render pass issues tens of
// thousands of queries. With K or fewer valid samples the result is exactly
// Interpolate's.
func (w *IDW) Nearest(q orb.Point, samples []Sample) (float64, bool) {
	if w.K <= 0 || countValid(samples) <= w.K {
		return w.Interpolate(q, samples)
	}

	h := make(maxHeap, 0, w.K)
	for i, s := range samples {
		if !Valid(s.Value) {
			continue
		}
		d := w.Metric.Distance(q, s.Location)
		if d < w.Metric.Epsilon {
			return s.Value, true
		}
		if !w.inRange(d) {
			continue
		}
		h.offer(neighbour{index: i, dist: d}, w.K)
	}
	if len(h) == 0 {
		return math.NaN(), false
	}

	p := w.power()
	var acc accumulator
	for _, n := range h {
		acc.add(1/math.Pow(n.dist, p), samples[n.index].Value)
	}
	return acc.result()
}

// accumulator sums weighted offsets from the first contributing value, so a
// single sample or a set of equal values comes back exactly, and clamps the
// estimate to the contributing range.
type accumulator struct {
	n        int
	base     float64
	lo, hi   float64
	num, den float64
}

func (a *accumulator) add(wt, v float64) {
	if a.n == 0 {
		a.base, a.lo, a.hi = v, v, v
	}
	a.n++
	a.lo, a.hi = math.Min(a.lo, v), math.Max(a.hi, v)
	a.num += wt * (v - a.base)
	a.den += wt
}

func (a *accumulator) result() (float64, bool) {
	switch {
	case a.n == 0 || a.den == 0 || math.IsInf(a.den, 0):
		return math.NaN(), false
	case a.lo == a.hi:
		return a.base, true
	}
	v := a.base + a.num/a.den
	if math.IsNaN(v) {
		return math.NaN(), false
	}
	return math.Max(a.lo, math.Min(a.hi, v)), true
}

// Weights returns the normalised IDW weight of every location, for blending
// quantities that are not scalars (colors, for one). An exact match gets
// weight 1 and every other location 0.
func (w *IDW) Weights(q orb.Point, locations []orb.Point) ([]float64, bool) {
	if len(locations) == 0 {
		return nil, false
	}
	p := w.power()
	weights := make([]float64, len(locations))
	var total float64
	for i, loc := range locations {
		d := w.Metric.Distance(q, loc)
		if d < w.Metric.Epsilon {
			clear(weights)
			weights[i] = 1
			return weights, true
		}
		if !w.inRange(d) {
			continue
		}
		weights[i] = 1 / math.Pow(d, p)
		total += weights[i]
	}
	if total == 0 {
		return nil, false
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights, true
}

func countValid(samples []Sample) int {
	n := 0
	for _, s := range samples {
		if Valid(s.Value) {
			n++
		}
	}
	return n
}

type neighbour struct {
	index int
	dist  float64
}

// maxHeap keeps the farthest retained neighbour at the root.
type maxHeap []neighbour

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x any) { *h = append(*h, x.(neighbour)) }

func (h *maxHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

// offer keeps n if the heap has room or n is closer than the current worst.
func (h *maxHeap) offer(n neighbour, k int) {
	if h.Len() < k {
		heap.Push(h, n)
		return
	}
	if n.dist < (*h)[0].dist {
		(*h)[0] = n
		heap.Fix(h, 0)
	}
}

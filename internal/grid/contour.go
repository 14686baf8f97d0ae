package grid

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Marching squares segments per corner configuration, in cell-local units
// where the cell's corner samples sit at the half coordinates.
var marchingCases = [16][][2][2]float64{
	{},
	{{{1.0, 1.5}, {0.5, 1.0}}},
	{{{1.5, 1.0}, {1.0, 1.5}}},
	{{{1.5, 1.0}, {0.5, 1.0}}},
	{{{1.0, 0.5}, {1.5, 1.0}}},
	{{{1.0, 1.5}, {0.5, 1.0}}, {{1.0, 0.5}, {1.5, 1.0}}},
	{{{1.0, 0.5}, {1.0, 1.5}}},
	{{{1.0, 0.5}, {0.5, 1.0}}},
	{{{0.5, 1.0}, {1.0, 0.5}}},
	{{{1.0, 1.5}, {1.0, 0.5}}},
	{{{0.5, 1.0}, {1.0, 0.5}}, {{1.5, 1.0}, {1.0, 1.5}}},
	{{{1.5, 1.0}, {1.0, 0.5}}},
	{{{0.5, 1.0}, {1.5, 1.0}}},
	{{{1.0, 1.5}, {1.5, 1.0}}},
	{{{0.5, 1.0}, {1.0, 1.5}}},
	{},
}

type fragment struct {
	start, end int
	ring       orb.Ring
}

// Isorings returns the filled region where the grid value is >= threshold,
// as polygons (outer ring plus holes) in the grid's coordinate space.
// Edge crossings are placed by linear interpolation between lattice values;
// the region is closed along the grid border. No-data cells count as below.
func (g *Grid) Isorings(threshold float64) []orb.Polygon {
	var rings []orb.Ring
	g.marchRings(threshold, func(r orb.Ring) {
		g.smoothRing(r, threshold)
		rings = append(rings, r)
	})

	var polygons []orb.Polygon
	var holes []orb.Ring
	for _, r := range rings {
		if latticeArea(r) > 0 {
			polygons = append(polygons, orb.Polygon{r})
		} else {
			holes = append(holes, r)
		}
	}
	for _, h := range holes {
		for i := range polygons {
			if ringContainsRing(polygons[i][0], h) {
				polygons[i] = append(polygons[i], h)
				break
			}
		}
	}

	for _, p := range polygons {
		for _, r := range p {
			g.toBounds(r)
		}
	}
	return polygons
}

func (g *Grid) marchRings(threshold float64, emit func(orb.Ring)) {
	dx, dy := g.Cols, g.Rows
	byStart := make(map[int]*fragment)
	byEnd := make(map[int]*fragment)

	above := func(i int) int {
		if g.Values[i] >= threshold {
			return 1
		}
		return 0
	}
	index := func(p orb.Point) int {
		return int(math.Round(p[0]*2 + p[1]*float64(dx+1)*4))
	}

	var x, y int
	stitch := func(line [2][2]float64) {
		start := orb.Point{line[0][0] + float64(x), line[0][1] + float64(y)}
		end := orb.Point{line[1][0] + float64(x), line[1][1] + float64(y)}
		si, ei := index(start), index(end)

		if f, ok := byEnd[si]; ok {
			if h, ok := byStart[ei]; ok {
				delete(byEnd, f.end)
				delete(byStart, h.start)
				if f == h {
					f.ring = append(f.ring, end)
					emit(f.ring)
				} else {
					merged := &fragment{start: f.start, end: h.end, ring: append(f.ring, h.ring...)}
					byStart[merged.start] = merged
					byEnd[merged.end] = merged
				}
			} else {
				delete(byEnd, f.end)
				f.ring = append(f.ring, end)
				f.end = ei
				byEnd[ei] = f
			}
			return
		}
		if f, ok := byStart[ei]; ok {
			delete(byStart, f.start)
			f.ring = append(orb.Ring{start}, f.ring...)
			f.start = si
			byStart[si] = f
			return
		}
		f := &fragment{start: si, end: ei, ring: orb.Ring{start, end}}
		byStart[si] = f
		byEnd[ei] = f
	}
	run := func(c int) {
		for _, line := range marchingCases[c] {
			stitch(line)
		}
	}

	// First row, padded above with "below" values.
	x, y = -1, -1
	t1 := above(0)
	run(t1 << 1)
	for x = 0; x < dx-1; x++ {
		t0 := t1
		t1 = above(x + 1)
		run(t0 | t1<<1)
	}
	run(t1)

	for y = 0; y < dy-1; y++ {
		x = -1
		t1 = above(y*dx + dx)
		t2 := above(y * dx)
		run(t1<<1 | t2<<2)
		for x = 0; x < dx-1; x++ {
			t0 := t1
			t1 = above(y*dx + dx + x + 1)
			t3 := t2
			t2 = above(y*dx + x + 1)
			run(t0 | t1<<1 | t2<<2 | t3<<3)
		}
		run(t1 | t2<<3)
	}

	// Last row, padded below.
	x = -1
	t2 := above(y * dx)
	run(t2 << 2)
	for x = 0; x < dx-1; x++ {
		t3 := t2
		t2 = above(y*dx + x + 1)
		run(t2<<2 | t3<<3)
	}
	run(t2 << 3)
}

// smoothRing slides every crossing point along its edge to where the
// linear interpolation between the two lattice values meets threshold.
func (g *Grid) smoothRing(r orb.Ring, threshold float64) {
	dx, dy := g.Cols, g.Rows
	value := func(row, col int) float64 {
		if row < 0 || row >= dy || col < 0 || col >= dx {
			return math.Inf(-1)
		}
		v := g.At(row, col)
		if math.IsNaN(v) {
			return math.Inf(-1)
		}
		return v
	}
	for i := range r {
		px, py := r[i][0], r[i][1]
		xt, yt := int(math.Floor(px)), int(math.Floor(py))
		if px > 0 && px < float64(dx) && float64(xt) == px {
			r[i][0] = crossing(px, value(yt, xt-1), value(yt, xt), threshold)
		}
		if py > 0 && py < float64(dy) && float64(yt) == py {
			r[i][1] = crossing(py, value(yt-1, xt), value(yt, xt), threshold)
		}
	}
}

// crossing leaves the point at the edge midpoint when either end is no-data
// or off the grid.
func crossing(x, v0, v1, threshold float64) float64 {
	if !isFinite(v0) || !isFinite(v1) {
		return x
	}
	d := (threshold - v0) / (v1 - v0)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return x
	}
	return x + d - 0.5
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// latticeArea is twice the signed area; outer rings come out positive.
func latticeArea(r orb.Ring) float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	area := r[n-1][1]*r[0][0] - r[n-1][0]*r[0][1]
	for i := 1; i < n; i++ {
		area += r[i-1][1]*r[i][0] - r[i-1][0]*r[i][1]
	}
	return area
}

func ringContainsRing(outer, inner orb.Ring) bool {
	for _, p := range inner {
		if onRing(outer, p) {
			continue
		}
		return planar.RingContains(outer, p)
	}
	return false
}

func onRing(r orb.Ring, p orb.Point) bool {
	for _, q := range r {
		if q == p {
			return true
		}
	}
	return false
}

// toBounds maps lattice coordinates (sample i at i+0.5) onto grid bounds.
func (g *Grid) toBounds(r orb.Ring) {
	dx, dy := g.Step()
	b := g.Bounds
	for i, p := range r {
		r[i] = orb.Point{
			clamp(b.Min[0]+(p[0]-0.5)*dx, b.Min[0], b.Max[0]),
			clamp(b.Min[1]+(p[1]-0.5)*dy, b.Min[1], b.Max[1]),
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

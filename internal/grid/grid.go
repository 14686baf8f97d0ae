package grid

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"

	"github.com/lox/wxmap/internal/interp"
)

const (
	MinResolution = 2

	// MaxResolution keeps a single live pass well inside one frame budget
	// for the station counts this system sees.
	MaxResolution = 400
)

// FinlandBounds is the geographic window of the precomputed catalogs.
var FinlandBounds = orb.Bound{Min: orb.Point{19.0, 59.5}, Max: orb.Point{31.6, 70.1}}

// Grid is a regular lattice of values over Bounds. Values are row-major:
// row r lies at Y = Min.Y + r*dy and column c at X = Min.X + c*dx, with the
// first and last rows/columns on the bounds edges. NaN marks no data.
type Grid struct {
	Bounds orb.Bound
	Rows   int
	Cols   int
	Values []float64
}

// New allocates a grid with every cell set to no data.
func New(bounds orb.Bound, rows, cols int) *Grid {
	g := &Grid{
		Bounds: bounds,
		Rows:   rows,
		Cols:   cols,
		Values: make([]float64, rows*cols),
	}
	for i := range g.Values {
		g.Values[i] = math.NaN()
	}
	return g
}

func (g *Grid) index(row, col int) int { return row*g.Cols + col }

// At returns the value at a lattice cell.
func (g *Grid) At(row, col int) float64 { return g.Values[g.index(row, col)] }

func (g *Grid) Set(row, col int, v float64) { g.Values[g.index(row, col)] = v }

// Step is the lattice spacing along each axis.
func (g *Grid) Step() (dx, dy float64) {
	if g.Cols > 1 {
		dx = (g.Bounds.Max[0] - g.Bounds.Min[0]) / float64(g.Cols-1)
	}
	if g.Rows > 1 {
		dy = (g.Bounds.Max[1] - g.Bounds.Min[1]) / float64(g.Rows-1)
	}
	return dx, dy
}

// Point is the coordinate of a lattice cell.
func (g *Grid) Point(row, col int) orb.Point {
	dx, dy := g.Step()
	return orb.Point{
		g.Bounds.Min[0] + float64(col)*dx,
		g.Bounds.Min[1] + float64(row)*dy,
	}
}

// Range returns the smallest and largest values present.
func (g *Grid) Range() (lo, hi float64, ok bool) {
	valid := make([]float64, 0, len(g.Values))
	for _, v := range g.Values {
		if interp.Valid(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 0, 0, false
	}
	return floats.Min(valid), floats.Max(valid), true
}

// Equal reports whether two grids have the same shape, bounds and values.
// No-data cells compare equal to each other.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.Rows != o.Rows || g.Cols != o.Cols || g.Bounds != o.Bounds || len(g.Values) != len(o.Values) {
		return false
	}
	for i, v := range g.Values {
		w := o.Values[i]
		if math.IsNaN(v) && math.IsNaN(w) {
			continue
		}
		if v != w {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := *g
	c.Values = append([]float64(nil), g.Values...)
	return &c
}

// Sampler evaluates an estimator at every lattice cell.
type Sampler struct {
	Estimator interp.Estimator
}

func NewSampler(e interp.Estimator) *Sampler {
	return &Sampler{Estimator: e}
}

// Sample builds a rows x cols grid over bounds. Invalid samples are dropped
// first; cells with no estimate stay NaN.
func (s *Sampler) Sample(bounds orb.Bound, rows, cols int, samples []interp.Sample) *Grid {
	rows = clampResolution(rows)
	cols = clampResolution(cols)
	valid, _ := interp.Filter(samples)

	g := New(bounds, rows, cols)
	if len(valid) == 0 {
		return g
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v, ok := s.Estimator.Estimate(g.Point(r, c), valid); ok {
				g.Set(r, c, v)
			}
		}
	}
	return g
}

// AspectResolution splits a cell budget along the longer axis of bounds.
func AspectResolution(bounds orb.Bound, long int) (rows, cols int) {
	w := bounds.Max[0] - bounds.Min[0]
	h := bounds.Max[1] - bounds.Min[1]
	if w <= 0 || h <= 0 {
		return clampResolution(long), clampResolution(long)
	}
	if w >= h {
		return clampResolution(int(math.Round(float64(long) * h / w))), clampResolution(long)
	}
	return clampResolution(long), clampResolution(int(math.Round(float64(long) * w / h)))
}

func clampResolution(n int) int {
	if n < MinResolution {
		return MinResolution
	}
	if n > MaxResolution {
		return MaxResolution
	}
	return n
}

// Smooth returns a box-blurred copy: each cell farther than radius from
// every edge becomes the mean of the valid values in its (2r+1)^2
// neighbourhood. Edge cells are copied unchanged.
func (g *Grid) Smooth(radius int) *Grid {
	out := g.Clone()
	if radius <= 0 {
		return out
	}
	for r := radius; r < g.Rows-radius; r++ {
		for c := radius; c < g.Cols-radius; c++ {
			var sum float64
			var n int
			for rr := r - radius; rr <= r+radius; rr++ {
				for cc := c - radius; cc <= c+radius; cc++ {
					if v := g.At(rr, cc); interp.Valid(v) {
						sum += v
						n++
					}
				}
			}
			if n > 0 {
				out.Set(r, c, sum/float64(n))
			}
		}
	}
	return out
}

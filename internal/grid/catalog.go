package grid

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
)

const DateLayout = "2006-01-02"

// DefaultNearestWindow matches the weekly sampling interval of generated catalogs.
const DefaultNearestWindow = 3

var (
	ErrGridNotFound = errors.New("grid not found")
	ErrInvalidGrid  = errors.New("invalid grid")
)

// EntryBounds is the on-disk form of a grid's geographic window.
type EntryBounds struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// Entry is one precomputed grid as stored in a catalog file. Values is a
// flat square lattice, row by row from LatMin, null where there is no data.
type Entry struct {
	Date       string      `json:"date"`
	Metric     string      `json:"metric"`
	Resolution int         `json:"resolution"`
	Bounds     EntryBounds `json:"bounds"`
	Values     []*float64  `json:"values"`
}

// Grid decodes the entry.
func (e Entry) Grid() (*Grid, error) {
	if e.Resolution < MinResolution {
		return nil, fmt.Errorf("%w: resolution %d", ErrInvalidGrid, e.Resolution)
	}
	if len(e.Values) != e.Resolution*e.Resolution {
		return nil, fmt.Errorf("%w: %d values for resolution %d", ErrInvalidGrid, len(e.Values), e.Resolution)
	}
	b := orb.Bound{
		Min: orb.Point{e.Bounds.LonMin, e.Bounds.LatMin},
		Max: orb.Point{e.Bounds.LonMax, e.Bounds.LatMax},
	}
	if b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] {
		return nil, fmt.Errorf("%w: empty bounds", ErrInvalidGrid)
	}
	g := New(b, e.Resolution, e.Resolution)
	for i, v := range e.Values {
		if v != nil {
			g.Values[i] = *v
		}
	}
	return g, nil
}

// NewEntry encodes a square grid.
func NewEntry(date time.Time, metric string, g *Grid) (Entry, error) {
	if g.Rows != g.Cols {
		return Entry{}, fmt.Errorf("%w: %dx%d is not square", ErrInvalidGrid, g.Rows, g.Cols)
	}
	e := Entry{
		Date:       date.Format(DateLayout),
		Metric:     metric,
		Resolution: g.Rows,
		Bounds: EntryBounds{
			LatMin: g.Bounds.Min[1],
			LatMax: g.Bounds.Max[1],
			LonMin: g.Bounds.Min[0],
			LonMax: g.Bounds.Max[0],
		},
		Values: make([]*float64, len(g.Values)),
	}
	for i, v := range g.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		v := v
		e.Values[i] = &v
	}
	return e, nil
}

type catalogKey struct {
	date   string
	metric string
}

// Catalog indexes precomputed grids by date and metric.
type Catalog struct {
	grids map[catalogKey]*Grid
	order []catalogKey
	dates map[string][]time.Time
}

func NewCatalog() *Catalog {
	return &Catalog{
		grids: make(map[catalogKey]*Grid),
		dates: make(map[string][]time.Time),
	}
}

// Add stores g, replacing any grid already held for the same date and metric.
func (c *Catalog) Add(date time.Time, metric string, g *Grid) {
	k := catalogKey{date: date.Format(DateLayout), metric: metric}
	if _, ok := c.grids[k]; !ok {
		c.order = append(c.order, k)
		d := truncateDay(date)
		dates := c.dates[metric]
		i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(d) })
		dates = append(dates, time.Time{})
		copy(dates[i+1:], dates[i:])
		dates[i] = d
		c.dates[metric] = dates
	}
	c.grids[k] = g
}

func (c *Catalog) Len() int { return len(c.order) }

// Lookup returns the grid for an exact date.
func (c *Catalog) Lookup(date time.Time, metric string) (*Grid, bool) {
	g, ok := c.grids[catalogKey{date: date.Format(DateLayout), metric: metric}]
	return g, ok
}

// Nearest returns the grid whose date is closest to date, no more than
// windowDays away. Ties go to the earlier date.
func (c *Catalog) Nearest(date time.Time, metric string, windowDays int) (*Grid, time.Time, bool) {
	dates := c.dates[metric]
	if len(dates) == 0 {
		return nil, time.Time{}, false
	}
	d := truncateDay(date)
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(d) })

	best := -1
	var bestDays int
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(dates) {
			continue
		}
		days := int(math.Abs(math.Round(dates[j].Sub(d).Hours() / 24)))
		if days > windowDays {
			continue
		}
		if best < 0 || days < bestDays {
			best, bestDays = j, days
		}
	}
	if best < 0 {
		return nil, time.Time{}, false
	}
	found := dates[best]
	g, ok := c.Lookup(found, metric)
	return g, found, ok
}

// Dates lists the dates held for metric in ascending order.
func (c *Catalog) Dates(metric string) []time.Time {
	return append([]time.Time(nil), c.dates[metric]...)
}

// Entries encodes the catalog in insertion order.
func (c *Catalog) Entries() ([]Entry, error) {
	entries := make([]Entry, 0, len(c.order))
	for _, k := range c.order {
		date, err := time.Parse(DateLayout, k.date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", k.date, err)
		}
		e, err := NewEntry(date, k.metric, c.grids[k])
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", k.date, k.metric, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Load reads a catalog from plain or gzip-compressed JSON.
func Load(r io.Reader) (*Catalog, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	} else {
		r = br
	}

	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := NewCatalog()
	for i, e := range entries {
		date, err := time.Parse(DateLayout, e.Date)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w: date %q", i, ErrInvalidGrid, e.Date)
		}
		if e.Metric == "" {
			return nil, fmt.Errorf("entry %d: %w: missing metric", i, ErrInvalidGrid)
		}
		g, err := e.Grid()
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s %s): %w", i, e.Date, e.Metric, err)
		}
		c.Add(date, e.Metric, g)
	}
	return c, nil
}

// LoadFile opens path and loads it.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Save writes the catalog as JSON.
func (c *Catalog) Save(w io.Writer) error {
	entries, err := c.Entries()
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return nil
}

// SaveFile writes the catalog to path, gzip-compressed when path ends in .gz.
func (c *Catalog) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create catalog: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".gz") {
		if err := c.Save(f); err != nil {
			return err
		}
		return f.Close()
	}

	zw := gzip.NewWriter(f)
	if err := c.Save(zw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return f.Close()
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

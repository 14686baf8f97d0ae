package colormap

import (
	"errors"
	"fmt"
)

var ErrUnknownMetric = errors.New("unknown metric")

// Kind is informational only; every scale interpolates piecewise-linearly.
type Kind string

const (
	Sequential Kind = "sequential"
	Diverging  Kind = "diverging"
)

// Stop anchors a color at a metric value.
type Stop struct {
	Value float64 `json:"value"`
	Color Color   `json:"color"`
}

// MetricScale describes how one metric is colored.
type MetricScale struct {
	Key   string  `json:"key"`
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Kind  Kind    `json:"kind"`
	Stops []Stop  `json:"stops"`

	// Coverage marks present/absent quantities such as snow depth, where
	// values under CoveragePresence mean "none here" rather than "low".
	Coverage bool `json:"coverage,omitempty"`
}

// CoveragePresence is the value below which a coverage metric is absent.
const CoveragePresence = 0.5

// Validate checks that stops increase strictly and span [Min, Max].
func (s MetricScale) Validate() error {
	if len(s.Stops) < 2 {
		return fmt.Errorf("scale %s: need at least 2 stops, have %d", s.Key, len(s.Stops))
	}
	if s.Max < s.Min {
		return fmt.Errorf("scale %s: max %v below min %v", s.Key, s.Max, s.Min)
	}
	for i := 1; i < len(s.Stops); i++ {
		if s.Stops[i].Value <= s.Stops[i-1].Value {
			return fmt.Errorf("scale %s: stop %d (%v) not above stop %d (%v)", s.Key, i, s.Stops[i].Value, i-1, s.Stops[i-1].Value)
		}
	}
	if s.Stops[0].Value > s.Min {
		return fmt.Errorf("scale %s: first stop %v above range min %v", s.Key, s.Stops[0].Value, s.Min)
	}
	if last := s.Stops[len(s.Stops)-1].Value; last < s.Max {
		return fmt.Errorf("scale %s: last stop %v below range max %v", s.Key, last, s.Max)
	}
	return nil
}

// Clamp limits v to the scale range.
func (s MetricScale) Clamp(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Table is an immutable set of scales keyed by metric.
type Table struct {
	order  []string
	scales map[string]MetricScale
}

// NewTable validates and indexes scales, preserving their order.
func NewTable(scales ...MetricScale) (*Table, error) {
	t := &Table{scales: make(map[string]MetricScale, len(scales))}
	for _, s := range scales {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.scales[s.Key]; dup {
			return nil, fmt.Errorf("scale %s: duplicate key", s.Key)
		}
		t.order = append(t.order, s.Key)
		t.scales[s.Key] = s
	}
	return t, nil
}

// Lookup returns the scale for a metric key.
func (t *Table) Lookup(key string) (MetricScale, bool) {
	s, ok := t.scales[key]
	return s, ok
}

// Keys lists metric keys in table order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.order...)
}

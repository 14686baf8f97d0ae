package grid

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/lox/wxmap/internal/interp"
)

// SampleSource supplies station measurements for catalog generation.
type SampleSource interface {
	// SampleDates returns the dates that have any records, ascending.
	SampleDates(ctx context.Context) ([]time.Time, error)
	Samples(ctx context.Context, date time.Time, metric string) ([]interp.Sample, error)
}

type GenerateOptions struct {
	Bounds     orb.Bound
	Resolution int
	// IntervalDays keeps every Nth day counted from the first date with data.
	IntervalDays int
	RadiusKm     float64
	Metrics      []string
}

func DefaultGenerateOptions(metrics []string) GenerateOptions {
	return GenerateOptions{
		Bounds:       FinlandBounds,
		Resolution:   50,
		IntervalDays: 7,
		RadiusKm:     150,
		Metrics:      metrics,
	}
}

// catalogMetric treats anything within 10 m of a station as the station.
var catalogMetric = interp.Metric{Name: "haversine", Distance: interp.HaversineKm, Epsilon: 0.01}

// Generate builds a catalog of geographic grids for every IntervalDays-th
// date. Dates without any records are skipped; a metric without usable
// values on a kept date yields an all-null grid. Values are rounded to 0.1.
func Generate(ctx context.Context, src SampleSource, opts GenerateOptions) (*Catalog, error) {
	if opts.IntervalDays < 1 {
		opts.IntervalDays = 1
	}
	dates, err := src.SampleDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}

	estimator := &interp.IDW{Metric: catalogMetric, Power: interp.DefaultPower, MaxDistance: opts.RadiusKm}
	sampler := NewSampler(estimator)
	c := NewCatalog()
	if len(dates) == 0 {
		return c, nil
	}

	have := make(map[string]bool, len(dates))
	for _, d := range dates {
		have[d.Format(DateLayout)] = true
	}
	start := truncateDay(dates[0])
	end := truncateDay(dates[len(dates)-1])

	for d := start; !d.After(end); d = d.AddDate(0, 0, opts.IntervalDays) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !have[d.Format(DateLayout)] {
			continue
		}
		for _, metric := range opts.Metrics {
			samples, err := src.Samples(ctx, d, metric)
			if err != nil {
				return nil, fmt.Errorf("samples %s %s: %w", d.Format(DateLayout), metric, err)
			}
			g := sampler.Sample(opts.Bounds, opts.Resolution, opts.Resolution, samples)
			for i, v := range g.Values {
				if interp.Valid(v) {
					g.Values[i] = math.Round(v*10) / 10
				}
			}
			c.Add(d, metric, g)
		}
	}
	return c, nil
}

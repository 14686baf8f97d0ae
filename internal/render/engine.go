package render

import (
	"log/slog"
	"time"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/metrics"
)

// Strategy draws one mode. Implementations receive only valid points and
// must return an empty output, never panic, when there is nothing to draw.
type Strategy interface {
	Render(f Frame, scale colormap.MetricScale) Output
}

// Engine holds the current mode and frame. It is not safe for concurrent
// use; build one per caller.
type Engine struct {
	mapper     *colormap.Mapper
	log        *slog.Logger
	strategies [modeCount]Strategy
	mode       Mode
	frame      *Frame
}

// NewEngine starts in stations mode with no frame loaded.
func NewEngine(mapper *colormap.Mapper, logger *slog.Logger) *Engine {
	if mapper == nil {
		mapper = colormap.NewMapper(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		mapper:     mapper,
		log:        logger.With("component", "render"),
		strategies: Strategies(mapper),
		mode:       ModeStations,
	}
}

// Strategies builds the strategy for every mode.
func Strategies(mapper *colormap.Mapper) [modeCount]Strategy {
	return [modeCount]Strategy{
		ModeStations:     &Stations{Mapper: mapper},
		ModeInterpolated: &Interpolated{Mapper: mapper},
		ModeVoronoi:      &Voronoi{Mapper: mapper},
		ModeHexagon:      &Hexagon{Mapper: mapper},
		ModeContour:      &Contour{Mapper: mapper},
		ModeRaster:       &RasterMode{Mapper: mapper},
	}
}

func (e *Engine) Mode() Mode { return e.mode }

// SetContourSmoothing sets the box-blur radius contour mode applies to its
// field. Negative values are treated as zero.
func (e *Engine) SetContourSmoothing(radius int) {
	e.strategies[ModeContour].(*Contour).Smoothing = max(radius, 0)
}

// SetMode switches by name. Unknown names are ignored and the current mode
// kept.
func (e *Engine) SetMode(name string) bool {
	m, ok := ParseMode(name)
	if !ok {
		e.log.Warn("ignoring unknown render mode", "mode", name, "current", e.mode.String())
		return false
	}
	e.mode = m
	return true
}

// SetFrame replaces the data rendered by subsequent calls.
func (e *Engine) SetFrame(f Frame) {
	e.frame = &f
}

// Loaded reports whether a frame has been set.
func (e *Engine) Loaded() bool { return e.frame != nil }

// Render draws the current frame in the current mode. Without a frame it
// returns an empty output.
func (e *Engine) Render() Output {
	if e.frame == nil {
		return Output{Mode: e.mode}
	}
	return e.RenderFrame(e.mode, *e.frame)
}

// RenderFrame draws f in mode m without touching the engine state.
func (e *Engine) RenderFrame(m Mode, f Frame) Output {
	if !m.Valid() {
		return Output{Mode: e.mode}
	}
	start := time.Now()
	mode := m.String()

	scale, ok := e.mapper.Scale(f.Metric)
	if !ok {
		e.log.Warn("unknown metric, drawing as no data", "metric", f.Metric)
		scale = colormap.MetricScale{Key: f.Metric}
	}

	valid, excluded := f.valid()
	if excluded > 0 {
		metrics.SamplesExcluded.WithLabelValues(f.Metric).Add(float64(excluded))
		e.log.Debug("excluded samples without values", "metric", f.Metric, "excluded", excluded)
	}
	if len(valid) == 0 {
		e.log.Warn("no valid samples", "mode", mode, "metric", f.Metric, "excluded", excluded)
		metrics.RenderPasses.WithLabelValues(mode, "empty").Inc()
		return Output{Mode: m, Metric: f.Metric, Excluded: excluded}
	}

	f.Points = valid
	out := e.strategies[m].Render(f, scale)
	out.Mode = m
	out.Metric = f.Metric
	out.Excluded = excluded

	result := "ok"
	if out.Empty() {
		result = "empty"
		e.log.Warn("no samples to draw", "mode", mode, "metric", f.Metric, "samples", len(valid))
	}
	metrics.RenderPasses.WithLabelValues(mode, result).Inc()
	metrics.RenderDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	return out
}

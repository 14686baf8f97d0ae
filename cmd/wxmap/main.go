package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/lox/wxmap/internal/api"
	"github.com/lox/wxmap/internal/canvas"
	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/grid"
	"github.com/lox/wxmap/internal/ingest"
	"github.com/lox/wxmap/internal/log"
	"github.com/lox/wxmap/internal/region"
	"github.com/lox/wxmap/internal/render"
	"github.com/lox/wxmap/internal/store"
)

type Globals struct {
	DB       string `help:"Path to SQLite database." default:"data/wxmap.db" env:"WXMAP_DB"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info" env:"WXMAP_LOG_LEVEL"`
	LogDir   string `help:"Write JSON logs to a rotated file in this directory instead of stderr." env:"WXMAP_LOG_DIR"`

	logger *slog.Logger
}

// openStore opens and migrates the database, creating its directory.
func (g *Globals) openStore() (*store.Store, func(), error) {
	if dir := filepath.Dir(g.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := store.Open(g.DB)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(db, g.logger)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, func() { db.Close() }, nil
}

type ServeCmd struct {
	Port          string        `help:"HTTP server port." default:"8080" env:"WXMAP_PORT"`
	Grids         string        `help:"Precomputed grid catalog (JSON, optionally gzipped)." env:"WXMAP_GRIDS"`
	Region        string        `help:"GeoJSON outline to clip maps to. Defaults to the built-in Finland outline." env:"WXMAP_REGION"`
	RefreshSource string        `help:"File or URL re-imported on a schedule and by POST /api/refresh." env:"WXMAP_REFRESH_SOURCE"`
	Interval      time.Duration `help:"Scheduled refresh interval." default:"6h" env:"WXMAP_REFRESH_INTERVAL"`
	NoRefresh     bool          `help:"Disable scheduled refresh (POST /api/refresh still works)."`
}

func (c *ServeCmd) Run(g *Globals) error {
	st, closeDB, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	cfg := api.Config{Port: c.Port, Store: st, Logger: g.logger}

	if c.Grids != "" {
		catalog, err := grid.LoadFile(c.Grids)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			g.logger.Warn("grid catalog not found, contour mode will interpolate", "path", c.Grids)
		case err != nil:
			return fmt.Errorf("load grids: %w", err)
		default:
			g.logger.Info("loaded grid catalog", "path", c.Grids, "grids", catalog.Len())
			cfg.Catalog = catalog
		}
	}
	if c.Region != "" {
		outline, err := region.LoadFile(c.Region)
		if err != nil {
			return fmt.Errorf("load region: %w", err)
		}
		cfg.Region = outline
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	importer := ingest.NewImporter(st, nil, g.logger)
	cfg.Importer = importer
	if c.RefreshSource != "" {
		scheduler := ingest.NewScheduler(importer, c.RefreshSource, c.Interval, g.logger)
		cfg.Refresher = scheduler
		if !c.NoRefresh {
			go func() {
				if err := scheduler.Run(ctx); err != nil {
					g.logger.Error("scheduler stopped", "error", err)
				}
			}()
		} else {
			g.logger.Info("scheduled refresh disabled (--no-refresh)")
		}
	}

	return api.NewServer(cfg).Run(ctx)
}

type ImportCmd struct {
	Sources []string `arg:"" help:"CSV or JSON files or URLs to import, optionally gzipped."`
}

func (c *ImportCmd) Run(g *Globals) error {
	st, closeDB, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	importer := ingest.NewImporter(st, nil, g.logger)
	ctx := context.Background()
	failed := 0
	for _, src := range c.Sources {
		res := importer.Import(ctx, src)
		if res.Status != "ok" {
			failed++
			continue
		}
		fmt.Printf("%s: %d stations, %d records, %d flagged\n", src, res.Stations, res.Records, res.Flagged)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(c.Sources))
	}
	return nil
}

type GridsCmd struct {
	Output     string   `help:"Catalog output path; gzipped when it ends in .gz." default:"data/grids.json.gz" type:"path"`
	Resolution int      `help:"Grid cells along each axis." default:"50"`
	Interval   int      `help:"Keep every Nth day with data." default:"7"`
	Radius     float64  `help:"Influence radius in kilometres." default:"150"`
	Metrics    []string `help:"Metrics to generate. Defaults to all."`
}

func (c *GridsCmd) Run(g *Globals) error {
	st, closeDB, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	metrics := c.Metrics
	if len(metrics) == 0 {
		metrics = colormap.DefaultTable().Keys()
	}
	for _, m := range metrics {
		if _, ok := colormap.DefaultTable().Lookup(m); !ok {
			return fmt.Errorf("%w: %s", colormap.ErrUnknownMetric, m)
		}
	}

	opts := grid.DefaultGenerateOptions(metrics)
	opts.Resolution = c.Resolution
	opts.IntervalDays = c.Interval
	opts.RadiusKm = c.Radius

	start := time.Now()
	catalog, err := grid.Generate(context.Background(), st, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.Output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := catalog.SaveFile(c.Output); err != nil {
		return err
	}
	g.logger.Info("wrote grid catalog", "path", c.Output, "grids", catalog.Len(), "duration", time.Since(start))
	return nil
}

type RenderCmd struct {
	Date   string `help:"Date to render (YYYY-MM-DD)." required:""`
	Metric string `help:"Metric key." default:"temp_mean"`
	Mode   string `help:"Render mode." default:"stations" enum:"stations,interpolated,voronoi,hexagon,contour,raster"`
	Width  int    `help:"Image width in pixels." default:"600"`
	Smooth int    `help:"Box-blur radius in cells applied to the contour field." default:"0"`
	Legend bool   `help:"Overlay the colour legend." default:"true" negatable:""`
	Grids  string `help:"Precomputed grid catalog used by contour mode." env:"WXMAP_GRIDS"`
	Output string `short:"o" help:"PNG output path." default:"map.png" type:"path"`
}

func (c *RenderCmd) Run(g *Globals) error {
	date, err := time.Parse(grid.DateLayout, c.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", c.Date, err)
	}
	st, closeDB, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	mapper := colormap.NewMapper(nil)
	scale, ok := mapper.Scale(c.Metric)
	if !ok {
		return fmt.Errorf("%w: %s", colormap.ErrUnknownMetric, c.Metric)
	}
	samples, err := st.Samples(context.Background(), date, c.Metric)
	if err != nil {
		return err
	}

	var pre *grid.Grid
	if c.Grids != "" && c.Mode == render.ModeContour.String() {
		catalog, err := grid.LoadFile(c.Grids)
		if err != nil {
			return fmt.Errorf("load grids: %w", err)
		}
		pre, _, _ = catalog.Nearest(date, c.Metric, grid.DefaultNearestWindow)
	}

	proj := canvas.NewEquirectangular(grid.FinlandBounds, c.Width, canvas.LegendMargin)
	frame := canvas.NewFrame(c.Metric, samples, proj, region.Finland(), pre)
	engine := render.NewEngine(mapper, g.logger)
	engine.SetMode(c.Mode)
	engine.SetContourSmoothing(c.Smooth)
	engine.SetFrame(frame)
	out := engine.Render()

	var legend image.Image
	if c.Legend {
		legend = canvas.Legend(mapper, scale, min(c.Width/2, 320), canvas.LegendMinHeight)
	}
	img := canvas.DrawMap(frame, out, legend)

	f, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	if err := img.EncodePNG(f); err != nil {
		return err
	}
	g.logger.Info("rendered map", "path", c.Output, "mode", c.Mode, "metric", c.Metric,
		"samples", len(samples), "excluded", out.Excluded)
	return f.Close()
}

var cli struct {
	Globals

	Serve  ServeCmd  `cmd:"" default:"1" help:"Run the HTTP server."`
	Import ImportCmd `cmd:"" help:"Import station data files or URLs."`
	Grids  GridsCmd  `cmd:"" help:"Generate a precomputed grid catalog from the database."`
	Render RenderCmd `cmd:"" help:"Render one map to a PNG file."`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	ctx := kong.Parse(&cli,
		kong.Name("wxmap"),
		kong.Description("Finnish weather station maps."),
		kong.UsageOnError(),
	)
	cli.logger = log.New(cli.LogLevel, cli.LogDir)
	slog.SetDefault(cli.logger)
	cli.logger.Debug("starting", "command", strings.Fields(ctx.Command())[0], "db", cli.DB)

	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

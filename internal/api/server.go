package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/wxmap/internal/colormap"
	"github.com/lox/wxmap/internal/grid"
	"github.com/lox/wxmap/internal/ingest"
	"github.com/lox/wxmap/internal/region"
	"github.com/lox/wxmap/internal/store"
)

// Refresher runs one data refresh on demand.
type Refresher interface {
	Refresh(ctx context.Context) ingest.Result
}

type Config struct {
	Port  string
	Store *store.Store

	// Importer reports the data version used to key cached images. Optional.
	Importer *ingest.Importer
	// Refresher backs POST /api/refresh. Optional.
	Refresher Refresher
	// Catalog supplies precomputed grids. Optional.
	Catalog *grid.Catalog

	Mapper *colormap.Mapper
	Region orb.Polygon
	Logger *slog.Logger
}

type Server struct {
	store     *store.Store
	port      string
	importer  *ingest.Importer
	refresher Refresher
	catalog   *grid.Catalog
	mapper    *colormap.Mapper
	region    orb.Polygon
	logger    *slog.Logger
	validate  *validator.Validate
	images    *expirable.LRU[string, []byte]
}

const (
	imageCacheSize = 128
	imageCacheTTL  = time.Hour
)

func NewServer(cfg Config) *Server {
	if cfg.Mapper == nil {
		cfg.Mapper = colormap.NewMapper(nil)
	}
	if cfg.Region == nil {
		cfg.Region = region.Finland()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		store:     cfg.Store,
		port:      cfg.Port,
		importer:  cfg.Importer,
		refresher: cfg.Refresher,
		catalog:   cfg.Catalog,
		mapper:    cfg.Mapper,
		region:    cfg.Region,
		logger:    cfg.Logger.With("component", "api"),
		images:    expirable.NewLRU[string, []byte](imageCacheSize, nil, imageCacheTTL),
	}
	s.validate = newValidator(s.mapper)
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/scales", s.handleScales)
	mux.HandleFunc("GET /api/modes", s.handleModes)
	mux.HandleFunc("GET /api/stations", s.handleStations)
	mux.HandleFunc("GET /api/dates", s.handleDates)
	mux.HandleFunc("GET /api/daily", s.handleDaily)
	mux.HandleFunc("GET /api/zones", s.handleZones)
	mux.HandleFunc("GET /api/samples", s.handleSamples)
	mux.HandleFunc("GET /api/render", s.handleRender)
	mux.HandleFunc("GET /api/legend", s.handleLegend)
	mux.HandleFunc("GET /api/legend.png", s.handleLegendPNG)
	mux.HandleFunc("GET /api/grid", s.handleGrid)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.logRequests(mux)
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) dataVersion() uint64 {
	if s.importer == nil {
		return 0
	}
	return s.importer.Version()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Write(data)
}

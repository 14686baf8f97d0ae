package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/lox/wxmap/internal/metrics"
	"github.com/lox/wxmap/internal/store"
)

var ErrRefreshRunning = errors.New("refresh already running")

// Result is the outcome of one import.
type Result struct {
	Status     string `json:"status"`
	Source     string `json:"source"`
	Stations   int    `json:"stations"`
	Records    int    `json:"records"`
	Flagged    int    `json:"flagged"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Importer loads station-daily data from files or URLs into the store.
type Importer struct {
	store   *store.Store
	fetcher *Fetcher
	logger  *slog.Logger

	mu      sync.Mutex
	version atomic.Uint64
}

func NewImporter(st *store.Store, fetcher *Fetcher, logger *slog.Logger) *Importer {
	if fetcher == nil {
		fetcher = NewFetcher(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: st, fetcher: fetcher, logger: logger.With("component", "ingest")}
}

// Version increases after every successful import.
func (i *Importer) Version() uint64 { return i.version.Load() }

// Import reads source, a path or http(s) URL, and stores its contents.
// Only one import runs at a time; a concurrent call fails immediately.
func (i *Importer) Import(ctx context.Context, source string) Result {
	start := time.Now()
	res := Result{Status: "ok", Source: source}

	if !i.mu.TryLock() {
		res.Status, res.Error = "error", ErrRefreshRunning.Error()
		metrics.RefreshRuns.WithLabelValues("busy").Inc()
		return res
	}
	defer i.mu.Unlock()

	run, err := i.store.StartImportRun(source)
	if err != nil {
		i.logger.Warn("failed to record import run", "error", err)
	}

	ds, err := i.load(ctx, source)
	if err == nil {
		err = i.store.Import(ctx, ds.Stations, ds.Records)
	}
	if err != nil {
		res.Status, res.Error = "error", err.Error()
	} else {
		res.Stations, res.Records, res.Flagged = len(ds.Stations), len(ds.Records), ds.Flagged
		i.version.Add(1)
		metrics.RecordsImported.WithLabelValues(sourceKind(source)).Add(float64(res.Records))
	}
	res.DurationMS = time.Since(start).Milliseconds()

	if cerr := i.store.CompleteImportRun(run, res.Stations, res.Records, err); cerr != nil {
		i.logger.Warn("failed to complete import run", "error", cerr)
	}
	metrics.RefreshRuns.WithLabelValues(res.Status).Inc()

	if res.Status == "ok" {
		i.logger.Info("import complete", "source", source, "stations", res.Stations,
			"records", res.Records, "flagged", res.Flagged, "duration_ms", res.DurationMS)
	} else {
		i.logger.Error("import failed", "source", source, "error", res.Error)
	}
	return res
}

func (i *Importer) load(ctx context.Context, source string) (*Dataset, error) {
	var (
		body        []byte
		contentType string
		err         error
	)
	if isURL(source) {
		body, contentType, err = i.fetcher.Fetch(ctx, source)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, err
	}

	r, err := maybeGzip(body)
	if err != nil {
		return nil, err
	}
	ds, err := Parse(r, FormatFor(source, contentType))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return ds, nil
}

func maybeGzip(body []byte) (io.Reader, error) {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return bytes.NewReader(body), nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	return zr, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func sourceKind(s string) string {
	if isURL(s) {
		return "url"
	}
	return "file"
}

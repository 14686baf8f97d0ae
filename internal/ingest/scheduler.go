package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const (
	DefaultRefreshInterval = 6 * time.Hour
	refreshTimeout         = 10 * time.Minute
)

// Scheduler re-imports the configured source periodically.
type Scheduler struct {
	scheduler *gocron.Scheduler
	importer  *Importer
	source    string
	interval  time.Duration
	logger    *slog.Logger
}

func NewScheduler(importer *Importer, source string, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		importer:  importer,
		source:    source,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Refresh runs one import of the configured source.
func (s *Scheduler) Refresh(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	return s.importer.Import(ctx, s.source)
}

// Run refreshes immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.source == "" {
		s.logger.Info("no refresh source configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		s.logger.Debug("running refresh job", "source", s.source)
		res := s.Refresh(ctx)
		if res.Status != "ok" {
			s.logger.Warn("refresh job failed", "error", res.Error)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("refresh scheduled", "source", s.source, "interval", s.interval)
	<-ctx.Done()
	s.scheduler.Stop()
	return nil
}

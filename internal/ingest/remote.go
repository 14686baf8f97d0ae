package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/lox/wxmap/internal/httputil"
	"github.com/lox/wxmap/internal/metrics"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

// Fetcher downloads station data with retries behind a circuit breaker.
type Fetcher struct {
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	initial    time.Duration
	maxElapsed time.Duration
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = httputil.NewClient()
	}
	return &Fetcher{
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "station-data",
			MaxRequests: 1,
			Interval:    5 * time.Minute,
			Timeout:     2 * time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
		initial:    500 * time.Millisecond,
		maxElapsed: 2 * time.Minute,
	}
}

type download struct {
	body        []byte
	contentType string
}

// Fetch GETs url. Rate limiting and server errors are retried with
// exponential backoff; other 4xx responses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	var result download
	operation := func() error {
		start := time.Now()
		res, err := f.breaker.Execute(func() (interface{}, error) {
			return f.get(ctx, url)
		})
		status := "error"
		var se *statusError
		if errors.As(err, &se) {
			status = strconv.Itoa(se.code)
		} else if err == nil {
			status = "200"
		}
		metrics.RemoteFetchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrCircuitOpen, err))
		}
		if err != nil {
			if se != nil && !se.retryable() {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		result = res.(download)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.initial
	bo.MaxElapsedTime = f.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return result.body, result.contentType, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return download{}, backoff.Permanent(err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return download{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return download{}, &statusError{code: resp.StatusCode, body: string(b)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return download{}, fmt.Errorf("read body: %w", err)
	}
	return download{body: body, contentType: resp.Header.Get("Content-Type")}, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

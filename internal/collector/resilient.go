package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"VCPScanner/internal/metrics"
	"VCPScanner/internal/model"
)

// ResilienceOptions tunes rate limiting, retries and the circuit breaker.
type ResilienceOptions struct {
	RatePerSecond   float64
	Burst           int
	Retries         int
	RetryBackoff    time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// ResilientFetcher guards a provider with a token bucket, a circuit breaker
// and retry with exponential backoff. Only ErrDataUnavailable is retried and
// counted against the breaker; unknown symbols never trip it.
type ResilientFetcher struct {
	inner   Fetcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retries int
	backoff time.Duration
}

// NewResilientFetcher wraps inner.
func NewResilientFetcher(inner Fetcher, opts ResilienceOptions) *ResilientFetcher {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, model.ErrDataUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return &ResilientFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		retries: opts.Retries,
		backoff: opts.RetryBackoff,
	}
}

func (f *ResilientFetcher) Name() string { return f.inner.Name() }

// State reports the breaker state, for health output.
func (f *ResilientFetcher) State() string { return f.breaker.State().String() }

func (f *ResilientFetcher) FetchHistorical(ctx context.Context, symbol, period, interval string) ([]model.OHLCV, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			wait := f.backoff * time.Duration(1<<uint(attempt-1))
			log.Debug().Str("symbol", symbol).Int("attempt", attempt+1).Dur("backoff", wait).Err(lastErr).
				Msg("retrying fetch")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		start := time.Now()
		res, err := f.breaker.Execute(func() (interface{}, error) {
			return f.inner.FetchHistorical(ctx, symbol, period, interval)
		})
		metrics.ObserveFetch(f.inner.Name(), time.Since(start))

		if err == nil {
			return res.([]model.OHLCV), nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w: %w", f.inner.Name(), model.ErrDataUnavailable, err)
		}
		if ctx.Err() != nil || !errors.Is(err, model.ErrDataUnavailable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", f.retries+1, lastErr)
}

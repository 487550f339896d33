package collector

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"VCPScanner/internal/cache"
	"VCPScanner/internal/metrics"
	"VCPScanner/internal/model"
)

// CachingFetcher serves series from a cache keyed by (symbol, period, interval).
// Cache failures are logged and fall through to the provider.
type CachingFetcher struct {
	inner Fetcher
	cache cache.SeriesCache
	ttl   time.Duration
}

// NewCachingFetcher wraps inner with c.
func NewCachingFetcher(inner Fetcher, c cache.SeriesCache, ttl time.Duration) *CachingFetcher {
	return &CachingFetcher{inner: inner, cache: c, ttl: ttl}
}

func (f *CachingFetcher) Name() string { return f.inner.Name() }

func (f *CachingFetcher) FetchHistorical(ctx context.Context, symbol, period, interval string) ([]model.OHLCV, error) {
	key := cache.Key{Symbol: symbol, Period: period, Interval: interval}

	bars, found, err := f.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.ObserveCache(metrics.CacheError)
		log.Warn().Err(err).Str("key", key.String()).Msg("series cache read failed")
	case found:
		metrics.ObserveCache(metrics.CacheHit)
		return bars, nil
	default:
		metrics.ObserveCache(metrics.CacheMiss)
	}

	bars, err = f.inner.FetchHistorical(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		if err := f.cache.Set(ctx, key, bars, f.ttl); err != nil {
			log.Warn().Err(err).Str("key", key.String()).Msg("series cache write failed")
		}
	}
	return bars, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"VCPScanner/internal/cache"
	"VCPScanner/internal/collector"
	"VCPScanner/internal/config"
	"VCPScanner/internal/scanner"
)

// deps holds the components shared by every command.
type deps struct {
	scanner   *scanner.Scanner
	resilient *collector.ResilientFetcher
	cache     cache.SeriesCache
}

func (d *deps) Close() {
	if d.cache == nil {
		return
	}
	if err := d.cache.Close(); err != nil {
		log.Warn().Err(err).Msg("close cache")
	}
}

// purger returns the cache as a Purger when it supports expiry sweeps.
func (d *deps) purger() cache.Purger {
	if p, ok := d.cache.(cache.Purger); ok {
		return p
	}
	return nil
}

func newFetcher(c *config.Config) (collector.Fetcher, error) {
	ds := c.DataSource
	switch ds.Provider {
	case config.ProviderYahoo:
		return collector.NewYahooFetcher(c.Proxy, ds.Timeout), nil
	case config.ProviderREST:
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, c.Proxy, ds.Timeout), nil
	case config.ProviderMock:
		return &collector.MockFetcher{Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
	}
}

// buildDeps wires provider -> resilience -> cache -> scanner.
func buildDeps(ctx context.Context, c *config.Config) (*deps, error) {
	base, err := newFetcher(c)
	if err != nil {
		return nil, err
	}
	resilient := collector.NewResilientFetcher(base, collector.ResilienceOptions{
		RatePerSecond:   c.Resilience.RatePerSecond,
		Burst:           c.Resilience.Burst,
		Retries:         c.Resilience.Retries,
		RetryBackoff:    c.Resilience.RetryBackoff,
		BreakerFailures: c.Resilience.BreakerFailures,
		BreakerTimeout:  c.Resilience.BreakerTimeout,
	})

	seriesCache, err := cache.Open(ctx, cache.Options{
		Backend:       c.Cache.Backend,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		SQLitePath:    c.Cache.SQLitePath,
	})
	if err != nil {
		log.Warn().Err(err).Str("backend", c.Cache.Backend).Msg("cache unavailable, fetching without cache")
		seriesCache = nil
	}

	var fetcher collector.Fetcher = resilient
	if seriesCache != nil {
		fetcher = collector.NewCachingFetcher(resilient, seriesCache, c.Cache.TTL)
	}
	log.Info().Str("provider", base.Name()).Str("cache", c.Cache.Backend).Msg("data source ready")

	return &deps{
		scanner: scanner.New(fetcher, scanner.Options{
			Workers:       c.Scan.Workers,
			SymbolTimeout: c.Scan.SymbolTimeout,
			Period:        c.DataSource.Period,
			Interval:      c.DataSource.Interval,
		}),
		resilient: resilient,
		cache:     seriesCache,
	}, nil
}

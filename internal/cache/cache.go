package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"VCPScanner/internal/model"
)

// Key identifies one cached series. Entries never cross a period or interval.
type Key struct {
	Symbol   string
	Period   string
	Interval string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", strings.ToUpper(k.Symbol), k.Period, k.Interval)
}

// SeriesCache stores historical bars with a TTL.
type SeriesCache interface {
	// Get returns the cached bars. found is false on a miss or an expired entry.
	Get(ctx context.Context, key Key) (bars []model.OHLCV, found bool, err error)
	Set(ctx context.Context, key Key, bars []model.OHLCV, ttl time.Duration) error
	Close() error
}

// Backend names accepted in configuration.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Purger is implemented by backends that need explicit eviction of expired entries.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
}

// Open builds the configured backend. It returns a nil cache for BackendNone.
func Open(ctx context.Context, opts Options) (SeriesCache, error) {
	switch opts.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		return NewMemoryCache(), nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendSQLite:
		c, err := NewSQLiteCache(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

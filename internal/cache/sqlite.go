package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"VCPScanner/internal/model"
)

// SQLiteCache keeps series in a local SQLite file so restarts reuse fresh data.
type SQLiteCache struct {
	db  *sqlx.DB
	mu  sync.Mutex
	now func() time.Time
}

type cacheRow struct {
	Payload   []byte `db:"payload"`
	ExpiresAt int64  `db:"expires_at"`
}

// NewSQLiteCache opens (or creates) the SQLite database and runs migrations.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	c := &SQLiteCache{db: db, now: time.Now}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite series cache opened")
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS series_cache (
			cache_key  TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_series_expires ON series_cache(expires_at)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key Key) ([]model.OHLCV, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var row cacheRow
	err := c.db.GetContext(ctx, &row,
		`SELECT payload, expires_at FROM series_cache WHERE cache_key = ?`, key.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select cached series: %w", err)
	}
	if c.now().UnixNano() >= row.ExpiresAt {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM series_cache WHERE cache_key = ?`, key.String()); err != nil {
			return nil, false, fmt.Errorf("delete expired series: %w", err)
		}
		return nil, false, nil
	}

	var bars []model.OHLCV
	if err := json.Unmarshal(row.Payload, &bars); err != nil {
		return nil, false, fmt.Errorf("decode cached series: %w", err)
	}
	return bars, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key Key, bars []model.OHLCV, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO series_cache (cache_key, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		key.String(), payload, c.now().Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert cached series: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired row.
func (c *SQLiteCache) PurgeExpired(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, `DELETE FROM series_cache WHERE expires_at <= ?`, c.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge expired series: %w", err)
	}
	return res.RowsAffected()
}

func (c *SQLiteCache) Close() error {
	log.Info().Msg("closing sqlite series cache")
	return c.db.Close()
}

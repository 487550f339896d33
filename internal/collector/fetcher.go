package collector

import (
	"context"

	"VCPScanner/internal/model"
)

// Fetcher defines the interface for fetching market data.
//
// FetchHistorical returns bars in ascending time order. It fails with an error
// wrapping model.ErrNotFound for unknown symbols or empty results and
// model.ErrDataUnavailable for provider failures.
type Fetcher interface {
	FetchHistorical(ctx context.Context, symbol, period, interval string) ([]model.OHLCV, error)
	Name() string
}

package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"VCPScanner/internal/collector"
	"VCPScanner/internal/metrics"
	"VCPScanner/internal/model"
	"VCPScanner/internal/strategy"
)

// Options configures a Scanner.
type Options struct {
	Workers       int
	SymbolTimeout time.Duration
	Period        string
	Interval      string
}

// Scanner runs VCP classification and scoring over many symbols.
type Scanner struct {
	fetcher collector.Fetcher
	opts    Options
}

// New creates a Scanner. Zero options fall back to 4 workers, a 15s
// per-symbol timeout and a 1y/1d range.
func New(fetcher collector.Fetcher, opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.SymbolTimeout <= 0 {
		opts.SymbolTimeout = 15 * time.Second
	}
	if opts.Period == "" {
		opts.Period = model.DefaultPeriod
	}
	if opts.Interval == "" {
		opts.Interval = model.DefaultInterval
	}
	return &Scanner{fetcher: fetcher, opts: opts}
}

// outcome is the result of one symbol's unit of work.
type outcome struct {
	result *model.ScanResult
	err    error
}

// Scan returns the ranked VCP candidates among symbols.
func (s *Scanner) Scan(ctx context.Context, symbols []string, params model.ScanParameters) ([]model.ScanResult, error) {
	report, err := s.Run(ctx, symbols, params)
	if err != nil {
		return nil, err
	}
	return report.Results, nil
}

// Run scans symbols with a bounded worker pool. Per-symbol failures are
// recorded in the report and never abort the scan. Invalid parameters are
// rejected before any work starts. If ctx is cancelled the scan returns
// ctx.Err() and no results.
func (s *Scanner) Run(ctx context.Context, symbols []string, params model.ScanParameters) (*model.ScanReport, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		symbols = model.DefaultSymbols
	}

	report := &model.ScanReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Results:   []model.ScanResult{},
		Skipped:   []model.SymbolFailure{},
	}
	logger := log.With().Str("scan_id", report.ID).Logger()
	logger.Info().Int("symbols", len(symbols)).Int("workers", s.opts.Workers).Msg("scan started")

	outcomes := make([]outcome, len(symbols))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.opts.Workers
	if workers > len(symbols) {
		workers = len(symbols)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					outcomes[i] = outcome{err: ctx.Err()}
					continue
				}
				res, err := s.scanSymbol(ctx, symbols[i], params)
				outcomes[i] = outcome{result: res, err: err}
			}
		}()
	}

feed:
	for i := range symbols {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Msg("scan cancelled")
		return nil, err
	}

	for i, o := range outcomes {
		switch {
		case o.err != nil:
			kind := model.FailureKind(o.err)
			metrics.ObserveSymbol(kind)
			logger.Warn().Str("symbol", symbols[i]).Str("kind", kind).Err(o.err).Msg("symbol skipped")
			report.Skipped = append(report.Skipped, model.SymbolFailure{
				Symbol: symbols[i],
				Kind:   kind,
				Error:  o.err.Error(),
			})
		case o.result != nil:
			metrics.ObserveSymbol(metrics.OutcomeMatched)
			report.Results = append(report.Results, *o.result)
		default:
			metrics.ObserveSymbol(metrics.OutcomeRejected)
		}
	}
	Rank(report.Results)

	report.Scanned = len(symbols)
	report.Duration = time.Since(report.StartedAt)
	metrics.ObserveScan(report.Duration)
	logger.Info().Int("matched", len(report.Results)).Int("skipped", len(report.Skipped)).
		Dur("duration", report.Duration).Msg("scan finished")
	return report, nil
}

// scanSymbol fetches, classifies and scores one symbol. A nil result with a
// nil error means the symbol did not match.
func (s *Scanner) scanSymbol(ctx context.Context, symbol string, params model.ScanParameters) (*model.ScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SymbolTimeout)
	defer cancel()

	bars, err := s.fetcher.FetchHistorical(ctx, symbol, s.opts.Period, s.opts.Interval)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	last, ok := model.LastBar(bars)
	if !ok {
		return nil, fmt.Errorf("fetch %s: empty series: %w", symbol, model.ErrNotFound)
	}

	matched, err := strategy.IsVCP(bars, params)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", symbol, err)
	}
	if !matched {
		return nil, nil
	}
	score, err := strategy.Score(bars, params)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", symbol, err)
	}
	return &model.ScanResult{
		Symbol:      symbol,
		Price:       last.Close,
		Volume:      last.Volume,
		Contraction: params.ContractionPeriod,
		Pattern:     model.PatternVCP,
		Score:       score,
	}, nil
}

// Analyze classifies and scores a single symbol without ranking.
func (s *Scanner) Analyze(ctx context.Context, symbol, period, interval string, params model.ScanParameters) (*model.Analysis, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	bars, err := s.Historical(ctx, symbol, period, interval)
	if err != nil {
		return nil, err
	}
	last, ok := model.LastBar(bars)
	if !ok {
		return nil, fmt.Errorf("%s: empty series: %w", symbol, model.ErrNotFound)
	}

	c, err := strategy.Classify(bars, params)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", symbol, err)
	}
	analysis := &model.Analysis{
		Symbol:        strings.ToUpper(strings.TrimSpace(symbol)),
		IsVCP:         c.Matched,
		CurrentPrice:  last.Close,
		CurrentVolume: last.Volume,
		Reason:        c.Reason,
		RSI:           c.RSI,
	}

	ps, err := strategy.Evaluate(bars, params)
	switch {
	case err == nil:
		analysis.Score = ps.Total
		analysis.Breakdown = ps
	case c.Matched || !errors.Is(err, model.ErrArithmeticFault):
		return nil, fmt.Errorf("score %s: %w", symbol, err)
	default:
		log.Debug().Str("symbol", symbol).Err(err).Msg("score undefined for non-matching series")
	}
	return analysis, nil
}

// Historical fetches the raw series for one symbol.
func (s *Scanner) Historical(ctx context.Context, symbol, period, interval string) ([]model.OHLCV, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", model.ErrInvalidParameters)
	}
	if period == "" {
		period = s.opts.Period
	}
	if interval == "" {
		interval = s.opts.Interval
	}
	if err := model.ValidateRange(period, interval); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.SymbolTimeout)
	defer cancel()

	bars, err := s.fetcher.FetchHistorical(ctx, symbol, period, interval)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: empty series: %w", symbol, model.ErrNotFound)
	}
	return bars, nil
}

// Rank orders results by descending score, keeping input order for ties.
func Rank(results []model.ScanResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// NormalizeSymbols trims and upper-cases symbols, dropping blanks and
// duplicates while keeping first-seen order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

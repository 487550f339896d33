package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"VCPScanner/internal/cache"
	"VCPScanner/internal/model"
	"VCPScanner/internal/notifier"
)

// Runner is the scanning surface scheduled jobs use.
type Runner interface {
	Run(ctx context.Context, symbols []string, params model.ScanParameters) (*model.ScanReport, error)
	Analyze(ctx context.Context, symbol, period, interval string, params model.ScanParameters) (*model.Analysis, error)
}

// Sender delivers formatted messages. A nil Sender disables notifications.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron tasks of the scanner.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier Sender
	Purger   cache.Purger
	Symbols  []string
	Params   model.ScanParameters
	Ctx      context.Context

	mu   sync.Mutex
	last *model.ScanReport
}

// NewScheduler creates a new Scheduler. purger may be nil when the cache
// backend does not expire entries on its own.
func NewScheduler(ctx context.Context, runner Runner, sender Sender, purger cache.Purger, symbols []string, params model.ScanParameters) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: sender,
		Purger:   purger,
		Symbols:  symbols,
		Params:   params,
		Ctx:      ctx,
	}
}

// RegisterAll registers the watchlist scan and, when a purger is set,
// the cache purge task.
func (s *Scheduler) RegisterAll(scanCron, purgeCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	if s.Purger != nil && purgeCron != "" {
		if _, err := s.Cron.AddFunc(purgeCron, s.purgeTask); err != nil {
			return fmt.Errorf("register purge task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the watchlist scan immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.scanTask()
}

// LastReport returns the most recent successful scheduled scan, if any.
func (s *Scheduler) LastReport() *model.ScanReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) scanTask() {
	log.Info().Int("symbols", len(s.Symbols)).Msg("running watchlist scan")
	report, err := s.Runner.Run(s.Ctx, s.Symbols, s.Params)
	if err != nil {
		log.Error().Err(err).Msg("watchlist scan failed")
		s.trySend(fmt.Sprintf("❌ VCP scan failed: %v", err))
		return
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	for i, r := range report.Results {
		if i == 5 {
			break
		}
		log.Info().Str("scan_id", report.ID).Int("rank", i+1).Str("symbol", r.Symbol).
			Float64("score", r.Score).Float64("price", r.Price).Msg("vcp candidate")
	}
	s.trySend(notifier.FormatScanReport(report))
}

func (s *Scheduler) purgeTask() {
	n, err := s.Purger.PurgeExpired(s.Ctx)
	if err != nil {
		log.Error().Err(err).Msg("purge cache")
		return
	}
	log.Debug().Int64("removed", n).Msg("expired cache entries purged")
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch strings.ToLower(fields[0]) {
	case "/scan":
		report, err := s.Runner.Run(ctx, s.Symbols, s.Params)
		if err != nil {
			return fmt.Sprintf("❌ scan failed: %v", err)
		}
		return notifier.FormatScanReport(report)
	case "/analyze":
		if len(fields) < 2 {
			return "usage: /analyze SYMBOL"
		}
		a, err := s.Runner.Analyze(ctx, fields[1], "", "", s.Params)
		if err != nil {
			return fmt.Sprintf("❌ analyze %s failed: %v", strings.ToUpper(fields[1]), err)
		}
		return notifier.FormatAnalysis(a)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

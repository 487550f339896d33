package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"VCPScanner/internal/notifier"
	"VCPScanner/internal/scheduler"
	"VCPScanner/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API with scheduled scans",
	Long: `Start the HTTP API, the cron scheduler for watchlist scans and, when a
bot token and chat id are configured, Telegram command polling.
Set RUN_ON_START=true to scan the watchlist immediately.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Info().Msg("vcpscanner starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, d.scanner, sender, d.purger(), cfg.Scan.Symbols, cfg.Scan.Defaults)
	if err := sched.RegisterAll(cfg.Schedule.ScanCron, cfg.Schedule.PurgeCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, scanning watchlist now")
		go sched.RunNow()
	}

	srv := server.New(server.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		ReadTimeout:   cfg.Server.Timeouts.Read,
		WriteTimeout:  cfg.Server.Timeouts.Write,
		IdleTimeout:   cfg.Server.Timeouts.Idle,
		Defaults:      cfg.Scan.Defaults,
	}, d.scanner, func() map[string]string {
		return map[string]string{
			"provider": cfg.DataSource.Provider,
			"breaker":  d.resilient.State(),
			"cache":    cfg.Cache.Backend,
		}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("vcpscanner stopped")
	return nil
}

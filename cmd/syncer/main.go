package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/progress-sync/internal/config"
	"github.com/p-blackswan/progress-sync/internal/engine"
	"github.com/p-blackswan/progress-sync/internal/health"
	jiraclient "github.com/p-blackswan/progress-sync/internal/jira"
	"github.com/p-blackswan/progress-sync/internal/metrics"
	"github.com/p-blackswan/progress-sync/internal/mgmt"
	"github.com/p-blackswan/progress-sync/internal/notify"
	"github.com/p-blackswan/progress-sync/internal/report"
	"github.com/p-blackswan/progress-sync/internal/smartsheet"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Set log level
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int64("sheet_id", cfg.SheetID).
		Bool("dry_run", cfg.DryRun).
		Bool("interval_mode", cfg.IntervalMode()).
		Msg("starting progress sync")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Jira source
	jc := jiraclient.NewClient(cfg.JiraBaseURL, jiraclient.BasicAuth{Email: cfg.JiraEmail, Token: cfg.JiraAPIToken}, logger)
	source, err := jiraclient.NewSource(ctx, jc, jiraclient.SourceConfig{
		StartField: cfg.JiraStartField,
		EndField:   cfg.JiraEndField,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init Jira source")
	}

	// Smartsheet dashboard
	sc := smartsheet.NewClient(smartsheet.DefaultBaseURL, cfg.SmartsheetToken, logger)
	dashboard := smartsheet.NewDashboard(sc, cfg.SheetID, smartsheet.Columns{
		Jira:     cfg.JiraColumn,
		Progress: cfg.ProgressColumn,
		Status:   cfg.StatusColumn,
		Start:    cfg.StartColumn,
		End:      cfg.EndColumn,
	}, logger)

	coordinator := engine.NewCoordinator(source, dashboard, engine.Config{
		Options: engine.Options{
			IncludeSubtasks: cfg.IncludeSubtasks,
			ProtectProgress: cfg.ProtectProgress,
			ProtectDates:    cfg.ProtectDates,
		},
		DryRun: cfg.DryRun,
	}, logger)

	collector := metrics.New()

	var notifier *notify.SlackNotifier
	if cfg.SlackEnabled() {
		notifier = notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, logger)
		logger.Info().Str("channel", cfg.SlackChannel).Msg("Slack notifications enabled")
	}

	runOnce := func(ctx context.Context) *engine.Summary {
		sum, err := coordinator.Run(ctx)
		if err != nil {
			collector.ObserveRunError()
			logger.Error().Err(err).Msg("run failed")
			return nil
		}
		collector.ObserveRun(sum)
		if notifier != nil && !sum.DryRun {
			if nerr := notifier.PostRunSummary(ctx, sum); nerr != nil {
				logger.Warn().Err(nerr).Msg("slack notification failed")
			}
		}
		return sum
	}

	if !cfg.IntervalMode() {
		go func() {
			<-sigCh
			cancel()
		}()
		sum := runOnce(ctx)
		if sum == nil {
			os.Exit(1)
		}
		if cfg.DryRun {
			report.WriteTable(os.Stdout, sum)
		}
		return
	}

	// Interval mode: admin server plus a ticker loop.
	checker := health.NewChecker(logger)
	checker.Register("jira", func(ctx context.Context) health.Status {
		if _, err := jc.Fields(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})
	checker.Register("smartsheet", func(ctx context.Context) health.Status {
		if _, err := sc.GetSheet(ctx, cfg.SheetID); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	server := mgmt.NewServer(cfg.MgmtListenAddr, checker, collector, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	publish := func(sum *engine.Summary) {
		if sum != nil {
			server.SetLastRun(sum)
		}
	}

	publish(runOnce(ctx))

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			publish(runOnce(ctx))
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
			cancel()
			if err := server.Shutdown(); err != nil {
				logger.Warn().Err(err).Msg("admin server shutdown error")
			}
			return
		}
	}
}

package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	payoutengine "clipay/contexts/finance-core/payout-engine"
	"clipay/contexts/finance-core/payout-engine/adapters/metrics"
	postgresadapter "clipay/contexts/finance-core/payout-engine/adapters/postgres"
	"clipay/contexts/finance-core/payout-engine/adapters/scraper"
	"clipay/contexts/finance-core/payout-engine/domain/services"
	contractsv1 "clipay/contracts/gen/events/v1"
	"clipay/internal/platform/config"
	"clipay/internal/platform/db"
	"clipay/internal/platform/httpserver"
	"clipay/internal/platform/logging"
	"clipay/internal/platform/messaging"

	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const (
	topicPayoutExecuted = "campaign.payout_executed"
	auditConsumerGroup  = "payout-audit-cg"
)

type APIApp struct {
	server    *httpserver.Server
	database  *db.Database
	logCloser io.Closer
	logger    *slog.Logger
}

type WorkerApp struct {
	database  *db.Database
	logCloser io.Closer
	bus       *messaging.Bus
	module    payoutengine.Module
	cfg       config.Config
	logger    *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, closer := setupLogging(cfg, "api")

	database, err := openDatabase(cfg, logger)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	module, err := buildModule(cfg, database, nil, nil, logger)
	if err != nil {
		_ = database.Close()
		_ = closer.Close()
		return nil, err
	}

	server := httpserver.New(module, nil, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:    server,
		database:  database,
		logCloser: closer,
		logger:    logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, closer := setupLogging(cfg, "worker")

	database, err := openDatabase(cfg, logger)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	bus := messaging.NewBus(cfg.KafkaBrokers, logger)
	var fetcher *scraper.Client
	if cfg.EnableViewRefresh {
		fetcher = scraper.NewClient(cfg.ScraperBaseURL, cfg.ScraperTimeout)
	}
	module, err := buildModule(cfg, database, bus, fetcher, logger)
	if err != nil {
		_ = database.Close()
		_ = closer.Close()
		return nil, err
	}

	return &WorkerApp{
		database:  database,
		logCloser: closer,
		bus:       bus,
		module:    module,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

func setupLogging(cfg config.Config, process string) (*slog.Logger, io.Closer) {
	return logging.Setup(logging.Options{
		Service:    cfg.ServiceName,
		Process:    process,
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
}

// openDatabase prefers postgres and falls back to a sqlite file for local runs.
func openDatabase(cfg config.Config, logger *slog.Logger) (*db.Database, error) {
	var (
		database *db.Database
		err      error
	)
	switch {
	case strings.TrimSpace(cfg.PostgresDSN) != "":
		database, err = db.Connect(cfg.PostgresDSN)
	case strings.TrimSpace(cfg.SQLitePath) != "":
		database, err = db.ConnectSQLite(cfg.SQLitePath)
	default:
		return nil, errors.New("POSTGRES_DSN or SQLITE_PATH is required")
	}
	if err != nil {
		return nil, err
	}
	if err := postgresadapter.AutoMigrate(database.DB); err != nil {
		_ = database.Close()
		return nil, err
	}
	logger.Info("database ready",
		"event", "bootstrap_database_ready",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"driver", database.Driver,
	)
	return database, nil
}

func buildModule(
	cfg config.Config,
	database *db.Database,
	publisher *messaging.Bus,
	fetcher *scraper.Client,
	logger *slog.Logger,
) (payoutengine.Module, error) {
	schedule, err := cycleSchedule(cfg)
	if err != nil {
		return payoutengine.Module{}, err
	}

	var opts []postgresadapter.Option
	if database.Driver == db.DriverSQLite {
		opts = append(opts, postgresadapter.WithSnapshotTxOptions(nil))
	}
	repo := postgresadapter.NewRepository(database.DB, logger, opts...)

	deps := payoutengine.Dependencies{
		Store:   repo,
		Clock:   postgresadapter.SystemClock{},
		IDGen:   postgresadapter.UUIDGenerator{},
		Metrics: metrics.Default(),
		Tracer:  otel.Tracer("clipay/payout-engine"),
		Calculator: services.Calculator{
			Policy: services.RatePolicy(cfg.PayoutRatePolicy),
		},
		Schedule:         schedule,
		CommitTimeout:    cfg.PayoutCommitTimeout,
		BulkConcurrency:  cfg.PayoutBulkConcurrency,
		RefreshBatchSize: cfg.ViewRefreshBatch,
		RefreshLimiter:   rate.NewLimiter(rate.Limit(cfg.ViewRefreshRate), 1),
		Logger:           logger,
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	if fetcher != nil {
		deps.Fetcher = fetcher
	}
	return payoutengine.NewModule(deps), nil
}

func cycleSchedule(cfg config.Config) (services.CycleSchedule, error) {
	anchor, ok := services.ParseWeekday(cfg.PayoutAnchorWeekday)
	if !ok {
		return services.CycleSchedule{}, errors.New("invalid payout anchor weekday")
	}
	location, err := time.LoadLocation(cfg.PayoutTimeZone)
	if err != nil {
		return services.CycleSchedule{}, err
	}
	return services.CycleSchedule{Anchor: anchor, Location: location}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

func (a *APIApp) Close() error {
	var err error
	if a.database != nil {
		err = a.database.Close()
	}
	if a.logCloser != nil {
		err = errors.Join(err, a.logCloser.Close())
	}
	return err
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.bus.Subscribe(ctx, topicPayoutExecuted, auditConsumerGroup, w.auditPayout)

	ticker := time.NewTicker(w.cfg.WorkerPollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.cfg.WorkerPollInterval.String(),
		"scheduled_payouts", w.cfg.EnableScheduledPayouts,
		"lifecycle_sweep", w.cfg.EnableLifecycleSweep,
		"view_refresh", w.cfg.EnableViewRefresh,
	)

	for {
		w.tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// tick runs one pass of every enabled job. Job errors are logged and retried
// on the next tick.
func (w *WorkerApp) tick(ctx context.Context) {
	if w.cfg.EnableViewRefresh {
		w.runJob(ctx, "view_refresh", w.module.ViewRefresher.RunOnce)
	}
	if w.cfg.EnableScheduledPayouts {
		w.runJob(ctx, "scheduled_payouts", w.module.ScheduledPayouts.RunOnce)
	}
	if w.cfg.EnableLifecycleSweep {
		w.runJob(ctx, "lifecycle_sweep", w.module.LifecycleSweeper.RunOnce)
	}
	w.runJob(ctx, "outbox_relay", w.module.OutboxRelay.RunOnce)
}

func (w *WorkerApp) runJob(ctx context.Context, name string, run func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	if err := run(ctx); err != nil {
		w.logger.Error("worker job failed",
			"event", "bootstrap_worker_job_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"job", name,
			"error", err.Error(),
		)
	}
}

func (w *WorkerApp) auditPayout(_ context.Context, event contractsv1.Envelope) error {
	w.logger.Info("payout event received",
		"event", "payout_event_received",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
	)
	return nil
}

func (w *WorkerApp) Close() error {
	var err error
	if w.database != nil {
		err = w.database.Close()
	}
	if w.logCloser != nil {
		err = errors.Join(err, w.logCloser.Close())
	}
	return err
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

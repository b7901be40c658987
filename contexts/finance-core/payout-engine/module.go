package payoutengine

import (
	"log/slog"
	"time"

	httpadapter "clipay/contexts/finance-core/payout-engine/adapters/http"
	"clipay/contexts/finance-core/payout-engine/adapters/memory"
	"clipay/contexts/finance-core/payout-engine/application/commands"
	"clipay/contexts/finance-core/payout-engine/application/queries"
	"clipay/contexts/finance-core/payout-engine/application/workers"
	"clipay/contexts/finance-core/payout-engine/domain/services"
	"clipay/contexts/finance-core/payout-engine/ports"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Store is everything a single backing store provides to the module.
type Store interface {
	ports.LedgerStore
	ports.LedgerReader
	ports.CampaignLifecycle
	ports.VideoStatsRepository
	ports.OutboxRepository
}

type Module struct {
	Handler httpadapter.Handler

	ScheduledPayouts workers.ScheduledPayoutRunner
	LifecycleSweeper workers.LifecycleSweeper
	ViewRefresher    workers.ViewRefresher
	OutboxRelay      workers.OutboxRelay

	Store     *memory.Store
	Publisher *memory.Publisher
}

type Dependencies struct {
	Store     Store
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Fetcher   ports.ViewStatsFetcher
	Publisher ports.EventPublisher
	Metrics   ports.PayoutMetrics
	Tracer    trace.Tracer

	Calculator       services.Calculator
	Schedule         services.CycleSchedule
	CommitTimeout    time.Duration
	BulkConcurrency  int
	RefreshBatchSize int
	RefreshLimiter   *rate.Limiter
	Logger           *slog.Logger
}

func NewModule(deps Dependencies) Module {
	executePayout := commands.ExecutePayoutUseCase{
		Ledger:        deps.Store,
		Calculator:    deps.Calculator,
		Schedule:      deps.Schedule,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Metrics:       deps.Metrics,
		CommitTimeout: deps.CommitTimeout,
		Tracer:        deps.Tracer,
		Logger:        deps.Logger,
	}
	executeAll := commands.ExecuteAllPayoutsUseCase{
		Payout:      executePayout,
		Concurrency: deps.BulkConcurrency,
		Logger:      deps.Logger,
	}
	changeStatus := commands.ChangeStatusUseCase{
		Campaigns: deps.Store,
		Lifecycle: deps.Store,
		Schedule:  deps.Schedule,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}

	module := Module{
		Handler: httpadapter.Handler{
			ExecutePayout:     executePayout,
			ExecuteAllPayouts: executeAll,
			ChangeStatus:      changeStatus,
			GetRanking: queries.GetRankingUseCase{
				Ledger:     deps.Store,
				Calculator: deps.Calculator,
				Clock:      deps.Clock,
				Logger:     deps.Logger,
			},
			PreviewPayout: queries.PreviewPayoutUseCase{
				Ledger:     deps.Store,
				Calculator: deps.Calculator,
				Clock:      deps.Clock,
			},
			ListTransactions: queries.ListTransactionsUseCase{Ledger: deps.Store},
			GetAccount:       queries.GetAccountUseCase{Ledger: deps.Store},
			Logger:           deps.Logger,
		},
		ScheduledPayouts: workers.ScheduledPayoutRunner{
			Payouts: executeAll,
			Logger:  deps.Logger,
		},
		LifecycleSweeper: workers.LifecycleSweeper{
			Campaigns: deps.Store,
			Lifecycle: deps.Store,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Store,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
	}
	if deps.Fetcher != nil {
		module.ViewRefresher = workers.ViewRefresher{
			Videos:    deps.Store,
			Campaigns: deps.Store,
			Fetcher:   deps.Fetcher,
			Limiter:   deps.RefreshLimiter,
			Clock:     deps.Clock,
			BatchSize: deps.RefreshBatchSize,
			Logger:    deps.Logger,
		}
	}
	return module
}

func NewInMemoryModule(seed memory.Seed, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	publisher := memory.NewPublisher()
	module := NewModule(Dependencies{
		Store:     store,
		Clock:     store,
		IDGen:     store,
		Publisher: publisher,
		Schedule:  services.DefaultCycleSchedule(),
		Logger:    logger,
	})
	module.Store = store
	module.Publisher = publisher
	return module
}

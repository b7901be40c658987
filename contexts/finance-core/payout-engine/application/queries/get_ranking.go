package queries

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "clipay/contexts/finance-core/payout-engine/application"
	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/domain/services"
	"clipay/contexts/finance-core/payout-engine/ports"

	"github.com/shopspring/decimal"
)

type GetRankingQuery struct {
	CampaignID string
}

type Ranking struct {
	CampaignID   string
	TotalViews   int64
	EstimatedPot decimal.Decimal
	Entries      []entities.RankingEntry
	GeneratedAt  time.Time
}

// GetRankingUseCase is read-only. The estimated pot is informational and is
// zero for campaigns that cannot pay.
type GetRankingUseCase struct {
	Ledger     ports.LedgerStore
	Calculator services.Calculator
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (uc GetRankingUseCase) Execute(ctx context.Context, query GetRankingQuery) (Ranking, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID := strings.TrimSpace(query.CampaignID)
	if campaignID == "" {
		return Ranking{}, domainerrors.ErrInvalidInput
	}
	snapshot, err := uc.Ledger.LoadPayoutSnapshot(ctx, campaignID)
	if err != nil {
		return Ranking{}, err
	}

	now := uc.Clock.Now().UTC()
	estimated := decimal.Zero
	if snapshot.Campaign.IsActive() {
		pot, err := uc.Calculator.ComputePot(snapshot.Campaign, now)
		if err != nil && !errors.Is(err, domainerrors.ErrMalformedCampaign) {
			return Ranking{}, err
		}
		if err == nil {
			estimated = pot.WeeklyPot
		}
	}

	aggregate := services.AggregateViews(campaignID, snapshot.ApprovedVideos)
	entries := services.ProjectRanking(aggregate, snapshot.Accounts, estimated)

	logger.Debug("campaign ranking projected",
		"event", "campaign_ranking_projected",
		"module", application.ModuleName,
		"layer", "application",
		"campaign_id", campaignID,
		"entry_count", len(entries),
	)
	return Ranking{
		CampaignID:   campaignID,
		TotalViews:   aggregate.TotalViews,
		EstimatedPot: estimated,
		Entries:      entries,
		GeneratedAt:  now,
	}, nil
}

package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "clipay/contexts/finance-core/payout-engine/application"
	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/ports"
)

// LifecycleSweeper finishes active campaigns whose window closed or whose
// budget ran out.
type LifecycleSweeper struct {
	Campaigns ports.LedgerStore
	Lifecycle ports.CampaignLifecycle
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (j LifecycleSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	active, err := j.Campaigns.ListCampaigns(ctx, ports.CampaignFilter{Status: entities.CampaignStatusActive})
	if err != nil {
		logger.Error("lifecycle sweep failed",
			"event", "campaign_lifecycle_sweep_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	finished := 0
	for _, campaign := range active {
		if finished >= limit {
			break
		}
		reason := finishReason(campaign, now)
		if reason == "" {
			continue
		}
		err := j.Lifecycle.ApplyCampaignTransition(ctx, ports.CampaignTransition{
			CampaignID:      campaign.CampaignID,
			ExpectedVersion: campaign.PayoutVersion,
			From:            entities.CampaignStatusActive,
			To:              entities.CampaignStatusFinished,
			Reason:          reason,
			ActorID:         "lifecycle-sweeper",
			At:              now,
		})
		if errors.Is(err, domainerrors.ErrConcurrentPayoutConflict) {
			// A payout committed in between; the next sweep sees fresh state.
			continue
		}
		if err != nil {
			logger.Error("campaign finish failed",
				"event", "campaign_lifecycle_finish_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"campaign_id", campaign.CampaignID,
				"error", err.Error(),
			)
			return err
		}
		finished++
	}

	if finished > 0 {
		logger.Info("lifecycle sweep completed",
			"event", "campaign_lifecycle_sweep_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"finished_count", finished,
		)
	}
	return nil
}

func finishReason(campaign entities.Campaign, now time.Time) string {
	switch {
	case !campaign.HasFunds():
		return "budget_exhausted"
	case campaign.Ended(now):
		return "end_date_passed"
	default:
		return ""
	}
}

package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "clipay/contexts/finance-core/payout-engine/application"
	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/domain/services"
	"clipay/contexts/finance-core/payout-engine/ports"
)

type ChangeStatusAction string

const (
	StatusActionActivate ChangeStatusAction = "activate"
	StatusActionReject   ChangeStatusAction = "reject"
	StatusActionFinish   ChangeStatusAction = "finish"
)

type ChangeStatusCommand struct {
	CampaignID string
	ActorID    string
	Action     ChangeStatusAction
	Reason     string
}

type ChangeStatusResult struct {
	CampaignID   string
	FromStatus   entities.CampaignStatus
	ToStatus     entities.CampaignStatus
	NextPayoutAt *time.Time
}

// ChangeStatusUseCase moves a campaign through its moderation lifecycle.
// Activation arms the first payout boundary.
type ChangeStatusUseCase struct {
	Campaigns ports.LedgerStore
	Lifecycle ports.CampaignLifecycle
	Schedule  services.CycleSchedule
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (uc ChangeStatusUseCase) Execute(ctx context.Context, cmd ChangeStatusCommand) (ChangeStatusResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID := strings.TrimSpace(cmd.CampaignID)
	if campaignID == "" || strings.TrimSpace(cmd.ActorID) == "" {
		return ChangeStatusResult{}, domainerrors.ErrInvalidInput
	}
	campaign, err := uc.Campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return ChangeStatusResult{}, err
	}

	now := uc.Clock.Now().UTC()
	transition := ports.CampaignTransition{
		CampaignID:      campaign.CampaignID,
		ExpectedVersion: campaign.PayoutVersion,
		From:            campaign.Status,
		Reason:          strings.TrimSpace(cmd.Reason),
		ActorID:         strings.TrimSpace(cmd.ActorID),
		At:              now,
		NextPayoutAt:    campaign.NextPayoutAt,
	}
	switch cmd.Action {
	case StatusActionActivate:
		if campaign.Status != entities.CampaignStatusPendingPayment {
			return ChangeStatusResult{}, domainerrors.ErrInvalidStateTransition
		}
		if !campaign.WellFormed() || !campaign.HasFunds() {
			return ChangeStatusResult{}, domainerrors.ErrMalformedCampaign
		}
		next := uc.Schedule.Next(now)
		transition.To = entities.CampaignStatusActive
		transition.NextPayoutAt = &next
	case StatusActionReject:
		if campaign.Status != entities.CampaignStatusPendingPayment {
			return ChangeStatusResult{}, domainerrors.ErrInvalidStateTransition
		}
		transition.To = entities.CampaignStatusRejected
		transition.NextPayoutAt = nil
	case StatusActionFinish:
		if campaign.Status != entities.CampaignStatusActive {
			return ChangeStatusResult{}, domainerrors.ErrInvalidStateTransition
		}
		transition.To = entities.CampaignStatusFinished
		transition.NextPayoutAt = nil
	default:
		return ChangeStatusResult{}, domainerrors.ErrInvalidStateTransition
	}

	if err := uc.Lifecycle.ApplyCampaignTransition(ctx, transition); err != nil {
		return ChangeStatusResult{}, err
	}

	logger.Info("campaign state changed",
		"event", "campaign_state_changed",
		"module", application.ModuleName,
		"layer", "application",
		"campaign_id", campaign.CampaignID,
		"from_status", string(transition.From),
		"to_status", string(transition.To),
		"actor_id", transition.ActorID,
	)
	return ChangeStatusResult{
		CampaignID:   campaign.CampaignID,
		FromStatus:   transition.From,
		ToStatus:     transition.To,
		NextPayoutAt: transition.NextPayoutAt,
	}, nil
}

package queries

import (
	"context"
	"strings"

	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/domain/services"
	"clipay/contexts/finance-core/payout-engine/ports"

	"github.com/shopspring/decimal"
)

type PreviewPayoutQuery struct {
	CampaignID string
}

type PayoutPreview struct {
	CampaignID string
	Budget     decimal.Decimal
	Due        bool
	Allocation services.Allocation
}

// PreviewPayoutUseCase runs the calculator against current state without writing.
type PreviewPayoutUseCase struct {
	Ledger     ports.LedgerStore
	Calculator services.Calculator
	Clock      ports.Clock
}

func (uc PreviewPayoutUseCase) Execute(ctx context.Context, query PreviewPayoutQuery) (PayoutPreview, error) {
	campaignID := strings.TrimSpace(query.CampaignID)
	if campaignID == "" {
		return PayoutPreview{}, domainerrors.ErrInvalidInput
	}
	snapshot, err := uc.Ledger.LoadPayoutSnapshot(ctx, campaignID)
	if err != nil {
		return PayoutPreview{}, err
	}
	now := uc.Clock.Now().UTC()
	allocation, err := uc.Calculator.Allocate(snapshot.Campaign, snapshot.ApprovedVideos, now)
	if err != nil {
		return PayoutPreview{}, err
	}
	return PayoutPreview{
		CampaignID: campaignID,
		Budget:     snapshot.Campaign.Budget,
		Due:        snapshot.Campaign.IsActive() && snapshot.Campaign.HasFunds() && snapshot.Campaign.PayoutDue(now),
		Allocation: allocation,
	}, nil
}

package queries

import (
	"context"
	"testing"
	"time"

	"clipay/contexts/finance-core/payout-engine/adapters/memory"
	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func seededStore() *memory.Store {
	return memory.NewStore(memory.Seed{
		Campaigns: []entities.Campaign{
			{
				CampaignID: "camp-1",
				Budget:     decimal.NewFromInt(1000),
				StartDate:  day0,
				EndDate:    day0.AddDate(0, 0, 10),
				Status:     entities.CampaignStatusActive,
			},
			{
				CampaignID: "camp-2",
				Budget:     decimal.NewFromInt(1000),
				StartDate:  day0,
				EndDate:    day0.AddDate(0, 0, 10),
				Status:     entities.CampaignStatusPendingPayment,
			},
		},
		Videos: []entities.Video{
			{VideoID: "v1", UserID: "user-a", CampaignID: "camp-1", Views: 300, Status: entities.VideoStatusApproved, CreatedAt: day0},
			{VideoID: "v2", UserID: "user-b", CampaignID: "camp-1", Views: 700, Status: entities.VideoStatusApproved, CreatedAt: day0},
			{VideoID: "v3", UserID: "user-a", CampaignID: "camp-2", Views: 50, Status: entities.VideoStatusApproved, CreatedAt: day0},
		},
		Users: []entities.UserAccount{
			{UserID: "user-a", Name: "Ana", XP: decimal.NewFromInt(1200)},
			{UserID: "user-b", Name: "Bruno"},
		},
	})
}

func TestGetRankingEstimatesFromCurrentPot(t *testing.T) {
	store := seededStore()
	uc := GetRankingUseCase{Ledger: store, Clock: fixedClock{now: day0.AddDate(0, 0, 8)}}

	ranking, err := uc.Execute(context.Background(), GetRankingQuery{CampaignID: "camp-1"})
	require.NoError(t, err)
	require.EqualValues(t, 1000, ranking.TotalViews)
	require.Equal(t, "200.00", ranking.EstimatedPot.StringFixed(2))
	require.Len(t, ranking.Entries, 2)
	require.Equal(t, "user-b", ranking.Entries[0].UserID)
	require.Equal(t, "140.00", ranking.Entries[0].EstimatedEarnings.StringFixed(2))
	require.Equal(t, "Ana", ranking.Entries[1].Name)
	require.Equal(t, entities.RankTierSilver, ranking.Entries[1].Tier)
}

func TestGetRankingOfInactiveCampaignHasNoPot(t *testing.T) {
	uc := GetRankingUseCase{Ledger: seededStore(), Clock: fixedClock{now: day0}}

	ranking, err := uc.Execute(context.Background(), GetRankingQuery{CampaignID: "camp-2"})
	require.NoError(t, err)
	require.True(t, ranking.EstimatedPot.IsZero())
	require.Len(t, ranking.Entries, 1)
	require.True(t, ranking.Entries[0].EstimatedEarnings.IsZero())
	require.Equal(t, "100.00", ranking.Entries[0].SharePercentage.StringFixed(2))

	_, err = uc.Execute(context.Background(), GetRankingQuery{CampaignID: ""})
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestPreviewPayoutDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	uc := PreviewPayoutUseCase{Ledger: store, Clock: fixedClock{now: day0.AddDate(0, 0, 8)}}

	preview, err := uc.Execute(ctx, PreviewPayoutQuery{CampaignID: "camp-1"})
	require.NoError(t, err)
	require.True(t, preview.Due)
	require.Equal(t, "200.00", preview.Allocation.Distributed.StringFixed(2))

	pending, err := uc.Execute(ctx, PreviewPayoutQuery{CampaignID: "camp-2"})
	require.NoError(t, err)
	require.False(t, pending.Due)

	campaign, err := store.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	require.Equal(t, "1000", campaign.Budget.String())
	require.Empty(t, store.Transactions())
}

func TestListTransactionsClampsLimit(t *testing.T) {
	ledger := &capturingReader{}
	uc := ListTransactionsUseCase{Ledger: ledger}

	_, err := uc.Execute(context.Background(), ListTransactionsQuery{UserID: " user-a "})
	require.NoError(t, err)
	require.Equal(t, defaultTransactionLimit, ledger.last.Limit)
	require.Equal(t, "user-a", ledger.last.UserID)

	_, err = uc.Execute(context.Background(), ListTransactionsQuery{Limit: 10_000})
	require.NoError(t, err)
	require.Equal(t, maxTransactionLimit, ledger.last.Limit)
}

func TestGetAccountReportsTier(t *testing.T) {
	uc := GetAccountUseCase{Ledger: seededStore()}

	view, err := uc.Execute(context.Background(), GetAccountQuery{UserID: "user-a"})
	require.NoError(t, err)
	require.Equal(t, entities.RankTierSilver, view.Tier)

	_, err = uc.Execute(context.Background(), GetAccountQuery{UserID: "nobody"})
	require.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}

type capturingReader struct {
	last ports.TransactionFilter
}

func (r *capturingReader) ListTransactions(_ context.Context, filter ports.TransactionFilter) ([]entities.Transaction, error) {
	r.last = filter
	return nil, nil
}

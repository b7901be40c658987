package commands

import (
	"context"
	"testing"

	"clipay/contexts/finance-core/payout-engine/adapters/memory"
	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/domain/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newChangeStatus(store *memory.Store) ChangeStatusUseCase {
	return ChangeStatusUseCase{
		Campaigns: store,
		Lifecycle: store,
		Schedule:  services.DefaultCycleSchedule(),
		Clock:     fixedClock{now: day0.AddDate(0, 0, 1)},
		Logger:    discardLogger(),
	}
}

func pendingSeed() memory.Seed {
	seed := fixtureSeed()
	seed.Campaigns[0].Status = entities.CampaignStatusPendingPayment
	return seed
}

func TestActivateArmsFirstPayout(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(pendingSeed())

	result, err := newChangeStatus(store).Execute(ctx, ChangeStatusCommand{
		CampaignID: "camp-1",
		ActorID:    "admin-1",
		Action:     StatusActionActivate,
	})
	require.NoError(t, err)
	require.Equal(t, entities.CampaignStatusPendingPayment, result.FromStatus)
	require.Equal(t, entities.CampaignStatusActive, result.ToStatus)
	require.NotNil(t, result.NextPayoutAt)
	require.True(t, result.NextPayoutAt.Equal(day0.AddDate(0, 0, 7)))

	campaign, err := store.GetCampaign(ctx, "camp-1")
	require.NoError(t, err)
	require.True(t, campaign.IsActive())
	require.NotNil(t, campaign.ApprovedAt)
	require.EqualValues(t, 1, campaign.PayoutVersion)
}

func TestActivateRequiresFundedWellFormedCampaign(t *testing.T) {
	seed := pendingSeed()
	seed.Campaigns[0].Budget = decimal.Zero
	store := memory.NewStore(seed)

	_, err := newChangeStatus(store).Execute(context.Background(), ChangeStatusCommand{
		CampaignID: "camp-1",
		ActorID:    "admin-1",
		Action:     StatusActionActivate,
	})
	require.ErrorIs(t, err, domainerrors.ErrMalformedCampaign)
}

func TestStatusTransitionsFollowLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(pendingSeed())
	uc := newChangeStatus(store)

	_, err := uc.Execute(ctx, ChangeStatusCommand{CampaignID: "camp-1", ActorID: "admin-1", Action: StatusActionFinish})
	require.ErrorIs(t, err, domainerrors.ErrInvalidStateTransition)

	result, err := uc.Execute(ctx, ChangeStatusCommand{CampaignID: "camp-1", ActorID: "admin-1", Action: StatusActionReject, Reason: "chargeback"})
	require.NoError(t, err)
	require.Equal(t, entities.CampaignStatusRejected, result.ToStatus)
	require.Nil(t, result.NextPayoutAt)

	_, err = uc.Execute(ctx, ChangeStatusCommand{CampaignID: "camp-1", ActorID: "admin-1", Action: StatusActionActivate})
	require.ErrorIs(t, err, domainerrors.ErrInvalidStateTransition)

	_, err = uc.Execute(ctx, ChangeStatusCommand{CampaignID: "camp-1", ActorID: "admin-1", Action: "pause"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidStateTransition)

	_, err = uc.Execute(ctx, ChangeStatusCommand{CampaignID: "camp-1", Action: StatusActionReject})
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestFinishStopsPayouts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(fixtureSeed())

	result, err := newChangeStatus(store).Execute(ctx, ChangeStatusCommand{CampaignID: "camp-1", ActorID: "admin-1", Action: StatusActionFinish})
	require.NoError(t, err)
	require.Equal(t, entities.CampaignStatusFinished, result.ToStatus)

	payout, err := newPayoutUseCase(store, store, day0.AddDate(0, 0, 2)).Execute(ctx, ExecutePayoutCommand{CampaignID: "camp-1"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidCampaignState)
	require.Equal(t, PayoutOutcomeSkipped, payout.Outcome)
}

package services

import (
	"testing"
	"time"

	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func campaignFixture(budget int64, start time.Time, end time.Time) entities.Campaign {
	return entities.Campaign{
		CampaignID: "camp-1",
		Budget:     decimal.NewFromInt(budget),
		StartDate:  start,
		EndDate:    end,
		Status:     entities.CampaignStatusActive,
	}
}

func approvedVideo(id string, userID string, views int64) entities.Video {
	return entities.Video{
		VideoID:    id,
		UserID:     userID,
		CampaignID: "camp-1",
		Views:      views,
		Status:     entities.VideoStatusApproved,
		CreatedAt:  day0,
	}
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestAllocateSplitsPotByViews(t *testing.T) {
	campaign := campaignFixture(1000, day0, day0.AddDate(0, 0, 10))
	videos := []entities.Video{
		approvedVideo("v1", "user-a", 300),
		approvedVideo("v2", "user-b", 700),
	}

	allocation, err := Calculator{}.Allocate(campaign, videos, day0.AddDate(0, 0, 8))
	require.NoError(t, err)

	require.EqualValues(t, 10, allocation.Pot.TotalDays)
	require.EqualValues(t, 2, allocation.Pot.DaysRemaining)
	requireDecimal(t, "100", allocation.Pot.DailyBudget)
	requireDecimal(t, "200", allocation.Pot.WeeklyPot)
	require.False(t, allocation.Pot.Capped)

	require.Len(t, allocation.Shares, 2)
	require.Equal(t, "user-a", allocation.Shares[0].UserID)
	requireDecimal(t, "60", allocation.Shares[0].Amount)
	requireDecimal(t, "6", allocation.Shares[0].XPDelta)
	require.Equal(t, "user-b", allocation.Shares[1].UserID)
	requireDecimal(t, "140", allocation.Shares[1].Amount)
	requireDecimal(t, "200", allocation.Distributed)
	requireDecimal(t, "0", allocation.Dust)
	requireDecimal(t, "800", campaign.Budget.Sub(allocation.Distributed))
}

func TestAllocateWithoutVideosIsEmpty(t *testing.T) {
	campaign := campaignFixture(500, day0, day0.AddDate(0, 0, 30))

	allocation, err := Calculator{}.Allocate(campaign, nil, day0)
	require.NoError(t, err)
	require.True(t, allocation.Pot.WeeklyPot.IsPositive())
	require.True(t, allocation.Empty())
	requireDecimal(t, "0", allocation.Distributed)
}

func TestComputePotCappedAtRemainingBudget(t *testing.T) {
	// Campaign starts in five days and runs two, so seven days remain
	// against a two-day span.
	campaign := campaignFixture(50, day0.AddDate(0, 0, 5), day0.AddDate(0, 0, 7))

	pot, err := Calculator{}.ComputePot(campaign, day0)
	require.NoError(t, err)
	requireDecimal(t, "25", pot.DailyBudget)
	require.True(t, pot.Capped)
	requireDecimal(t, "50", pot.WeeklyPot)

	allocation := Calculator{}.Distribute(pot, AggregateViews("camp-1", []entities.Video{approvedVideo("v1", "user-a", 10)}))
	requireDecimal(t, "50", allocation.Distributed)
	requireDecimal(t, "0", campaign.Budget.Sub(allocation.Distributed))
}

func TestComputePotAfterEndIsExhausted(t *testing.T) {
	campaign := campaignFixture(100, day0, day0.AddDate(0, 0, 3))

	pot, err := Calculator{}.ComputePot(campaign, day0.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.True(t, pot.Exhausted)
	require.True(t, pot.WeeklyPot.IsZero())
}

func TestComputePotRejectsMalformedCampaign(t *testing.T) {
	negative := campaignFixture(-1, day0, day0.AddDate(0, 0, 3))
	_, err := Calculator{}.ComputePot(negative, day0)
	require.ErrorIs(t, err, domainerrors.ErrMalformedCampaign)

	inverted := campaignFixture(100, day0.AddDate(0, 0, 3), day0)
	_, err = Calculator{}.ComputePot(inverted, day0)
	require.ErrorIs(t, err, domainerrors.ErrMalformedCampaign)
}

func TestComputePotRemainingDaysPolicy(t *testing.T) {
	campaign := campaignFixture(1000, day0, day0.AddDate(0, 0, 10))
	calc := Calculator{Policy: RatePolicyRemainingDays}

	pot, err := calc.ComputePot(campaign, day0.AddDate(0, 0, 6))
	require.NoError(t, err)
	requireDecimal(t, "250", pot.DailyBudget)
	requireDecimal(t, "1000", pot.WeeklyPot)
	require.False(t, pot.Capped)
}

func TestDistributeNeverExceedsPot(t *testing.T) {
	pot := PotBreakdown{WeeklyPot: decimal.NewFromInt(100)}
	aggregate := AggregateViews("camp-1", []entities.Video{
		approvedVideo("v1", "user-a", 1),
		approvedVideo("v2", "user-b", 1),
		approvedVideo("v3", "user-c", 1),
	})

	allocation := Calculator{}.Distribute(pot, aggregate)
	require.Len(t, allocation.Shares, 3)
	for _, share := range allocation.Shares {
		requireDecimal(t, "33.33", share.Amount)
	}
	requireDecimal(t, "99.99", allocation.Distributed)
	requireDecimal(t, "0.01", allocation.Dust)
}

func TestDistributeTrimsRoundUpOverage(t *testing.T) {
	pot := PotBreakdown{WeeklyPot: decimal.RequireFromString("0.05")}
	aggregate := AggregateViews("camp-1", []entities.Video{
		approvedVideo("v1", "user-a", 1),
		approvedVideo("v2", "user-b", 1),
	})

	allocation := Calculator{}.Distribute(pot, aggregate)
	require.True(t, allocation.Distributed.LessThanOrEqual(pot.WeeklyPot))
	requireDecimal(t, "0.05", allocation.Distributed)
	require.Len(t, allocation.Shares, 2)
	requireDecimal(t, "0.02", allocation.Shares[0].Amount)
	requireDecimal(t, "0.03", allocation.Shares[1].Amount)
}

func TestDistributeSumPropertyAcrossManyShapes(t *testing.T) {
	pots := []string{"0.01", "1", "7.77", "99.99", "1000", "123456.78"}
	viewSets := [][]int64{{1}, {1, 2}, {3, 3, 3}, {1, 1, 1, 1, 1, 1, 1}, {999, 1, 17}, {5, 0, 8}}
	for _, rawPot := range pots {
		for _, views := range viewSets {
			videos := make([]entities.Video, 0, len(views))
			for i, count := range views {
				videos = append(videos, approvedVideo(string(rune('a'+i)), string(rune('a'+i)), count))
			}
			pot := PotBreakdown{WeeklyPot: decimal.RequireFromString(rawPot)}
			allocation := Calculator{}.Distribute(pot, AggregateViews("camp-1", videos))

			sum := decimal.Zero
			for _, share := range allocation.Shares {
				require.True(t, share.Amount.IsPositive())
				sum = sum.Add(share.Amount)
			}
			require.Truef(t, sum.Equal(allocation.Distributed), "pot %s views %v", rawPot, views)
			require.Truef(t, sum.LessThanOrEqual(pot.WeeklyPot), "pot %s views %v sum %s", rawPot, views, sum)
			require.True(t, allocation.Dust.GreaterThanOrEqual(decimal.Zero))
		}
	}
}

func TestDistributeDropsZeroViewContributors(t *testing.T) {
	pot := PotBreakdown{WeeklyPot: decimal.NewFromInt(10)}
	aggregate := AggregateViews("camp-1", []entities.Video{
		approvedVideo("v1", "user-a", 0),
		approvedVideo("v2", "user-b", 10),
	})

	allocation := Calculator{}.Distribute(pot, aggregate)
	require.Len(t, allocation.Shares, 1)
	require.Equal(t, "user-b", allocation.Shares[0].UserID)
}

func TestCustomXPMultiplier(t *testing.T) {
	pot := PotBreakdown{WeeklyPot: decimal.NewFromInt(10)}
	calc := Calculator{XPMultiplier: decimal.NewFromInt(2)}

	allocation := calc.Distribute(pot, AggregateViews("camp-1", []entities.Video{approvedVideo("v1", "user-a", 4)}))
	requireDecimal(t, "20", allocation.Shares[0].XPDelta)
}

func TestComputePotShortSpanPaysWholeBudget(t *testing.T) {
	campaign := campaignFixture(100, day0, day0.AddDate(0, 0, 3))

	allocation, err := Calculator{}.Allocate(campaign, []entities.Video{approvedVideo("v1", "user-a", 10)}, day0)
	require.NoError(t, err)
	requireDecimal(t, "100", allocation.Pot.WeeklyPot)
	requireDecimal(t, "100", allocation.Distributed)
	requireDecimal(t, "0", allocation.Dust)
	requireDecimal(t, "0", campaign.Budget.Sub(allocation.Distributed))
}

func TestComputePotNeverExceedsExactShare(t *testing.T) {
	// 100 over six days with five remaining is 500/6.
	campaign := campaignFixture(100, day0, day0.AddDate(0, 0, 6))

	pot, err := Calculator{}.ComputePot(campaign, day0.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.EqualValues(t, 5, pot.DaysRemaining)
	require.True(t, pot.WeeklyPot.Mul(decimal.NewFromInt(6)).LessThanOrEqual(decimal.NewFromInt(500)), pot.WeeklyPot.String())
	requireDecimal(t, "83.33", pot.WeeklyPot.Round(2))
}

package services

import (
	"testing"
	"time"

	"clipay/contexts/finance-core/payout-engine/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAggregateViewsIgnoresUnapprovedAndForeignVideos(t *testing.T) {
	pending := approvedVideo("v2", "user-a", 500)
	pending.Status = entities.VideoStatusPending
	foreign := approvedVideo("v3", "user-a", 900)
	foreign.CampaignID = "camp-2"
	negative := approvedVideo("v4", "user-b", -40)

	aggregate := AggregateViews("camp-1", []entities.Video{
		approvedVideo("v1", "user-a", 100),
		pending,
		foreign,
		negative,
	})
	require.EqualValues(t, 100, aggregate.TotalViews)
	require.Len(t, aggregate.Contributions, 2)
	require.Equal(t, "user-a", aggregate.Contributions[0].UserID)
	require.EqualValues(t, 0, aggregate.Contributions[1].Views)
}

func TestProjectRankingOrdersAndBreaksTies(t *testing.T) {
	early := approvedVideo("v1", "user-c", 400)
	early.CreatedAt = day0.Add(-time.Hour)
	videos := []entities.Video{
		approvedVideo("v2", "user-a", 400),
		early,
		approvedVideo("v3", "user-b", 100),
		approvedVideo("v4", "user-b", 100),
		approvedVideo("v5", "user-d", 400),
	}
	accounts := map[string]entities.UserAccount{
		"user-a": {UserID: "user-a", Name: "Ana", XP: decimal.NewFromInt(3500)},
	}

	entries := ProjectRanking(AggregateViews("camp-1", videos), accounts, decimal.NewFromInt(140))
	require.Len(t, entries, 4)

	order := []string{entries[0].UserID, entries[1].UserID, entries[2].UserID, entries[3].UserID}
	require.Equal(t, []string{"user-c", "user-a", "user-d", "user-b"}, order)
	for i, entry := range entries {
		require.Equal(t, i+1, entry.Position)
	}

	require.Equal(t, "Ana", entries[1].Name)
	require.Equal(t, entities.RankTierGold, entries[1].Tier)
	require.Equal(t, entities.RankTierBronze, entries[0].Tier)
	require.Equal(t, 2, entries[3].VideoCount)
	require.Equal(t, "28.57", entries[0].SharePercentage.StringFixed(2))
	require.Equal(t, "40.00", entries[0].EstimatedEarnings.StringFixed(2))
}

func TestProjectRankingWithoutViews(t *testing.T) {
	entries := ProjectRanking(AggregateViews("camp-1", nil), nil, decimal.NewFromInt(100))
	require.Empty(t, entries)

	zero := ProjectRanking(AggregateViews("camp-1", []entities.Video{approvedVideo("v1", "user-a", 0)}), nil, decimal.NewFromInt(100))
	require.Len(t, zero, 1)
	require.True(t, zero[0].SharePercentage.IsZero())
	require.True(t, zero[0].EstimatedEarnings.IsZero())
}

package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTierForXP(t *testing.T) {
	cases := map[string]RankTier{
		"0":       RankTierBronze,
		"1000.99": RankTierBronze,
		"1001":    RankTierSilver,
		"3000":    RankTierSilver,
		"3001":    RankTierGold,
		"8000.5":  RankTierGold,
		"8001":    RankTierDiamond,
	}
	for raw, want := range cases {
		require.Equalf(t, want, TierForXP(decimal.RequireFromString(raw)), "xp %s", raw)
	}
}

func TestContentRulesCheck(t *testing.T) {
	rules := ContentRules{RequiredHashtag: "#Launch", RequiredMention: "@brand"}

	require.Empty(t, rules.Check("Watch this #launch", "thanks @Brand"))
	require.Equal(t, []string{"missing hashtag #launch"}, rules.Check("no tag here", "@brand"))
	require.Len(t, rules.Check("", ""), 2)
	require.Empty(t, ContentRules{}.Check("", ""))
}

func TestCampaignPredicates(t *testing.T) {
	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	campaign := Campaign{
		Budget:    decimal.NewFromInt(10),
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 7),
		Status:    CampaignStatusActive,
	}
	require.True(t, campaign.WellFormed())
	require.True(t, campaign.HasFunds())
	require.True(t, campaign.PayoutDue(start))
	require.False(t, campaign.Ended(start.AddDate(0, 0, 6)))
	require.True(t, campaign.Ended(start.AddDate(0, 0, 7)))

	next := start.AddDate(0, 0, 1)
	campaign.NextPayoutAt = &next
	require.False(t, campaign.PayoutDue(start))
	require.True(t, campaign.PayoutDue(next))

	campaign.Budget = decimal.Zero
	require.False(t, campaign.HasFunds())
	require.True(t, campaign.WellFormed())
}

func TestVideoMergeViewsIsMonotonic(t *testing.T) {
	video := Video{Views: 100}
	require.EqualValues(t, 150, video.MergeViews(150))
	require.EqualValues(t, 100, video.MergeViews(20))
}

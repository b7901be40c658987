package services

import (
	"sort"

	"clipay/contexts/finance-core/payout-engine/domain/entities"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ProjectRanking builds the leaderboard for one campaign. Entries are ordered
// by total views descending, then earliest first submission, then user id.
// estimatedPot is informational only; it never drives a credit.
func ProjectRanking(
	aggregate ViewAggregate,
	accounts map[string]entities.UserAccount,
	estimatedPot decimal.Decimal,
) []entities.RankingEntry {
	entries := make([]entities.RankingEntry, 0, len(aggregate.Contributions))
	total := decimal.NewFromInt(aggregate.TotalViews)
	for _, item := range aggregate.Contributions {
		entry := entities.RankingEntry{
			UserID:            item.UserID,
			TotalViews:        item.Views,
			VideoCount:        item.VideoCount,
			SharePercentage:   decimal.Zero,
			EstimatedEarnings: decimal.Zero,
			FirstSubmittedAt:  item.FirstSubmittedAt,
			Tier:              entities.RankTierBronze,
		}
		if account, ok := accounts[item.UserID]; ok {
			entry.Name = account.Name
			entry.Tier = account.Tier()
		}
		if aggregate.TotalViews > 0 {
			views := decimal.NewFromInt(item.Views)
			entry.SharePercentage = views.Mul(hundred).Div(total).Round(2)
			if estimatedPot.IsPositive() {
				entry.EstimatedEarnings = estimatedPot.Mul(views).Div(total).Round(2)
			}
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalViews != entries[j].TotalViews {
			return entries[i].TotalViews > entries[j].TotalViews
		}
		if !entries[i].FirstSubmittedAt.Equal(entries[j].FirstSubmittedAt) {
			return entries[i].FirstSubmittedAt.Before(entries[j].FirstSubmittedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

package services

import (
	"sort"
	"time"

	"clipay/contexts/finance-core/payout-engine/domain/entities"
)

// Contribution is one user's aggregate over a campaign's approved videos.
type Contribution struct {
	UserID           string
	Views            int64
	VideoCount       int
	FirstSubmittedAt time.Time
}

// ViewAggregate is shared by the allocation and ranking paths.
type ViewAggregate struct {
	CampaignID    string
	TotalViews    int64
	Contributions []Contribution
}

// AggregateViews folds approved videos of one campaign into per-user totals.
// Videos that are not approved or belong to another campaign are ignored;
// negative counts are treated as zero. Contributions are ordered by user id.
func AggregateViews(campaignID string, videos []entities.Video) ViewAggregate {
	byUser := make(map[string]*Contribution)
	var total int64
	for _, video := range videos {
		if !video.IsApproved() || video.CampaignID != campaignID || video.UserID == "" {
			continue
		}
		views := max(video.Views, 0)
		item, ok := byUser[video.UserID]
		if !ok {
			item = &Contribution{UserID: video.UserID, FirstSubmittedAt: video.CreatedAt.UTC()}
			byUser[video.UserID] = item
		}
		item.Views += views
		item.VideoCount++
		if video.CreatedAt.UTC().Before(item.FirstSubmittedAt) {
			item.FirstSubmittedAt = video.CreatedAt.UTC()
		}
		total += views
	}

	contributions := make([]Contribution, 0, len(byUser))
	for _, item := range byUser {
		contributions = append(contributions, *item)
	}
	sort.Slice(contributions, func(i, j int) bool {
		return contributions[i].UserID < contributions[j].UserID
	})
	return ViewAggregate{
		CampaignID:    campaignID,
		TotalViews:    total,
		Contributions: contributions,
	}
}

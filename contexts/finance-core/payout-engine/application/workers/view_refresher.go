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

	"golang.org/x/time/rate"
)

const defaultRefreshBatch = 5

// ViewRefresher pulls fresh view counts for the least recently refreshed
// videos and re-checks campaign content rules. Stored views never go down.
type ViewRefresher struct {
	Videos    ports.VideoStatsRepository
	Campaigns ports.LedgerStore
	Fetcher   ports.ViewStatsFetcher
	Limiter   *rate.Limiter
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (w ViewRefresher) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(w.Logger)
	limit := w.BatchSize
	if limit <= 0 {
		limit = defaultRefreshBatch
	}

	videos, err := w.Videos.ListVideosForRefresh(ctx, limit)
	if err != nil {
		logger.Error("video refresh listing failed",
			"event", "video_refresh_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	rules := make(map[string]entities.ContentRules)
	refreshed := 0
	for _, video := range videos {
		campaignRules, ok := rules[video.CampaignID]
		if !ok {
			campaign, err := w.Campaigns.GetCampaign(ctx, video.CampaignID)
			if errors.Is(err, domainerrors.ErrCampaignNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			campaignRules = entities.ContentRules{
				RequiredHashtag: campaign.RequiredHashtag,
				RequiredMention: campaign.RequiredMention,
			}
			rules[video.CampaignID] = campaignRules
		}

		if w.Limiter != nil {
			if err := w.Limiter.Wait(ctx); err != nil {
				return err
			}
		}
		stats, err := w.Fetcher.FetchStats(ctx, video.URL)
		if err != nil {
			logger.Warn("video stats fetch failed",
				"event", "video_refresh_fetch_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"video_id", video.VideoID,
				"error", err.Error(),
			)
			continue
		}

		problems := campaignRules.Check(stats.Title, stats.Description)
		status := entities.VideoStatusApproved
		if len(problems) > 0 {
			status = entities.VideoStatusRejected
		}
		if err := w.Videos.UpdateVideoStats(ctx, ports.VideoStatsUpdate{
			VideoID:          video.VideoID,
			Views:            video.MergeViews(stats.Views),
			Status:           status,
			ValidationErrors: problems,
			RefreshedAt:      w.now(),
		}); err != nil {
			logger.Error("video stats update failed",
				"event", "video_refresh_update_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"video_id", video.VideoID,
				"error", err.Error(),
			)
			return err
		}
		refreshed++
	}

	if refreshed > 0 {
		logger.Info("video refresh cycle completed",
			"event", "video_refresh_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"refreshed_count", refreshed,
		)
	}
	return nil
}

func (w ViewRefresher) now() time.Time {
	if w.Clock != nil {
		return w.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

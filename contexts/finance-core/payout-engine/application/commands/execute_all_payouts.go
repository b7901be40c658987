package commands

import (
	"context"
	"log/slog"
	"sort"

	application "clipay/contexts/finance-core/payout-engine/application"
	"clipay/contexts/finance-core/payout-engine/domain/entities"
	"clipay/contexts/finance-core/payout-engine/ports"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const defaultBulkConcurrency = 4

type ExecuteAllPayoutsCommand struct {
	RequestedBy string
	Force       bool
}

type BulkPayoutReport struct {
	Results []PayoutResult
	Paid    int
	Skipped int
	Failed  int
}

// ExecuteAllPayoutsUseCase runs one independent payout per active campaign.
// A failure in one campaign never rolls back or blocks another.
type ExecuteAllPayoutsUseCase struct {
	Payout      ExecutePayoutUseCase
	Concurrency int
	Logger      *slog.Logger
}

func (uc ExecuteAllPayoutsUseCase) Execute(ctx context.Context, cmd ExecuteAllPayoutsCommand) (BulkPayoutReport, error) {
	logger := application.ResolveLogger(uc.Logger)
	ctx, span := uc.Payout.tracer().Start(ctx, "payout.execute_all")
	defer span.End()

	campaigns, err := uc.Payout.Ledger.ListCampaigns(ctx, ports.CampaignFilter{Status: entities.CampaignStatusActive})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("active campaign listing failed",
			"event", "campaign_bulk_payout_list_failed",
			"module", application.ModuleName,
			"layer", "application",
			"error", err.Error(),
		)
		return BulkPayoutReport{}, err
	}

	limit := uc.Concurrency
	if limit <= 0 {
		limit = defaultBulkConcurrency
	}
	results := make([]PayoutResult, len(campaigns))
	// Per-campaign errors are carried in each result; the group itself never fails.
	var group errgroup.Group
	group.SetLimit(limit)
	for i, campaign := range campaigns {
		group.Go(func() error {
			result, _ := uc.Payout.Execute(ctx, ExecutePayoutCommand{
				CampaignID:  campaign.CampaignID,
				RequestedBy: cmd.RequestedBy,
				Force:       cmd.Force,
			})
			results[i] = result
			return nil
		})
	}
	_ = group.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CampaignID < results[j].CampaignID
	})
	report := BulkPayoutReport{Results: results}
	for _, result := range results {
		switch result.Outcome {
		case PayoutOutcomePaid:
			report.Paid++
		case PayoutOutcomeSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	if uc.Payout.Metrics != nil {
		uc.Payout.Metrics.ObserveBulkRun(report.Paid, report.Skipped, report.Failed)
	}
	span.SetAttributes(
		attribute.Int("campaign_count", len(results)),
		attribute.Int("paid_count", report.Paid),
		attribute.Int("failed_count", report.Failed),
	)

	logger.Info("bulk payout run completed",
		"event", "campaign_bulk_payout_completed",
		"module", application.ModuleName,
		"layer", "application",
		"campaign_count", len(results),
		"paid_count", report.Paid,
		"skipped_count", report.Skipped,
		"failed_count", report.Failed,
	)
	return report, nil
}

package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"clipay/contexts/finance-core/payout-engine/application/commands"
	"clipay/contexts/finance-core/payout-engine/application/queries"
	"clipay/contexts/finance-core/payout-engine/domain/entities"
	"clipay/contexts/finance-core/payout-engine/domain/services"
	httptransport "clipay/contexts/finance-core/payout-engine/transport/http"
)

type Handler struct {
	ExecutePayout     commands.ExecutePayoutUseCase
	ExecuteAllPayouts commands.ExecuteAllPayoutsUseCase
	ChangeStatus      commands.ChangeStatusUseCase
	GetRanking        queries.GetRankingUseCase
	PreviewPayout     queries.PreviewPayoutUseCase
	ListTransactions  queries.ListTransactionsUseCase
	GetAccount        queries.GetAccountUseCase
	Logger            *slog.Logger
}

// ExecutePayoutHandler returns the result alongside the error so callers can
// report skipped and failed cycles with their reason.
func (h Handler) ExecutePayoutHandler(
	ctx context.Context,
	actorID string,
	campaignID string,
	req httptransport.ExecutePayoutRequest,
) (httptransport.ExecutePayoutResponse, error) {
	result, err := h.ExecutePayout.Execute(ctx, commands.ExecutePayoutCommand{
		CampaignID:  campaignID,
		RequestedBy: actorID,
		Force:       req.Force,
	})
	return httptransport.ExecutePayoutResponse{Result: mapPayoutResult(result)}, err
}

func (h Handler) ExecuteAllPayoutsHandler(
	ctx context.Context,
	actorID string,
	req httptransport.ExecutePayoutRequest,
) (httptransport.ExecuteAllPayoutsResponse, error) {
	report, err := h.ExecuteAllPayouts.Execute(ctx, commands.ExecuteAllPayoutsCommand{
		RequestedBy: actorID,
		Force:       req.Force,
	})
	if err != nil {
		return httptransport.ExecuteAllPayoutsResponse{}, err
	}
	items := make([]httptransport.PayoutResultDTO, 0, len(report.Results))
	for _, result := range report.Results {
		items = append(items, mapPayoutResult(result))
	}
	return httptransport.ExecuteAllPayoutsResponse{
		Paid:    report.Paid,
		Skipped: report.Skipped,
		Failed:  report.Failed,
		Results: items,
	}, nil
}

func (h Handler) ChangeStatusHandler(
	ctx context.Context,
	actorID string,
	campaignID string,
	action commands.ChangeStatusAction,
	req httptransport.StatusActionRequest,
) (httptransport.StatusActionResponse, error) {
	result, err := h.ChangeStatus.Execute(ctx, commands.ChangeStatusCommand{
		CampaignID: campaignID,
		ActorID:    actorID,
		Action:     action,
		Reason:     req.Reason,
	})
	if err != nil {
		return httptransport.StatusActionResponse{}, err
	}
	return httptransport.StatusActionResponse{
		CampaignID:   result.CampaignID,
		FromStatus:   string(result.FromStatus),
		ToStatus:     string(result.ToStatus),
		NextPayoutAt: formatOptionalTime(result.NextPayoutAt),
	}, nil
}

func (h Handler) GetRankingHandler(ctx context.Context, campaignID string) (httptransport.RankingResponse, error) {
	ranking, err := h.GetRanking.Execute(ctx, queries.GetRankingQuery{CampaignID: campaignID})
	if err != nil {
		return httptransport.RankingResponse{}, err
	}
	entries := make([]httptransport.RankingEntryDTO, 0, len(ranking.Entries))
	for _, entry := range ranking.Entries {
		entries = append(entries, mapRankingEntry(entry))
	}
	return httptransport.RankingResponse{
		CampaignID:   ranking.CampaignID,
		TotalViews:   ranking.TotalViews,
		EstimatedPot: ranking.EstimatedPot.StringFixed(2),
		Entries:      entries,
		GeneratedAt:  ranking.GeneratedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) PreviewPayoutHandler(ctx context.Context, campaignID string) (httptransport.PayoutPreviewResponse, error) {
	preview, err := h.PreviewPayout.Execute(ctx, queries.PreviewPayoutQuery{CampaignID: campaignID})
	if err != nil {
		return httptransport.PayoutPreviewResponse{}, err
	}
	shares := make([]httptransport.PreviewShareDTO, 0, len(preview.Allocation.Shares))
	for _, share := range preview.Allocation.Shares {
		shares = append(shares, httptransport.PreviewShareDTO{
			UserID:  share.UserID,
			Views:   share.Views,
			Amount:  share.Amount.StringFixed(2),
			XPDelta: share.XPDelta.String(),
		})
	}
	return httptransport.PayoutPreviewResponse{
		CampaignID:  preview.CampaignID,
		Budget:      preview.Budget.StringFixed(2),
		Due:         preview.Due,
		Pot:         mapPot(preview.Allocation.Pot),
		TotalViews:  preview.Allocation.TotalViews,
		Distributed: preview.Allocation.Distributed.StringFixed(2),
		Shares:      shares,
	}, nil
}

func (h Handler) ListTransactionsHandler(
	ctx context.Context,
	userID string,
	campaignID string,
	limit int,
) (httptransport.ListTransactionsResponse, error) {
	items, err := h.ListTransactions.Execute(ctx, queries.ListTransactionsQuery{
		UserID:     userID,
		CampaignID: campaignID,
		Limit:      limit,
	})
	if err != nil {
		return httptransport.ListTransactionsResponse{}, err
	}
	result := make([]httptransport.TransactionDTO, 0, len(items))
	for _, item := range items {
		result = append(result, httptransport.TransactionDTO{
			TransactionID: item.TransactionID,
			PayoutID:      item.PayoutID,
			UserID:        item.UserID,
			CampaignID:    item.CampaignID,
			Amount:        item.Amount.StringFixed(2),
			Type:          string(item.Type),
			CreatedAt:     item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return httptransport.ListTransactionsResponse{Items: result}, nil
}

func (h Handler) GetAccountHandler(ctx context.Context, userID string) (httptransport.AccountResponse, error) {
	view, err := h.GetAccount.Execute(ctx, queries.GetAccountQuery{UserID: userID})
	if err != nil {
		return httptransport.AccountResponse{}, err
	}
	return httptransport.AccountResponse{
		UserID:  view.Account.UserID,
		Name:    view.Account.Name,
		Role:    string(view.Account.Role),
		Balance: view.Account.Balance.StringFixed(2),
		XP:      view.Account.XP.String(),
		Tier:    string(view.Tier),
	}, nil
}

func mapPayoutResult(result commands.PayoutResult) httptransport.PayoutResultDTO {
	credits := make([]httptransport.PayoutCreditDTO, 0, len(result.Credits))
	for _, credit := range result.Credits {
		credits = append(credits, httptransport.PayoutCreditDTO{
			UserID:        credit.UserID,
			TransactionID: credit.TransactionID,
			Views:         credit.Views,
			Amount:        credit.Amount.StringFixed(2),
			XPDelta:       credit.XPDelta.String(),
		})
	}
	return httptransport.PayoutResultDTO{
		CampaignID:   result.CampaignID,
		PayoutID:     result.PayoutID,
		Outcome:      string(result.Outcome),
		Reason:       result.Reason,
		Retryable:    result.Retryable,
		Pot:          mapPot(result.Pot),
		TotalViews:   result.TotalViews,
		Distributed:  result.Distributed.StringFixed(2),
		BudgetBefore: result.BudgetBefore.StringFixed(2),
		BudgetAfter:  result.BudgetAfter.StringFixed(2),
		Credits:      credits,
		NextPayoutAt: formatOptionalTime(result.NextPayoutAt),
		ExecutedAt:   result.ExecutedAt.UTC().Format(time.RFC3339),
	}
}

func mapPot(pot services.PotBreakdown) httptransport.PotDTO {
	return httptransport.PotDTO{
		TotalDays:     pot.TotalDays,
		DaysRemaining: pot.DaysRemaining,
		DailyBudget:   pot.DailyBudget.StringFixed(2),
		WeeklyPot:     pot.WeeklyPot.StringFixed(2),
		Capped:        pot.Capped,
	}
}

func mapRankingEntry(entry entities.RankingEntry) httptransport.RankingEntryDTO {
	return httptransport.RankingEntryDTO{
		Position:          entry.Position,
		UserID:            entry.UserID,
		Name:              entry.Name,
		Tier:              string(entry.Tier),
		TotalViews:        entry.TotalViews,
		VideoCount:        entry.VideoCount,
		SharePercentage:   entry.SharePercentage.StringFixed(2),
		EstimatedEarnings: entry.EstimatedEarnings.StringFixed(2),
	}
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

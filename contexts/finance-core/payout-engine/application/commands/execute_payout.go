package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "clipay/contexts/finance-core/payout-engine/application"
	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/domain/services"
	"clipay/contexts/finance-core/payout-engine/ports"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultCommitTimeout = 10 * time.Second

type PayoutOutcome string

const (
	PayoutOutcomePaid    PayoutOutcome = "paid"
	PayoutOutcomeSkipped PayoutOutcome = "skipped"
	PayoutOutcomeFailed  PayoutOutcome = "failed"
)

type ExecutePayoutCommand struct {
	CampaignID  string
	RequestedBy string
	// Force pays even when the cycle marker is still in the future.
	Force bool
}

type PayoutCredit struct {
	UserID        string
	TransactionID string
	Views         int64
	Amount        decimal.Decimal
	XPDelta       decimal.Decimal
}

type PayoutResult struct {
	CampaignID   string
	PayoutID     string
	Outcome      PayoutOutcome
	Reason       string
	Retryable    bool
	Pot          services.PotBreakdown
	TotalViews   int64
	Distributed  decimal.Decimal
	Dust         decimal.Decimal
	BudgetBefore decimal.Decimal
	BudgetAfter  decimal.Decimal
	Credits      []PayoutCredit
	NextPayoutAt *time.Time
	ExecutedAt   time.Time
}

// ExecutePayoutUseCase runs one read-compute-commit cycle for a campaign.
// The commit is guarded by the snapshot's PayoutToken, so two cycles racing
// on the same campaign can never both apply.
type ExecutePayoutUseCase struct {
	Ledger        ports.LedgerStore
	Calculator    services.Calculator
	Schedule      services.CycleSchedule
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Metrics       ports.PayoutMetrics
	CommitTimeout time.Duration
	Tracer        trace.Tracer
	Logger        *slog.Logger
}

func (uc ExecutePayoutUseCase) Execute(ctx context.Context, cmd ExecutePayoutCommand) (PayoutResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID := strings.TrimSpace(cmd.CampaignID)
	now := uc.Clock.Now().UTC()
	result := PayoutResult{
		CampaignID:  campaignID,
		Outcome:     PayoutOutcomeFailed,
		Distributed: decimal.Zero,
		Dust:        decimal.Zero,
		Credits:     []PayoutCredit{},
		ExecutedAt:  now,
	}
	if campaignID == "" {
		return uc.finish(logger, nil, result, domainerrors.ErrInvalidInput)
	}

	ctx, span := uc.tracer().Start(ctx, "payout.execute", trace.WithAttributes(
		attribute.String("campaign_id", campaignID),
		attribute.Bool("force", cmd.Force),
	))
	defer span.End()

	snapshot, err := uc.Ledger.LoadPayoutSnapshot(ctx, campaignID)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrCampaignNotFound) {
			err = fmt.Errorf("%w: %w", domainerrors.ErrSnapshotUnavailable, err)
		}
		return uc.finish(logger, span, result, err)
	}
	campaign := snapshot.Campaign
	result.BudgetBefore = campaign.Budget
	result.BudgetAfter = campaign.Budget
	result.NextPayoutAt = campaign.NextPayoutAt

	if err := checkPayable(campaign, now, cmd.Force); err != nil {
		return uc.finish(logger, span, result, err)
	}

	allocation, err := uc.Calculator.Allocate(campaign, snapshot.ApprovedVideos, now)
	if err != nil {
		return uc.finish(logger, span, result, err)
	}
	result.Pot = allocation.Pot
	result.TotalViews = allocation.TotalViews
	if allocation.Pot.Exhausted {
		return uc.finish(logger, span, result,
			fmt.Errorf("%w: %w", domainerrors.ErrInvalidCampaignState, domainerrors.ErrCampaignWindowClosed))
	}
	if allocation.Empty() {
		return uc.finish(logger, span, result, domainerrors.ErrNoQualifyingViews)
	}
	for _, share := range allocation.Shares {
		if _, ok := snapshot.Accounts[share.UserID]; !ok {
			return uc.finish(logger, span, result,
				fmt.Errorf("%w: contributor %s", domainerrors.ErrUserNotFound, share.UserID))
		}
	}

	payoutID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return uc.finish(logger, span, result, err)
	}
	result.PayoutID = payoutID
	next := uc.Schedule.Next(now)

	batch, credits, err := uc.buildBatch(ctx, payoutID, snapshot.Token, allocation, next, now)
	if err != nil {
		return uc.finish(logger, span, result, err)
	}

	timeout := uc.CommitTimeout
	if timeout <= 0 {
		timeout = defaultCommitTimeout
	}
	commitCtx, cancel := context.WithTimeout(ctx, timeout)
	startedAt := time.Now()
	err = uc.Ledger.CommitBatch(commitCtx, batch)
	cancel()
	if uc.Metrics != nil {
		uc.Metrics.ObserveCommit(time.Since(startedAt), err)
	}
	if err != nil {
		if !errors.Is(err, domainerrors.ErrConcurrentPayoutConflict) {
			err = fmt.Errorf("%w: %w", domainerrors.ErrCommitFailure, err)
		}
		return uc.finish(logger, span, result, err)
	}

	result.Outcome = PayoutOutcomePaid
	result.Distributed = allocation.Distributed
	result.Dust = allocation.Dust
	result.BudgetAfter = campaign.Budget.Sub(allocation.Distributed)
	result.Credits = credits
	result.NextPayoutAt = &next
	return uc.finish(logger, span, result, nil)
}

func checkPayable(campaign entities.Campaign, now time.Time, force bool) error {
	if !campaign.IsActive() {
		return fmt.Errorf("%w: status %s", domainerrors.ErrInvalidCampaignState, campaign.Status)
	}
	if !campaign.HasFunds() {
		return fmt.Errorf("%w: %w", domainerrors.ErrInvalidCampaignState, domainerrors.ErrBudgetExhausted)
	}
	if !force && !campaign.PayoutDue(now) {
		return domainerrors.ErrPayoutNotDue
	}
	return nil
}

func (uc ExecutePayoutUseCase) buildBatch(
	ctx context.Context,
	payoutID string,
	token ports.PayoutToken,
	allocation services.Allocation,
	next time.Time,
	now time.Time,
) (ports.CommitBatch, []PayoutCredit, error) {
	campaignID := allocation.CampaignID
	ops := make([]ports.BatchOp, 0, 2+3*len(allocation.Shares))
	ops = append(ops,
		ports.BatchOp{Kind: ports.OpUpdateCampaignBudget, CampaignID: campaignID, Amount: allocation.Distributed.Neg()},
		ports.BatchOp{Kind: ports.OpAdvanceNextPayoutAt, CampaignID: campaignID, NextPayoutAt: next},
	)

	credits := make([]PayoutCredit, 0, len(allocation.Shares))
	eventCredits := make([]map[string]any, 0, len(allocation.Shares))
	for _, share := range allocation.Shares {
		transactionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return ports.CommitBatch{}, nil, err
		}
		transaction := entities.Transaction{
			TransactionID: transactionID,
			PayoutID:      payoutID,
			UserID:        share.UserID,
			CampaignID:    campaignID,
			Amount:        share.Amount,
			Type:          entities.TransactionTypeWeeklyPayout,
			CreatedAt:     now,
		}
		ops = append(ops,
			ports.BatchOp{Kind: ports.OpCreditUserBalance, UserID: share.UserID, Amount: share.Amount},
			ports.BatchOp{Kind: ports.OpCreditUserXP, UserID: share.UserID, Amount: share.XPDelta},
			ports.BatchOp{Kind: ports.OpAppendTransaction, UserID: share.UserID, CampaignID: campaignID, Transaction: &transaction},
		)
		credits = append(credits, PayoutCredit{
			UserID:        share.UserID,
			TransactionID: transactionID,
			Views:         share.Views,
			Amount:        share.Amount,
			XPDelta:       share.XPDelta,
		})
		eventCredits = append(eventCredits, map[string]any{
			"user_id":        share.UserID,
			"transaction_id": transactionID,
			"amount":         share.Amount.StringFixed(2),
		})
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.CommitBatch{}, nil, err
	}
	envelope, err := newCampaignEnvelope(eventID, eventPayoutExecuted, campaignID, now, map[string]any{
		"campaign_id":    campaignID,
		"payout_id":      payoutID,
		"weekly_pot":     allocation.Pot.WeeklyPot.String(),
		"distributed":    allocation.Distributed.StringFixed(2),
		"total_views":    allocation.TotalViews,
		"next_payout_at": next,
		"credits":        eventCredits,
	})
	if err != nil {
		return ports.CommitBatch{}, nil, err
	}

	return ports.CommitBatch{
		PayoutID:    payoutID,
		Token:       token,
		Ops:         ops,
		Events:      []ports.EventEnvelope{envelope},
		CommittedAt: now,
	}, credits, nil
}

func (uc ExecutePayoutUseCase) finish(
	logger *slog.Logger,
	span trace.Span,
	result PayoutResult,
	err error,
) (PayoutResult, error) {
	if err != nil {
		result.Reason = err.Error()
		result.Retryable = domainerrors.IsRetryable(err)
		result.Outcome = PayoutOutcomeFailed
		if domainerrors.IsNoOp(err) {
			result.Outcome = PayoutOutcomeSkipped
		}
	}
	if uc.Metrics != nil {
		uc.Metrics.ObservePayout(string(result.Outcome), result.Distributed)
	}

	switch result.Outcome {
	case PayoutOutcomePaid:
		if span != nil {
			span.SetAttributes(
				attribute.String("payout_id", result.PayoutID),
				attribute.Int("credit_count", len(result.Credits)),
			)
		}
		logger.Info("campaign payout committed",
			"event", "campaign_payout_committed",
			"module", application.ModuleName,
			"layer", "application",
			"campaign_id", result.CampaignID,
			"payout_id", result.PayoutID,
			"weekly_pot", result.Pot.WeeklyPot.String(),
			"distributed", result.Distributed.StringFixed(2),
			"dust", result.Dust.String(),
			"budget_after", result.BudgetAfter.String(),
			"credit_count", len(result.Credits),
		)
	case PayoutOutcomeSkipped:
		logger.Info("campaign payout skipped",
			"event", "campaign_payout_skipped",
			"module", application.ModuleName,
			"layer", "application",
			"campaign_id", result.CampaignID,
			"reason", result.Reason,
		)
	default:
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		logger.Error("campaign payout failed",
			"event", "campaign_payout_failed",
			"module", application.ModuleName,
			"layer", "application",
			"campaign_id", result.CampaignID,
			"retryable", result.Retryable,
			"error", err.Error(),
		)
	}
	return result, err
}

func (uc ExecutePayoutUseCase) tracer() trace.Tracer {
	if uc.Tracer != nil {
		return uc.Tracer
	}
	return otel.Tracer(application.ModuleName)
}

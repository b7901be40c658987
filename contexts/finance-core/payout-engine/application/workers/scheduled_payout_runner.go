package workers

import (
	"context"
	"log/slog"

	application "clipay/contexts/finance-core/payout-engine/application"
	"clipay/contexts/finance-core/payout-engine/application/commands"
)

// ScheduledPayoutRunner pays every active campaign whose cycle boundary has
// passed. It never forces, so campaigns that are not due are skipped.
type ScheduledPayoutRunner struct {
	Payouts commands.ExecuteAllPayoutsUseCase
	Logger  *slog.Logger
}

func (r ScheduledPayoutRunner) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	report, err := r.Payouts.Execute(ctx, commands.ExecuteAllPayoutsCommand{RequestedBy: "scheduler"})
	if err != nil {
		logger.Error("scheduled payout run failed",
			"event", "campaign_scheduled_payout_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if report.Paid > 0 || report.Failed > 0 {
		logger.Info("scheduled payout run completed",
			"event", "campaign_scheduled_payout_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"paid_count", report.Paid,
			"failed_count", report.Failed,
		)
	}
	return nil
}

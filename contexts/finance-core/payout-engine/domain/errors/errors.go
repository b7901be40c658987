package errors

import "errors"

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrUserNotFound     = errors.New("user account not found")
	ErrVideoNotFound    = errors.New("video not found")
	ErrInvalidInput     = errors.New("invalid payout input")

	// ErrMalformedCampaign marks calculator input that can never be valid
	// (negative budget, end before start).
	ErrMalformedCampaign = errors.New("malformed campaign")

	ErrInvalidCampaignState = errors.New("campaign is not in a payable state")
	ErrCampaignWindowClosed = errors.New("campaign window closed")
	ErrBudgetExhausted      = errors.New("campaign budget exhausted")
	ErrPayoutNotDue         = errors.New("payout cycle not due")
	ErrNoQualifyingViews    = errors.New("no qualifying views")

	ErrConcurrentPayoutConflict = errors.New("concurrent payout conflict")
	ErrCommitFailure            = errors.New("payout commit failed")
	ErrSnapshotUnavailable      = errors.New("payout snapshot unavailable")
	ErrBudgetOverdraw           = errors.New("batch would overdraw campaign budget")
	ErrInvalidStateTransition   = errors.New("invalid campaign state transition")
)

// IsRetryable reports whether a fresh attempt (re-reading state) can succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentPayoutConflict) ||
		errors.Is(err, ErrCommitFailure) ||
		errors.Is(err, ErrSnapshotUnavailable)
}

// IsNoOp reports outcomes that are documented no-ops rather than failures.
func IsNoOp(err error) bool {
	return errors.Is(err, ErrInvalidCampaignState) ||
		errors.Is(err, ErrNoQualifyingViews) ||
		errors.Is(err, ErrPayoutNotDue)
}

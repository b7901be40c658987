package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	CampaignStatusPendingPayment CampaignStatus = "pending_payment"
	CampaignStatusActive         CampaignStatus = "active"
	CampaignStatusRejected       CampaignStatus = "rejected"
	CampaignStatusFinished       CampaignStatus = "finished"
)

// Campaign is a funded, time-boxed promotion. Budget is the remaining
// budget and only ever shrinks through committed payouts.
type Campaign struct {
	CampaignID      string
	CreatorID       string
	Title           string
	Budget          decimal.Decimal
	StartDate       time.Time
	EndDate         time.Time
	Status          CampaignStatus
	RequiredHashtag string
	RequiredMention string
	NextPayoutAt    *time.Time
	PayoutVersion   int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ApprovedAt      *time.Time
	FinishedAt      *time.Time
}

func (c Campaign) IsActive() bool {
	return c.Status == CampaignStatusActive
}

func (c Campaign) HasFunds() bool {
	return c.Budget.IsPositive()
}

// WellFormed reports whether the campaign can be fed to the calculator.
func (c Campaign) WellFormed() bool {
	if c.Budget.IsNegative() {
		return false
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return false
	}
	return !CalendarDate(c.EndDate).Before(CalendarDate(c.StartDate))
}

// PayoutDue reports whether the cycle marker allows a scheduled payout at now.
// A campaign without a marker is always due.
func (c Campaign) PayoutDue(now time.Time) bool {
	if c.NextPayoutAt == nil {
		return true
	}
	return !now.UTC().Before(c.NextPayoutAt.UTC())
}

// Ended reports whether the campaign window closed at or before now.
func (c Campaign) Ended(now time.Time) bool {
	return !now.UTC().Before(CalendarDate(c.EndDate))
}

func IsKnownCampaignStatus(value CampaignStatus) bool {
	switch value {
	case CampaignStatusPendingPayment, CampaignStatusActive, CampaignStatusRejected, CampaignStatusFinished:
		return true
	default:
		return false
	}
}

// CalendarDate truncates a timestamp to UTC midnight of its calendar day.
func CalendarDate(value time.Time) time.Time {
	utc := value.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

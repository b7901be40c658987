package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const TransactionTypeWeeklyPayout TransactionType = "weekly_payout"

// Transaction is an append-only ledger record. It is never updated after
// the batch that created it commits.
type Transaction struct {
	TransactionID string
	PayoutID      string
	UserID        string
	CampaignID    string
	Amount        decimal.Decimal
	Type          TransactionType
	CreatedAt     time.Time
}

// RankingEntry is derived on every read and never persisted.
type RankingEntry struct {
	Position          int
	UserID            string
	Name              string
	Tier              RankTier
	TotalViews        int64
	VideoCount        int
	SharePercentage   decimal.Decimal
	EstimatedEarnings decimal.Decimal
	FirstSubmittedAt  time.Time
}

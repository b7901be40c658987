package ports

import (
	"context"
	"time"

	"clipay/contexts/finance-core/payout-engine/domain/entities"
	contractsv1 "clipay/contracts/gen/events/v1"

	"github.com/shopspring/decimal"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type CampaignFilter struct {
	Status    entities.CampaignStatus
	CreatorID string
}

// PayoutToken is read together with a snapshot and must still match the
// stored campaign when the batch commits.
type PayoutToken struct {
	CampaignID   string
	Version      int64
	NextPayoutAt *time.Time
}

// CampaignSnapshot is one consistent read of everything a payout or ranking needs.
type CampaignSnapshot struct {
	Campaign       entities.Campaign
	ApprovedVideos []entities.Video
	Accounts       map[string]entities.UserAccount
	Token          PayoutToken
	ReadAt         time.Time
}

type OpKind string

const (
	OpUpdateCampaignBudget OpKind = "update_campaign_budget"
	OpCreditUserBalance    OpKind = "credit_user_balance"
	OpCreditUserXP         OpKind = "credit_user_xp"
	OpAppendTransaction    OpKind = "append_transaction"
	OpAdvanceNextPayoutAt  OpKind = "advance_next_payout_at"
)

// BatchOp is one typed write. Amount is a signed delta for budget updates and
// a positive credit for balance/xp ops.
type BatchOp struct {
	Kind         OpKind
	CampaignID   string
	UserID       string
	Amount       decimal.Decimal
	Transaction  *entities.Transaction
	NextPayoutAt time.Time
}

// CommitBatch is applied all-or-nothing, guarded by Token.
type CommitBatch struct {
	PayoutID    string
	Token       PayoutToken
	Ops         []BatchOp
	Events      []EventEnvelope
	CommittedAt time.Time
}

// LedgerStore is the storage collaborator of the payout engine.
type LedgerStore interface {
	GetCampaign(ctx context.Context, campaignID string) (entities.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]entities.Campaign, error)
	ListApprovedVideos(ctx context.Context, campaignID string) ([]entities.Video, error)
	GetUser(ctx context.Context, userID string) (entities.UserAccount, error)
	LoadPayoutSnapshot(ctx context.Context, campaignID string) (CampaignSnapshot, error)
	CommitBatch(ctx context.Context, batch CommitBatch) error
}

type TransactionFilter struct {
	UserID     string
	CampaignID string
	Limit      int
}

type LedgerReader interface {
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]entities.Transaction, error)
}

// CampaignTransition is a guarded lifecycle write; it bumps the payout version.
type CampaignTransition struct {
	CampaignID      string
	ExpectedVersion int64
	From            entities.CampaignStatus
	To              entities.CampaignStatus
	NextPayoutAt    *time.Time
	Reason          string
	ActorID         string
	At              time.Time
}

type CampaignLifecycle interface {
	ApplyCampaignTransition(ctx context.Context, transition CampaignTransition) error
}

type VideoStatsUpdate struct {
	VideoID          string
	Views            int64
	Status           entities.VideoStatus
	ValidationErrors []string
	RefreshedAt      time.Time
}

type VideoStatsRepository interface {
	ListVideosForRefresh(ctx context.Context, limit int) ([]entities.Video, error)
	UpdateVideoStats(ctx context.Context, update VideoStatsUpdate) error
}

// VideoStats is what the acquisition collaborator reports for a URL.
type VideoStats struct {
	Views       int64
	Title       string
	Description string
	Uploader    string
}

type ViewStatsFetcher interface {
	FetchStats(ctx context.Context, url string) (VideoStats, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// PayoutMetrics is satisfied by the prometheus adapter; nil disables metrics.
type PayoutMetrics interface {
	ObservePayout(outcome string, distributed decimal.Decimal)
	ObserveCommit(duration time.Duration, err error)
	ObserveBulkRun(paid int, skipped int, failed int)
}

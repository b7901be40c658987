package postgresadapter

import (
	"strings"
	"time"

	"clipay/contexts/finance-core/payout-engine/domain/entities"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type campaignModel struct {
	CampaignID      string          `gorm:"column:campaign_id;primaryKey"`
	CreatorID       string          `gorm:"column:creator_id;index"`
	Title           string          `gorm:"column:title"`
	Budget          decimal.Decimal `gorm:"column:budget;type:numeric(20,4);not null"`
	StartDate       time.Time       `gorm:"column:start_date"`
	EndDate         time.Time       `gorm:"column:end_date"`
	Status          string          `gorm:"column:status;index"`
	RequiredHashtag string          `gorm:"column:required_hashtag"`
	RequiredMention string          `gorm:"column:required_mention"`
	NextPayoutAt    *time.Time      `gorm:"column:next_payout_at"`
	PayoutVersion   int64           `gorm:"column:payout_version;not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
	ApprovedAt      *time.Time      `gorm:"column:approved_at"`
	FinishedAt      *time.Time      `gorm:"column:finished_at"`
}

func (campaignModel) TableName() string {
	return "campaigns"
}

func campaignModelFromEntity(item entities.Campaign) campaignModel {
	return campaignModel{
		CampaignID:      strings.TrimSpace(item.CampaignID),
		CreatorID:       strings.TrimSpace(item.CreatorID),
		Title:           strings.TrimSpace(item.Title),
		Budget:          item.Budget,
		StartDate:       item.StartDate.UTC(),
		EndDate:         item.EndDate.UTC(),
		Status:          string(item.Status),
		RequiredHashtag: strings.TrimSpace(item.RequiredHashtag),
		RequiredMention: strings.TrimSpace(item.RequiredMention),
		NextPayoutAt:    normalizeOptionalTime(item.NextPayoutAt),
		PayoutVersion:   item.PayoutVersion,
		CreatedAt:       item.CreatedAt.UTC(),
		UpdatedAt:       item.UpdatedAt.UTC(),
		ApprovedAt:      normalizeOptionalTime(item.ApprovedAt),
		FinishedAt:      normalizeOptionalTime(item.FinishedAt),
	}
}

func (m campaignModel) toEntity() entities.Campaign {
	return entities.Campaign{
		CampaignID:      m.CampaignID,
		CreatorID:       m.CreatorID,
		Title:           m.Title,
		Budget:          m.Budget,
		StartDate:       m.StartDate.UTC(),
		EndDate:         m.EndDate.UTC(),
		Status:          entities.CampaignStatus(m.Status),
		RequiredHashtag: m.RequiredHashtag,
		RequiredMention: m.RequiredMention,
		NextPayoutAt:    normalizeOptionalTime(m.NextPayoutAt),
		PayoutVersion:   m.PayoutVersion,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
		ApprovedAt:      normalizeOptionalTime(m.ApprovedAt),
		FinishedAt:      normalizeOptionalTime(m.FinishedAt),
	}
}

type videoModel struct {
	VideoID          string     `gorm:"column:video_id;primaryKey"`
	UserID           string     `gorm:"column:user_id;index"`
	CampaignID       string     `gorm:"column:campaign_id;index"`
	URL              string     `gorm:"column:url"`
	Platform         string     `gorm:"column:platform"`
	Views            int64      `gorm:"column:views;not null;default:0"`
	Status           string     `gorm:"column:status"`
	ValidationErrors []string   `gorm:"column:validation_errors;serializer:json"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	LastRefreshedAt  *time.Time `gorm:"column:last_refreshed_at"`
}

func (videoModel) TableName() string {
	return "videos"
}

func videoModelFromEntity(item entities.Video) videoModel {
	return videoModel{
		VideoID:          strings.TrimSpace(item.VideoID),
		UserID:           strings.TrimSpace(item.UserID),
		CampaignID:       strings.TrimSpace(item.CampaignID),
		URL:              strings.TrimSpace(item.URL),
		Platform:         strings.TrimSpace(item.Platform),
		Views:            item.Views,
		Status:           string(item.Status),
		ValidationErrors: copyOrEmpty(item.ValidationErrors),
		CreatedAt:        item.CreatedAt.UTC(),
		LastRefreshedAt:  normalizeOptionalTime(item.LastRefreshedAt),
	}
}

func (m videoModel) toEntity() entities.Video {
	return entities.Video{
		VideoID:          m.VideoID,
		UserID:           m.UserID,
		CampaignID:       m.CampaignID,
		URL:              m.URL,
		Platform:         m.Platform,
		Views:            m.Views,
		Status:           entities.VideoStatus(m.Status),
		ValidationErrors: copyOrEmpty(m.ValidationErrors),
		CreatedAt:        m.CreatedAt.UTC(),
		LastRefreshedAt:  normalizeOptionalTime(m.LastRefreshedAt),
	}
}

type userAccountModel struct {
	UserID    string          `gorm:"column:user_id;primaryKey"`
	Name      string          `gorm:"column:name"`
	Role      string          `gorm:"column:role"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(20,4);not null"`
	XP        decimal.Decimal `gorm:"column:xp;type:numeric(20,4);not null"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (userAccountModel) TableName() string {
	return "user_accounts"
}

func userAccountModelFromEntity(item entities.UserAccount) userAccountModel {
	return userAccountModel{
		UserID:    strings.TrimSpace(item.UserID),
		Name:      strings.TrimSpace(item.Name),
		Role:      string(item.Role),
		Balance:   item.Balance,
		XP:        item.XP,
		CreatedAt: item.CreatedAt.UTC(),
		UpdatedAt: item.UpdatedAt.UTC(),
	}
}

func (m userAccountModel) toEntity() entities.UserAccount {
	return entities.UserAccount{
		UserID:    m.UserID,
		Name:      m.Name,
		Role:      entities.Role(m.Role),
		Balance:   m.Balance,
		XP:        m.XP,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type transactionModel struct {
	TransactionID string          `gorm:"column:transaction_id;primaryKey"`
	PayoutID      string          `gorm:"column:payout_id;index"`
	UserID        string          `gorm:"column:user_id;index"`
	CampaignID    string          `gorm:"column:campaign_id;index"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,4);not null"`
	Type          string          `gorm:"column:type"`
	CreatedAt     time.Time       `gorm:"column:created_at;index"`
}

func (transactionModel) TableName() string {
	return "transactions"
}

func transactionModelFromEntity(item entities.Transaction) transactionModel {
	return transactionModel{
		TransactionID: strings.TrimSpace(item.TransactionID),
		PayoutID:      strings.TrimSpace(item.PayoutID),
		UserID:        strings.TrimSpace(item.UserID),
		CampaignID:    strings.TrimSpace(item.CampaignID),
		Amount:        item.Amount,
		Type:          string(item.Type),
		CreatedAt:     item.CreatedAt.UTC(),
	}
}

func (m transactionModel) toEntity() entities.Transaction {
	return entities.Transaction{
		TransactionID: m.TransactionID,
		PayoutID:      m.PayoutID,
		UserID:        m.UserID,
		CampaignID:    m.CampaignID,
		Amount:        m.Amount,
		Type:          entities.TransactionType(m.Type),
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "payout_outbox"
}

// AutoMigrate creates or updates the payout tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&campaignModel{},
		&videoModel{},
		&userAccountModel{},
		&transactionModel{},
		&outboxModel{},
	)
}

func copyOrEmpty(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	return append([]string(nil), items...)
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}

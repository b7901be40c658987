package postgresadapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db         *gorm.DB
	snapshotTx *sql.TxOptions
	logger     *slog.Logger
}

type Option func(*Repository)

// WithSnapshotTxOptions overrides the read transaction used for payout
// snapshots. Pass nil for drivers without isolation-level support.
func WithSnapshotTxOptions(opts *sql.TxOptions) Option {
	return func(r *Repository) {
		r.snapshotTx = opts
	}
}

func NewRepository(db *gorm.DB, logger *slog.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	repo := &Repository{
		db:         db,
		snapshotTx: &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

func (r *Repository) CreateCampaign(ctx context.Context, campaign entities.Campaign) error {
	row := campaignModelFromEntity(campaign)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: campaign %s exists", domainerrors.ErrInvalidInput, row.CampaignID)
		}
		return err
	}
	return nil
}

func (r *Repository) CreateVideo(ctx context.Context, video entities.Video) error {
	row := videoModelFromEntity(video)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: video %s exists", domainerrors.ErrInvalidInput, row.VideoID)
		}
		return err
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, account entities.UserAccount) error {
	row := userAccountModelFromEntity(account)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %s exists", domainerrors.ErrInvalidInput, row.UserID)
		}
		return err
	}
	return nil
}

func (r *Repository) GetCampaign(ctx context.Context, campaignID string) (entities.Campaign, error) {
	return getCampaign(r.db.WithContext(ctx), campaignID)
}

func getCampaign(tx *gorm.DB, campaignID string) (entities.Campaign, error) {
	var row campaignModel
	err := tx.Where("campaign_id = ?", strings.TrimSpace(campaignID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Campaign{}, domainerrors.ErrCampaignNotFound
		}
		return entities.Campaign{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListCampaigns(ctx context.Context, filter ports.CampaignFilter) ([]entities.Campaign, error) {
	tx := r.db.WithContext(ctx).Model(&campaignModel{})
	if strings.TrimSpace(filter.CreatorID) != "" {
		tx = tx.Where("creator_id = ?", strings.TrimSpace(filter.CreatorID))
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}

	var rows []campaignModel
	if err := tx.Order("campaign_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.Campaign, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListApprovedVideos(ctx context.Context, campaignID string) ([]entities.Video, error) {
	return listApprovedVideos(r.db.WithContext(ctx), campaignID)
}

func listApprovedVideos(tx *gorm.DB, campaignID string) ([]entities.Video, error) {
	var rows []videoModel
	if err := tx.Where("campaign_id = ? AND status = ?", strings.TrimSpace(campaignID), string(entities.VideoStatusApproved)).
		Order("video_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Video, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetUser(ctx context.Context, userID string) (entities.UserAccount, error) {
	var row userAccountModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.UserAccount{}, domainerrors.ErrUserNotFound
		}
		return entities.UserAccount{}, err
	}
	return row.toEntity(), nil
}

// LoadPayoutSnapshot reads campaign, approved videos and contributor accounts
// in a single read transaction.
func (r *Repository) LoadPayoutSnapshot(ctx context.Context, campaignID string) (ports.CampaignSnapshot, error) {
	var snapshot ports.CampaignSnapshot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		campaign, err := getCampaign(tx, campaignID)
		if err != nil {
			return err
		}
		videos, err := listApprovedVideos(tx, campaign.CampaignID)
		if err != nil {
			return err
		}

		userIDs := make([]string, 0, len(videos))
		seen := make(map[string]struct{}, len(videos))
		for _, video := range videos {
			if _, ok := seen[video.UserID]; ok {
				continue
			}
			seen[video.UserID] = struct{}{}
			userIDs = append(userIDs, video.UserID)
		}
		accounts := make(map[string]entities.UserAccount, len(userIDs))
		if len(userIDs) > 0 {
			var rows []userAccountModel
			if err := tx.Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
				return err
			}
			for _, row := range rows {
				accounts[row.UserID] = row.toEntity()
			}
		}

		snapshot = ports.CampaignSnapshot{
			Campaign:       campaign,
			ApprovedVideos: videos,
			Accounts:       accounts,
			Token: ports.PayoutToken{
				CampaignID:   campaign.CampaignID,
				Version:      campaign.PayoutVersion,
				NextPayoutAt: campaign.NextPayoutAt,
			},
			ReadAt: time.Now().UTC(),
		}
		return nil
	}, r.snapshotTx)
	if err != nil {
		return ports.CampaignSnapshot{}, err
	}
	return snapshot, nil
}

// CommitBatch applies every op of a payout in one transaction. The campaign
// row is updated only while its payout_version still matches the token.
func (r *Repository) CommitBatch(ctx context.Context, batch ports.CommitBatch) error {
	committedAt := batch.CommittedAt.UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row campaignModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("campaign_id = ?", strings.TrimSpace(batch.Token.CampaignID)).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrCampaignNotFound
			}
			return err
		}
		if row.PayoutVersion != batch.Token.Version {
			return domainerrors.ErrConcurrentPayoutConflict
		}

		campaign := row.toEntity()
		balances, xps, transactions, err := foldBatchOps(&campaign, batch.Ops)
		if err != nil {
			return err
		}
		if campaign.Budget.IsNegative() {
			return domainerrors.ErrBudgetOverdraw
		}

		result := tx.Model(&campaignModel{}).
			Where("campaign_id = ? AND payout_version = ?", campaign.CampaignID, batch.Token.Version).
			Updates(map[string]any{
				"budget":         campaign.Budget,
				"next_payout_at": normalizeOptionalTime(campaign.NextPayoutAt),
				"payout_version": batch.Token.Version + 1,
				"updated_at":     committedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrConcurrentPayoutConflict
		}

		if err := creditAccountsTx(tx, balances, xps, committedAt); err != nil {
			return err
		}
		if len(transactions) > 0 {
			if err := tx.Create(&transactions).Error; err != nil {
				return err
			}
		}
		for _, envelope := range batch.Events {
			if err := insertOutboxEnvelopeTx(tx, envelope); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("payout batch rolled back",
			"event", "payout_batch_rolled_back",
			"module", "finance-core/payout-engine",
			"layer", "adapter",
			"campaign_id", batch.Token.CampaignID,
			"payout_id", batch.PayoutID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

type accountDeltas map[string]decimal.Decimal

func (d accountDeltas) add(userID string, amount decimal.Decimal) {
	d[userID] = d.get(userID).Add(amount)
}

func (d accountDeltas) get(userID string) decimal.Decimal {
	if value, ok := d[userID]; ok {
		return value
	}
	return decimal.Zero
}

func foldBatchOps(
	campaign *entities.Campaign,
	ops []ports.BatchOp,
) (accountDeltas, accountDeltas, []transactionModel, error) {
	balances := make(accountDeltas)
	xps := make(accountDeltas)
	transactions := make([]transactionModel, 0)
	for _, op := range ops {
		switch op.Kind {
		case ports.OpUpdateCampaignBudget:
			if op.CampaignID != campaign.CampaignID {
				return nil, nil, nil, fmt.Errorf("%w: op targets campaign %s", domainerrors.ErrInvalidInput, op.CampaignID)
			}
			campaign.Budget = campaign.Budget.Add(op.Amount)
		case ports.OpAdvanceNextPayoutAt:
			next := op.NextPayoutAt.UTC()
			campaign.NextPayoutAt = &next
		case ports.OpCreditUserBalance:
			balances.add(op.UserID, op.Amount)
		case ports.OpCreditUserXP:
			xps.add(op.UserID, op.Amount)
		case ports.OpAppendTransaction:
			if op.Transaction == nil {
				return nil, nil, nil, fmt.Errorf("%w: transaction op without payload", domainerrors.ErrInvalidInput)
			}
			transactions = append(transactions, transactionModelFromEntity(*op.Transaction))
		default:
			return nil, nil, nil, fmt.Errorf("%w: unknown op %s", domainerrors.ErrInvalidInput, op.Kind)
		}
	}
	return balances, xps, transactions, nil
}

// creditAccountsTx locks the touched accounts in user id order and writes the
// new balances computed in decimal.
func creditAccountsTx(tx *gorm.DB, balances accountDeltas, xps accountDeltas, at time.Time) error {
	userIDs := make([]string, 0, len(balances)+len(xps))
	seen := make(map[string]struct{})
	for _, deltas := range []accountDeltas{balances, xps} {
		for userID := range deltas {
			if _, ok := seen[userID]; ok {
				continue
			}
			seen[userID] = struct{}{}
			userIDs = append(userIDs, userID)
		}
	}
	if len(userIDs) == 0 {
		return nil
	}
	sort.Strings(userIDs)

	var rows []userAccountModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC").
		Find(&rows).
		Error; err != nil {
		return err
	}
	if len(rows) != len(userIDs) {
		found := make(map[string]struct{}, len(rows))
		for _, row := range rows {
			found[row.UserID] = struct{}{}
		}
		for _, userID := range userIDs {
			if _, ok := found[userID]; !ok {
				return fmt.Errorf("%w: %s", domainerrors.ErrUserNotFound, userID)
			}
		}
	}

	for _, row := range rows {
		result := tx.Model(&userAccountModel{}).
			Where("user_id = ?", row.UserID).
			Updates(map[string]any{
				"balance":    row.Balance.Add(balances.get(row.UserID)),
				"xp":         row.XP.Add(xps.get(row.UserID)),
				"updated_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", domainerrors.ErrUserNotFound, row.UserID)
		}
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, filter ports.TransactionFilter) ([]entities.Transaction, error) {
	tx := r.db.WithContext(ctx).Model(&transactionModel{})
	if strings.TrimSpace(filter.UserID) != "" {
		tx = tx.Where("user_id = ?", strings.TrimSpace(filter.UserID))
	}
	if strings.TrimSpace(filter.CampaignID) != "" {
		tx = tx.Where("campaign_id = ?", strings.TrimSpace(filter.CampaignID))
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var rows []transactionModel
	if err := tx.Order("created_at DESC").Order("transaction_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.Transaction, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ApplyCampaignTransition(ctx context.Context, transition ports.CampaignTransition) error {
	at := transition.At.UTC()
	updates := map[string]any{
		"status":         string(transition.To),
		"next_payout_at": normalizeOptionalTime(transition.NextPayoutAt),
		"payout_version": transition.ExpectedVersion + 1,
		"updated_at":     at,
	}
	switch transition.To {
	case entities.CampaignStatusActive:
		updates["approved_at"] = at
	case entities.CampaignStatusFinished:
		updates["finished_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&campaignModel{}).
		Where("campaign_id = ? AND payout_version = ? AND status = ?",
			strings.TrimSpace(transition.CampaignID), transition.ExpectedVersion, string(transition.From)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetCampaign(ctx, transition.CampaignID); err != nil {
			return err
		}
		return domainerrors.ErrConcurrentPayoutConflict
	}

	r.logger.Info("campaign transition applied",
		"event", "campaign_transition_applied",
		"module", "finance-core/payout-engine",
		"layer", "adapter",
		"campaign_id", transition.CampaignID,
		"from_status", string(transition.From),
		"to_status", string(transition.To),
		"reason", transition.Reason,
	)
	return nil
}

func (r *Repository) ListVideosForRefresh(ctx context.Context, limit int) ([]entities.Video, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []videoModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(entities.VideoStatusPending), string(entities.VideoStatusApproved)}).
		Order("last_refreshed_at IS NOT NULL").
		Order("last_refreshed_at ASC").
		Order("video_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Video, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// UpdateVideoStats keeps the stored view count monotonic.
func (r *Repository) UpdateVideoStats(ctx context.Context, update ports.VideoStatsUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row videoModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("video_id = ?", strings.TrimSpace(update.VideoID)).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrVideoNotFound
			}
			return err
		}
		return tx.Model(&row).
			Select("views", "status", "validation_errors", "last_refreshed_at").
			Updates(videoModel{
				Views:            row.toEntity().MergeViews(update.Views),
				Status:           string(update.Status),
				ValidationErrors: copyOrEmpty(update.ValidationErrors),
				LastRefreshedAt:  normalizeOptionalTime(&update.RefreshedAt),
			}).
			Error
	})
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		}).
		Error
}

func insertOutboxEnvelopeTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/ports"

	"github.com/google/uuid"
)

type Seed struct {
	Campaigns []entities.Campaign
	Videos    []entities.Video
	Users     []entities.UserAccount
}

type outboxRow struct {
	message     ports.OutboxMessage
	publishedAt *time.Time
}

// Store keeps the whole ledger behind one lock. A CommitBatch is staged on
// copies and swapped in only when every op applies.
type Store struct {
	mu sync.RWMutex

	campaigns    map[string]entities.Campaign
	videos       map[string]entities.Video
	users        map[string]entities.UserAccount
	transactions []entities.Transaction
	outbox       []outboxRow

	failNextCommit error
}

func NewStore(seed Seed) *Store {
	s := &Store{
		campaigns:    make(map[string]entities.Campaign, len(seed.Campaigns)),
		videos:       make(map[string]entities.Video, len(seed.Videos)),
		users:        make(map[string]entities.UserAccount, len(seed.Users)),
		transactions: make([]entities.Transaction, 0),
		outbox:       make([]outboxRow, 0),
	}
	for _, item := range seed.Campaigns {
		s.campaigns[item.CampaignID] = item
	}
	for _, item := range seed.Videos {
		s.videos[item.VideoID] = item
	}
	for _, item := range seed.Users {
		s.users[item.UserID] = item
	}
	return s
}

func (s *Store) GetCampaign(_ context.Context, campaignID string) (entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.campaigns[strings.TrimSpace(campaignID)]
	if !ok {
		return entities.Campaign{}, domainerrors.ErrCampaignNotFound
	}
	return item, nil
}

func (s *Store) ListCampaigns(_ context.Context, filter ports.CampaignFilter) ([]entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Campaign, 0, len(s.campaigns))
	for _, item := range s.campaigns {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.CreatorID != "" && item.CreatorID != filter.CreatorID {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CampaignID < items[j].CampaignID
	})
	return items, nil
}

func (s *Store) ListApprovedVideos(_ context.Context, campaignID string) ([]entities.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.approvedVideosLocked(strings.TrimSpace(campaignID)), nil
}

func (s *Store) GetUser(_ context.Context, userID string) (entities.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return entities.UserAccount{}, domainerrors.ErrUserNotFound
	}
	return item, nil
}

// LoadPayoutSnapshot reads campaign, videos and accounts under one read lock.
func (s *Store) LoadPayoutSnapshot(ctx context.Context, campaignID string) (ports.CampaignSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return ports.CampaignSnapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaign, ok := s.campaigns[strings.TrimSpace(campaignID)]
	if !ok {
		return ports.CampaignSnapshot{}, domainerrors.ErrCampaignNotFound
	}
	videos := s.approvedVideosLocked(campaign.CampaignID)
	accounts := make(map[string]entities.UserAccount)
	for _, video := range videos {
		if account, ok := s.users[video.UserID]; ok {
			accounts[video.UserID] = account
		}
	}
	return ports.CampaignSnapshot{
		Campaign:       campaign,
		ApprovedVideos: videos,
		Accounts:       accounts,
		Token:          tokenFor(campaign),
		ReadAt:         time.Now().UTC(),
	}, nil
}

func (s *Store) approvedVideosLocked(campaignID string) []entities.Video {
	items := make([]entities.Video, 0)
	for _, video := range s.videos {
		if video.CampaignID == campaignID && video.IsApproved() {
			items = append(items, video)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].VideoID < items[j].VideoID
	})
	return items
}

func (s *Store) CommitBatch(ctx context.Context, batch ports.CommitBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failNextCommit != nil {
		err := s.failNextCommit
		s.failNextCommit = nil
		return err
	}

	campaign, ok := s.campaigns[batch.Token.CampaignID]
	if !ok {
		return domainerrors.ErrCampaignNotFound
	}
	if campaign.PayoutVersion != batch.Token.Version {
		return domainerrors.ErrConcurrentPayoutConflict
	}

	stagedUsers := make(map[string]entities.UserAccount)
	stagedTransactions := make([]entities.Transaction, 0)
	for _, op := range batch.Ops {
		switch op.Kind {
		case ports.OpUpdateCampaignBudget:
			if op.CampaignID != campaign.CampaignID {
				return fmt.Errorf("%w: op targets campaign %s", domainerrors.ErrInvalidInput, op.CampaignID)
			}
			campaign.Budget = campaign.Budget.Add(op.Amount)
		case ports.OpAdvanceNextPayoutAt:
			next := op.NextPayoutAt.UTC()
			campaign.NextPayoutAt = &next
		case ports.OpCreditUserBalance, ports.OpCreditUserXP:
			account, ok := stagedUsers[op.UserID]
			if !ok {
				account, ok = s.users[op.UserID]
				if !ok {
					return fmt.Errorf("%w: %s", domainerrors.ErrUserNotFound, op.UserID)
				}
			}
			if op.Kind == ports.OpCreditUserBalance {
				account.Balance = account.Balance.Add(op.Amount)
			} else {
				account.XP = account.XP.Add(op.Amount)
			}
			account.UpdatedAt = batch.CommittedAt
			stagedUsers[op.UserID] = account
		case ports.OpAppendTransaction:
			if op.Transaction == nil {
				return fmt.Errorf("%w: transaction op without payload", domainerrors.ErrInvalidInput)
			}
			stagedTransactions = append(stagedTransactions, *op.Transaction)
		default:
			return fmt.Errorf("%w: unknown op %s", domainerrors.ErrInvalidInput, op.Kind)
		}
	}
	if campaign.Budget.IsNegative() {
		return domainerrors.ErrBudgetOverdraw
	}

	stagedOutbox := make([]outboxRow, 0, len(batch.Events))
	for _, event := range batch.Events {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		stagedOutbox = append(stagedOutbox, outboxRow{message: ports.OutboxMessage{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			CreatedAt:    batch.CommittedAt,
		}})
	}

	campaign.PayoutVersion++
	campaign.UpdatedAt = batch.CommittedAt
	s.campaigns[campaign.CampaignID] = campaign
	for userID, account := range stagedUsers {
		s.users[userID] = account
	}
	s.transactions = append(s.transactions, stagedTransactions...)
	s.outbox = append(s.outbox, stagedOutbox...)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, filter ports.TransactionFilter) ([]entities.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Transaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		item := s.transactions[i]
		if filter.UserID != "" && item.UserID != filter.UserID {
			continue
		}
		if filter.CampaignID != "" && item.CampaignID != filter.CampaignID {
			continue
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) ApplyCampaignTransition(ctx context.Context, transition ports.CampaignTransition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	campaign, ok := s.campaigns[transition.CampaignID]
	if !ok {
		return domainerrors.ErrCampaignNotFound
	}
	if campaign.PayoutVersion != transition.ExpectedVersion || campaign.Status != transition.From {
		return domainerrors.ErrConcurrentPayoutConflict
	}
	at := transition.At.UTC()
	campaign.Status = transition.To
	campaign.NextPayoutAt = transition.NextPayoutAt
	campaign.PayoutVersion++
	campaign.UpdatedAt = at
	switch transition.To {
	case entities.CampaignStatusActive:
		campaign.ApprovedAt = &at
	case entities.CampaignStatusFinished:
		campaign.FinishedAt = &at
	}
	s.campaigns[campaign.CampaignID] = campaign
	return nil
}

func (s *Store) ListVideosForRefresh(_ context.Context, limit int) ([]entities.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Video, 0)
	for _, video := range s.videos {
		if video.Status == entities.VideoStatusPending || video.Status == entities.VideoStatusApproved {
			items = append(items, video)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		left, right := items[i].LastRefreshedAt, items[j].LastRefreshedAt
		switch {
		case left == nil && right != nil:
			return true
		case left != nil && right == nil:
			return false
		case left != nil && right != nil && !left.Equal(*right):
			return left.Before(*right)
		}
		return items[i].VideoID < items[j].VideoID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) UpdateVideoStats(_ context.Context, update ports.VideoStatsUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[update.VideoID]
	if !ok {
		return domainerrors.ErrVideoNotFound
	}
	refreshedAt := update.RefreshedAt.UTC()
	video.Views = video.MergeViews(update.Views)
	video.Status = update.Status
	video.ValidationErrors = append([]string(nil), update.ValidationErrors...)
	video.LastRefreshedAt = &refreshedAt
	s.videos[video.VideoID] = video
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.publishedAt != nil {
			continue
		}
		items = append(items, row.message)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			at := publishedAt.UTC()
			s.outbox[i].publishedAt = &at
			return nil
		}
	}
	return nil
}

// FailNextCommit makes the next CommitBatch return err without applying anything.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextCommit = err
}

func (s *Store) Transactions() []entities.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Transaction(nil), s.transactions...)
}

func (s *Store) GetVideo(videoID string) (entities.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.videos[videoID]
	return item, ok
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func tokenFor(campaign entities.Campaign) ports.PayoutToken {
	return ports.PayoutToken{
		CampaignID:   campaign.CampaignID,
		Version:      campaign.PayoutVersion,
		NextPayoutAt: campaign.NextPayoutAt,
	}
}

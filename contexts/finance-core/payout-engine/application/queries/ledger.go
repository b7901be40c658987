package queries

import (
	"context"
	"strings"

	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	"clipay/contexts/finance-core/payout-engine/ports"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

type ListTransactionsQuery struct {
	UserID     string
	CampaignID string
	Limit      int
}

// ListTransactionsUseCase returns ledger entries newest first.
type ListTransactionsUseCase struct {
	Ledger ports.LedgerReader
}

func (uc ListTransactionsUseCase) Execute(ctx context.Context, query ListTransactionsQuery) ([]entities.Transaction, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	return uc.Ledger.ListTransactions(ctx, ports.TransactionFilter{
		UserID:     strings.TrimSpace(query.UserID),
		CampaignID: strings.TrimSpace(query.CampaignID),
		Limit:      limit,
	})
}

type GetAccountQuery struct {
	UserID string
}

type AccountView struct {
	Account entities.UserAccount
	Tier    entities.RankTier
}

type GetAccountUseCase struct {
	Ledger ports.LedgerStore
}

func (uc GetAccountUseCase) Execute(ctx context.Context, query GetAccountQuery) (AccountView, error) {
	userID := strings.TrimSpace(query.UserID)
	if userID == "" {
		return AccountView{}, domainerrors.ErrInvalidInput
	}
	account, err := uc.Ledger.GetUser(ctx, userID)
	if err != nil {
		return AccountView{}, err
	}
	return AccountView{Account: account, Tier: account.Tier()}, nil
}

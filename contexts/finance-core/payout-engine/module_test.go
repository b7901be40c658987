package payoutengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipay/contexts/finance-core/payout-engine/adapters/memory"
	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	httptransport "clipay/contexts/finance-core/payout-engine/transport/http"

	"github.com/shopspring/decimal"
)

func TestInMemoryModulePayoutFlow(t *testing.T) {
	ctx := context.Background()
	today := entities.CalendarDate(time.Now())
	module := NewInMemoryModule(memory.Seed{
		Campaigns: []entities.Campaign{{
			CampaignID: "camp-1",
			Budget:     decimal.NewFromInt(1000),
			StartDate:  today.AddDate(0, 0, -8),
			EndDate:    today.AddDate(0, 0, 2),
			Status:     entities.CampaignStatusActive,
		}},
		Videos: []entities.Video{
			{VideoID: "v1", UserID: "user-a", CampaignID: "camp-1", Views: 300, Status: entities.VideoStatusApproved, CreatedAt: today},
			{VideoID: "v2", UserID: "user-b", CampaignID: "camp-1", Views: 700, Status: entities.VideoStatusApproved, CreatedAt: today},
		},
		Users: []entities.UserAccount{{UserID: "user-a"}, {UserID: "user-b"}},
	}, nil)

	preview, err := module.Handler.PreviewPayoutHandler(ctx, "camp-1")
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !preview.Due || preview.Distributed != "200.00" {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	resp, err := module.Handler.ExecutePayoutHandler(ctx, "admin-1", "camp-1", httptransport.ExecutePayoutRequest{})
	if err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	if resp.Result.BudgetAfter != "800.00" || len(resp.Result.Credits) != 2 {
		t.Fatalf("unexpected payout result: %+v", resp.Result)
	}

	_, err = module.Handler.ExecutePayoutHandler(ctx, "admin-1", "camp-1", httptransport.ExecutePayoutRequest{})
	if !errors.Is(err, domainerrors.ErrPayoutNotDue) {
		t.Fatalf("expected not-due error, got %v", err)
	}

	ledger, err := module.Handler.ListTransactionsHandler(ctx, "user-b", "", 0)
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if len(ledger.Items) != 1 || ledger.Items[0].Amount != "140.00" {
		t.Fatalf("unexpected ledger: %+v", ledger.Items)
	}

	outbox, err := module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(outbox) != 1 || outbox[0].EventType != "campaign.payout_executed" {
		t.Fatalf("expected one payout event in outbox, got %+v", outbox)
	}

	if err := module.OutboxRelay.RunOnce(ctx); err != nil {
		t.Fatalf("outbox relay failed: %v", err)
	}
	published := module.Publisher.Published()
	if len(published) != 1 || published[0].Topic != "campaign.payout_executed" || published[0].Event.PartitionKey != "camp-1" {
		t.Fatalf("unexpected published events: %+v", published)
	}
	outbox, err = module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(outbox) != 0 {
		t.Fatalf("expected outbox drained after relay, got %+v", outbox)
	}
}

func TestNewModuleWithoutFetcherLeavesRefresherUnset(t *testing.T) {
	module := NewInMemoryModule(memory.Seed{}, nil)
	if module.ViewRefresher.Fetcher != nil {
		t.Fatalf("expected no view refresher fetcher")
	}
}

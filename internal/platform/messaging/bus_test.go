package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	contractsv1 "clipay/contracts/gen/events/v1"

	"github.com/stretchr/testify/require"
)

func TestBusDeliversToTopicSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus([]string{"localhost:9092"}, nil)
	received := make(chan contractsv1.Envelope, 1)
	bus.Subscribe(ctx, "campaign.payout_executed", "test-cg", func(_ context.Context, event contractsv1.Envelope) error {
		received <- event
		return nil
	})

	event, err := contractsv1.NewEnvelope("evt-1", "campaign.payout_executed", "payout-engine", "campaign_id", "cmp-1", time.Now(), map[string]any{"ok": true})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, "other.topic", event))
	require.NoError(t, bus.Publish(ctx, "campaign.payout_executed", event))

	select {
	case got := <-received:
		require.Equal(t, "evt-1", got.EventID)
		require.Equal(t, "cmp-1", got.PartitionKey)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusPublishWaitsForSlowSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(nil, nil)
	release := make(chan struct{})
	bus.Subscribe(ctx, "campaign.payout_executed", "slow-cg", func(context.Context, contractsv1.Envelope) error {
		<-release
		return nil
	})

	event, err := contractsv1.NewEnvelope("evt-1", "campaign.payout_executed", "payout-engine", "campaign_id", "cmp-1", time.Now(), map[string]any{})
	require.NoError(t, err)

	// One event is held by the handler and the rest fill the buffer.
	for i := 0; i <= subscriberBuffer; i++ {
		require.NoError(t, bus.Publish(ctx, "campaign.payout_executed", event))
	}

	publishCtx, publishCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer publishCancel()
	err = bus.Publish(publishCtx, "campaign.payout_executed", event)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

	close(release)
	require.NoError(t, bus.Publish(ctx, "campaign.payout_executed", event))
}

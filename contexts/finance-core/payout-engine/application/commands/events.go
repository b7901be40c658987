package commands

import (
	"time"

	"clipay/contexts/finance-core/payout-engine/ports"
	contractsv1 "clipay/contracts/gen/events/v1"
)

const eventPayoutExecuted = "campaign.payout_executed"

func newCampaignEnvelope(
	eventID string,
	eventType string,
	campaignID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	return contractsv1.NewEnvelope(eventID, eventType, "payout-engine", "campaign_id", campaignID, occurredAt, data)
}

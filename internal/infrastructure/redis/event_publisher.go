package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"auctionsite/internal/domain"
)

const bidEventsChannel = "auctionsite:bid_events"

// EventPublisher pushes bid events onto a pub/sub channel for downstream
// consumers. Best-effort: the bidding transaction never depends on it.
type EventPublisher struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

func (p *EventPublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal bid event: %w", err)
	}
	return p.client.Publish(ctx, bidEventsChannel, payload).Err()
}

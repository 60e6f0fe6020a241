package consumer

import (
	"context"
	"encoding/json"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/harvestlink/agrimarket/pkg/enums"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

const (
	EventListingUpdated = string(enums.EventListingUpdated)
	EventListingDeleted = string(enums.EventListingDeleted)

	eventTypeAttribute = "event_type"
)

type snapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Event is the JSON body of a listing change message.
type Event struct {
	ListingID string `json:"listing_id"`
}

type processResult struct {
	ack  bool
	nack bool
}

// ListingSyncConsumer drops the cached listing snapshot whenever a listing changes upstream.
type ListingSyncConsumer struct {
	cache        snapshotInvalidator
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewListingSyncConsumer wires the snapshot cache to the listings subscription.
func NewListingSyncConsumer(cache snapshotInvalidator, subscription *pubsub.Subscriber, logg *logger.Logger) (*ListingSyncConsumer, error) {
	if cache == nil {
		return nil, errors.New("snapshot cache is required")
	}
	if subscription == nil {
		return nil, errors.New("listings subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &ListingSyncConsumer{cache: cache, subscription: subscription, logg: logg}, nil
}

// Run processes listing events until the context is canceled.
func (c *ListingSyncConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *ListingSyncConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes[eventTypeAttribute]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != EventListingUpdated && eventType != EventListingDeleted {
		c.logg.Info(logCtx, "skipping unrelated event")
		return processResult{ack: true}
	}

	var event Event
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			c.logg.Error(logCtx, "failed to decode listing event", err)
			return processResult{ack: true}
		}
	}
	logCtx = c.logg.WithField(logCtx, "listing_id", event.ListingID)

	if err := c.cache.Invalidate(logCtx); err != nil {
		c.logg.Error(logCtx, "listing snapshot invalidation failed", err)
		if retryable(err) {
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}

	c.logg.Info(logCtx, "listing snapshot invalidated")
	return processResult{ack: true}
}

func retryable(err error) bool {
	code := pkgerrors.CodeInternal
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	return pkgerrors.MetadataFor(code).Retryable
}

package listings

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/harvestlink/agrimarket/internal/listings/consumer"
	"github.com/harvestlink/agrimarket/pkg/enums"
	"github.com/harvestlink/agrimarket/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Writer changes stored listings and queues a change event in the same transaction.
type Writer struct {
	db     txRunner
	repo   *Repository
	events eventEmitter
}

func NewWriter(db txRunner, repo *Repository, events eventEmitter) (*Writer, error) {
	if db == nil {
		return nil, errors.New("database client is required")
	}
	if repo == nil {
		return nil, errors.New("listing repository is required")
	}
	if events == nil {
		return nil, errors.New("outbox service is required")
	}
	return &Writer{db: db, repo: repo, events: events}, nil
}

// Save upserts items and queues one listing_updated event per item.
func (w *Writer) Save(ctx context.Context, items []Listing) error {
	if len(items) == 0 {
		return nil
	}
	return w.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := w.repo.WithTx(tx).Upsert(ctx, items); err != nil {
			return err
		}
		for _, item := range items {
			if err := w.emit(ctx, tx, enums.EventListingUpdated, item.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the listing and queues a listing_deleted event.
func (w *Writer) Delete(ctx context.Context, id string) error {
	return w.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := w.repo.WithTx(tx).DeleteByRef(ctx, id); err != nil {
			return err
		}
		return w.emit(ctx, tx, enums.EventListingDeleted, id)
	})
}

func (w *Writer) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, id string) error {
	return w.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateListing,
		AggregateID:   id,
		Data:          consumer.Event{ListingID: id},
	})
}

package enums

import "fmt"

// OutboxAggregateType names the kind of entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateListing OutboxAggregateType = "listing"
)

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateListing
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute of the published message.
type OutboxEventType string

const (
	EventListingUpdated OutboxEventType = "listing_updated"
	EventListingDeleted OutboxEventType = "listing_deleted"
)

var validEventTypes = []OutboxEventType{
	EventListingUpdated,
	EventListingDeleted,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

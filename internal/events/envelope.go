package events

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidEnvelope is wrapped by every envelope validation failure.
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// EventEnvelope wraps every event the shop publishes. Events of one order are
// ordered by (PartitionKey, Sequence).
type EventEnvelope[T any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Sequence      *int64    `json:"sequence,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
	Payload       T         `json:"payload"`
}

// Validate checks that e is the named event at the given version and that it
// carries an id and an ordering position.
func (e EventEnvelope[T]) Validate(name string, version int) error {
	var problem string
	switch {
	case e.EventName != name:
		problem = fmt.Sprintf("got event %q, want %q", e.EventName, name)
	case e.EventVersion != version:
		problem = fmt.Sprintf("%s v%d, want v%d", name, e.EventVersion, version)
	case e.EventID == "":
		problem = "empty eventId"
	case e.PartitionKey == "":
		problem = "empty partitionKey"
	case e.Sequence == nil || *e.Sequence < 1:
		problem = "sequence must be >= 1"
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidEnvelope, problem)
}

package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event mirrors an audit interaction onto the pub/sub channel so dashboards
// can follow the pipeline live. Delivery is best-effort; the interactions
// table remains the durable record.
type Event struct {
	EntityType      string         `json:"entity_type"`
	EntityID        uuid.UUID      `json:"entity_id"`
	InteractionType string         `json:"interaction_type"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

type Bus interface {
	Publish(ctx context.Context, evt Event) error
	StartForwarder(ctx context.Context, onEvent func(evt Event)) error
	Close() error
}

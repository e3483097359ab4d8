package audit

import (
	"context"

	"github.com/google/uuid"
)

// OutboxEntry is one serialized entry awaiting publication to the audit
// topic. Key is the partition key (the tenant id), so entries of one tenant
// stay ordered on the topic.
type OutboxEntry struct {
	ID      uuid.UUID
	Key     string
	Payload []byte
}

// Outbox is the relay's view of the store: entries appear here atomically
// with Append and leave once published.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Publisher delivers serialized entries to the audit topic.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

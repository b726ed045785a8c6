package click

import (
	"context"

	"github.com/google/uuid"
)

// Store defines persistence for click events. Events are append-only:
// the store exposes inserts and aggregate reads, nothing else.
type Store interface {
	Insert(ctx context.Context, event Event) error
	SummarizeByLink(ctx context.Context, linkID uuid.UUID) (Summary, error)
}

package link

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence operations for Link entities. Create
// is atomic: short-code uniqueness is enforced by the storage layer
// itself, so exactly one of two concurrent creations of the same code
// succeeds. ByShortCode is the hot path behind every redirect and must
// be an indexed point lookup.
type Store interface {
	Create(ctx context.Context, link Link) (Link, error)
	ByShortCode(ctx context.Context, code string) (Link, error)
	ByID(ctx context.Context, id uuid.UUID) (Link, error)
	ByOwner(ctx context.Context, ownerID string) ([]Link, error)
}

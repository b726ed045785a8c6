package link

import (
	"time"

	"github.com/google/uuid"
)

// Link is one shortening mapping. Links are immutable once created:
// there is no update or delete path, and short codes are never reused.
type Link struct {
	ID             uuid.UUID
	ShortCode      string
	DestinationURL string
	OwnerID        string
	CreatedAt      time.Time
}

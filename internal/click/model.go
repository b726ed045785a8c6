package click

import (
	"time"

	"github.com/google/uuid"
)

// DeviceCategory classifies the visiting client.
type DeviceCategory string

const (
	DeviceMobile  DeviceCategory = "mobile"
	DeviceTablet  DeviceCategory = "tablet"
	DeviceDesktop DeviceCategory = "desktop"
	DeviceUnknown DeviceCategory = "unknown"
)

// Event is one recorded resolution of a short link. Events are
// append-only; they are never mutated or deleted.
type Event struct {
	ID             uuid.UUID
	LinkID         uuid.UUID
	OccurredAt     time.Time
	DeviceCategory DeviceCategory
	GeoCity        *string
	GeoCountry     *string
}

// RequestMeta is the raw per-request metadata captured at resolution
// time, before any classification or lookup has happened.
type RequestMeta struct {
	LinkID     uuid.UUID
	UserAgent  string
	RemoteIP   string
	OccurredAt time.Time
}

// Summary is the aggregate read model for one link's click events.
type Summary struct {
	Total     int64            `json:"total"`
	ByDevice  map[string]int64 `json:"by_device"`
	ByCountry map[string]int64 `json:"by_country"`
}

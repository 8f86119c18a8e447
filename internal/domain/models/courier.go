package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

// Courier is a shipper or driver; the role is interchangeable in
// dispatch terms.
type Courier struct {
	ID          uuid.UUID
	Name        string
	VehicleType types.VehicleType
	IsOnline    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Position is a courier's last-known location. Last write wins; no
// history is retained because only the current position matters for
// dispatch.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CourierWithDistance is a geo query result: a courier plus the true
// great-circle distance to the query center in meters.
type CourierWithDistance struct {
	Courier
	Position  Position
	DistanceM float64
}

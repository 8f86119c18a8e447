package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

// Location describes geographic coordinates (WGS84).
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// DeliveryRequest is the unit of dispatch: a food order or a ride booking.
// Fare fields are computed once at creation and never recomputed.
type DeliveryRequest struct {
	ID          uuid.UUID
	Kind        types.RequestKind
	RequesterID uuid.UUID

	// StoreID is set for food orders only; it is the settlement subject
	// for the STORE side of the marketplace.
	StoreID *uuid.UUID

	// AssignedCourierID is set exactly once, by a successful claim.
	// v1 has no re-broadcast: once assigned it is never cleared.
	AssignedCourierID *uuid.UUID

	// VehicleType, when set, restricts which couriers may claim.
	VehicleType *types.VehicleType

	Origin      Location
	Destination Location
	DistanceKm  float64

	// Subtotal is the order subtotal reported by the catalog/pricing
	// collaborator. Zero for rides.
	Subtotal       float64
	FareAmount     float64
	DiscountAmount float64
	PayableAmount  float64
	VoucherCode    *string

	Status       types.RequestStatus
	CancelReason *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Terminal reports whether the request reached a final state.
func (r *DeliveryRequest) Terminal() bool {
	return r.Status == types.StatusCompleted || r.Status == types.StatusCancelled
}

// CandidateRequest is a pending request offered to a courier, enriched
// with the courier's distance to the pickup point.
type CandidateRequest struct {
	DeliveryRequest
	PickupDistanceM float64
}

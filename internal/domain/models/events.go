package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

// RequestStatusMessage is published to the notification collaborator on
// every status or assignment mutation.
type RequestStatusMessage struct {
	RequestID     uuid.UUID           `json:"request_id"`
	Kind          types.RequestKind   `json:"kind"`
	Status        types.RequestStatus `json:"status"`
	DisplayStatus string              `json:"display_status"`
	CourierID     *uuid.UUID          `json:"courier_id,omitempty"`
	RequesterID   uuid.UUID           `json:"requester_id"`
	CancelReason  *string             `json:"cancel_reason,omitempty"`
	PayableAmount float64             `json:"payable_amount"`
	Timestamp     time.Time           `json:"timestamp"`
	CorrelationID string              `json:"correlation_id"`
}

// CourierLocationMessage feeds the geo index from the message bus; the
// HTTP location endpoint produces the same shape.
type CourierLocationMessage struct {
	CourierID     uuid.UUID `json:"courier_id"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

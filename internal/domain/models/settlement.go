package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/types"
)

// SettlementRecord is one subject's payable rollup for one period.
// Append-only once COMPLETED.
type SettlementRecord struct {
	ID          uuid.UUID
	SubjectType types.SubjectType
	SubjectID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time

	TotalRequests int
	GrossAmount   float64
	PlatformFee   float64
	PayoutAmount  float64

	Status    types.SettlementStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubjectTotal is an aggregation row: completed-request totals for one
// subject within a period.
type SubjectTotal struct {
	SubjectID     uuid.UUID
	TotalRequests int
	GrossAmount   float64
}

// SubjectFailure records a per-subject aggregation error without
// aborting the rest of the batch.
type SubjectFailure struct {
	SubjectID uuid.UUID
	Err       error
}

package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
)

/*=================Request Repository=====================*/

type RequestRepo interface {
	Create(ctx context.Context, req *models.DeliveryRequest) error
	Get(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error)
	ListPending(ctx context.Context) ([]models.DeliveryRequest, error)

	// Claim atomically assigns the request to the courier while it is
	// still PENDING. A repeated claim by the same courier succeeds;
	// losing the race yields types.ErrAlreadyTaken.
	Claim(ctx context.Context, requestID, courierID uuid.UUID) (*models.DeliveryRequest, error)

	// UpdateStatus performs a conditional transition: the row must still
	// carry the expected status and updatedAt, otherwise
	// types.ErrStaleUpdate is returned.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to types.RequestStatus, expectedUpdatedAt time.Time, cancelReason *string) (*models.DeliveryRequest, error)

	// CancelExpired cancels every request still PENDING since before the
	// cutoff and returns the affected rows.
	CancelExpired(ctx context.Context, cutoff time.Time, reason string) ([]models.DeliveryRequest, error)
}

/*=================Courier Repository=====================*/

type CourierRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Courier, error)
	SetOnline(ctx context.Context, id uuid.UUID, online bool) (changed bool, err error)
}

/*=================Voucher Repository=====================*/

type VoucherRepo interface {
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)

	// IncrementUsage bumps used_count while re-checking the usage limit;
	// a concurrent exhaustion yields types.ErrVoucherExhausted.
	IncrementUsage(ctx context.Context, code string) error
}

/*=================Position Store=========================*/

type PositionStore interface {
	Set(ctx context.Context, courierID uuid.UUID, pos models.Position, ttl time.Duration) error
	Get(ctx context.Context, courierID uuid.UUID) (*models.Position, error)
}

/*========================Publisher=======================*/

type Publisher interface {
	PublishRequestStatus(ctx context.Context, msg models.RequestStatusMessage) error
}

/*========================Notifier========================*/

// Notifier pushes live status updates to connected clients. Delivery is
// best-effort; a missed push never fails the operation.
type Notifier interface {
	NotifyRequestStatus(ctx context.Context, msg models.RequestStatusMessage)
}

/*=================Fare Calculation=======================*/

type FareCalculator interface {
	ComputeFare(distanceKm float64, kind types.RequestKind) float64
	ApplyDiscount(subtotal float64, v *models.Voucher, now time.Time) (float64, error)
}

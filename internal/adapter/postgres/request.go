package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
)

type RequestRepo struct {
	db *pgxpool.Pool
}

func NewRequestRepo(db *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{db: db}
}

const requestColumns = `
	id, kind, requester_id, store_id, assigned_courier_id, vehicle_type,
	origin_lat, origin_lon, origin_address,
	dest_lat, dest_lon, dest_address,
	distance_km, subtotal, fare_amount, discount_amount, payable_amount, voucher_code,
	status, cancel_reason, created_at, updated_at, completed_at`

func scanRequest(row pgx.Row) (*models.DeliveryRequest, error) {
	var req models.DeliveryRequest
	err := row.Scan(
		&req.ID, &req.Kind, &req.RequesterID, &req.StoreID, &req.AssignedCourierID, &req.VehicleType,
		&req.Origin.Latitude, &req.Origin.Longitude, &req.Origin.Address,
		&req.Destination.Latitude, &req.Destination.Longitude, &req.Destination.Address,
		&req.DistanceKm, &req.Subtotal, &req.FareAmount, &req.DiscountAmount, &req.PayableAmount, &req.VoucherCode,
		&req.Status, &req.CancelReason, &req.CreatedAt, &req.UpdatedAt, &req.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) Create(ctx context.Context, req *models.DeliveryRequest) error {
	q := TxorDB(ctx, r.db)

	query := `
		INSERT INTO delivery_requests (
			id, kind, requester_id, store_id, vehicle_type,
			origin_lat, origin_lon, origin_address,
			dest_lat, dest_lon, dest_address,
			distance_km, subtotal, fare_amount, discount_amount, payable_amount, voucher_code,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at;`

	err := q.QueryRow(ctx, query,
		req.ID, req.Kind, req.RequesterID, req.StoreID, req.VehicleType,
		req.Origin.Latitude, req.Origin.Longitude, req.Origin.Address,
		req.Destination.Latitude, req.Destination.Longitude, req.Destination.Address,
		req.DistanceKm, req.Subtotal, req.FareAmount, req.DiscountAmount, req.PayableAmount, req.VoucherCode,
		req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("request repo: Create: %w", err)
	}

	return nil
}

func (r *RequestRepo) Get(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM delivery_requests WHERE id = $1;`

	req, err := scanRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("request repo: Get: %w", err)
	}
	return req, nil
}

func (r *RequestRepo) ListPending(ctx context.Context) ([]models.DeliveryRequest, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + requestColumns + `
		FROM delivery_requests
		WHERE status = $1
		ORDER BY created_at;`

	rows, err := q.Query(ctx, query, types.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("request repo: ListPending: %w", err)
	}
	defer rows.Close()

	requests := make([]models.DeliveryRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("request repo: ListPending (scan): %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("request repo: ListPending (rows): %w", err)
	}

	return requests, nil
}

// Claim assigns the request to the courier in a single conditional
// write. A PENDING row is claimable when it is unassigned or targeted
// at this courier; the extra ASSIGNED branch makes a repeated claim by
// the winner succeed without touching a request that already advanced
// further.
func (r *RequestRepo) Claim(ctx context.Context, requestID, courierID uuid.UUID) (*models.DeliveryRequest, error) {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE delivery_requests
		SET status = $3,
		    assigned_courier_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND ((status = $4 AND (assigned_courier_id IS NULL OR assigned_courier_id = $2))
		    OR (status = $3 AND assigned_courier_id = $2))
		RETURNING ` + requestColumns + `;`

	req, err := scanRequest(q.QueryRow(ctx, query, requestID, courierID, types.StatusAssigned, types.StatusPending))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("request repo: Claim: %w", err)
	}

	// No row matched: either the request does not exist or another
	// courier won the race.
	if _, getErr := r.Get(ctx, requestID); getErr != nil {
		return nil, getErr
	}
	return nil, wrap.Error(ctx, types.ErrAlreadyTaken)
}

// UpdateStatus transitions the request only when it still carries the
// expected status and updated_at. A lost race surfaces as
// types.ErrStaleUpdate, never as a silent overwrite.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to types.RequestStatus, expectedUpdatedAt time.Time, cancelReason *string) (*models.DeliveryRequest, error) {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE delivery_requests
		SET status = $2,
		    cancel_reason = COALESCE($3, cancel_reason),
		    completed_at = CASE WHEN $2 = $6 THEN now() ELSE completed_at END,
		    updated_at = now()
		WHERE id = $1 AND status = $4 AND updated_at = $5
		RETURNING ` + requestColumns + `;`

	req, err := scanRequest(q.QueryRow(ctx, query, id, to, cancelReason, from, expectedUpdatedAt, types.StatusCompleted))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("request repo: UpdateStatus: %w", err)
	}

	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, wrap.Error(ctx, types.ErrStaleUpdate)
}

// CancelExpired cancels every request still PENDING since before the
// cutoff and returns the cancelled rows.
func (r *RequestRepo) CancelExpired(ctx context.Context, cutoff time.Time, reason string) ([]models.DeliveryRequest, error) {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE delivery_requests
		SET status = $3,
		    cancel_reason = $2,
		    updated_at = now()
		WHERE status = $4 AND created_at < $1
		RETURNING ` + requestColumns + `;`

	rows, err := q.Query(ctx, query, cutoff, reason, types.StatusCancelled, types.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("request repo: CancelExpired: %w", err)
	}
	defer rows.Close()

	cancelled := make([]models.DeliveryRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("request repo: CancelExpired (scan): %w", err)
		}
		cancelled = append(cancelled, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("request repo: CancelExpired (rows): %w", err)
	}

	return cancelled, nil
}

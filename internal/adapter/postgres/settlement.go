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

type SettlementRepo struct {
	db *pgxpool.Pool
}

func NewSettlementRepo(db *pgxpool.Pool) *SettlementRepo {
	return &SettlementRepo{db: db}
}

// AggregateCompleted rolls up COMPLETED requests by subject within the
// half-open period [start, end). Stores aggregate their food orders;
// couriers aggregate everything they delivered.
func (r *SettlementRepo) AggregateCompleted(ctx context.Context, subjectType types.SubjectType, periodStart, periodEnd time.Time) ([]models.SubjectTotal, error) {
	q := TxorDB(ctx, r.db)

	var query string
	switch subjectType {
	case types.SubjectStore:
		query = `
			SELECT store_id, COUNT(*), COALESCE(SUM(payable_amount), 0)
			FROM delivery_requests
			WHERE status = $1
			  AND store_id IS NOT NULL
			  AND completed_at >= $2 AND completed_at < $3
			GROUP BY store_id;`
	case types.SubjectCourier:
		query = `
			SELECT assigned_courier_id, COUNT(*), COALESCE(SUM(payable_amount), 0)
			FROM delivery_requests
			WHERE status = $1
			  AND assigned_courier_id IS NOT NULL
			  AND completed_at >= $2 AND completed_at < $3
			GROUP BY assigned_courier_id;`
	default:
		return nil, fmt.Errorf("settlement repo: AggregateCompleted: unknown subject type %q", subjectType)
	}

	rows, err := q.Query(ctx, query, types.StatusCompleted, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("settlement repo: AggregateCompleted: %w", err)
	}
	defer rows.Close()

	totals := make([]models.SubjectTotal, 0)
	for rows.Next() {
		var t models.SubjectTotal
		if err := rows.Scan(&t.SubjectID, &t.TotalRequests, &t.GrossAmount); err != nil {
			return nil, fmt.Errorf("settlement repo: AggregateCompleted (scan): %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("settlement repo: AggregateCompleted (rows): %w", err)
	}

	return totals, nil
}

// InsertRecord is idempotent: the unique key on (subject_type,
// subject_id, period_start, period_end) turns a rerun into a no-op.
func (r *SettlementRepo) InsertRecord(ctx context.Context, rec *models.SettlementRecord) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `
		INSERT INTO settlement_records (
			id, subject_type, subject_id, period_start, period_end,
			total_requests, gross_amount, platform_fee, payout_amount, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (subject_type, subject_id, period_start, period_end) DO NOTHING;`

	cmdTag, err := q.Exec(ctx, query,
		rec.ID, rec.SubjectType, rec.SubjectID, rec.PeriodStart, rec.PeriodEnd,
		rec.TotalRequests, rec.GrossAmount, rec.PlatformFee, rec.PayoutAmount, rec.Status,
	)
	if err != nil {
		return false, fmt.Errorf("settlement repo: InsertRecord: %w", err)
	}

	return cmdTag.RowsAffected() > 0, nil
}

func (r *SettlementRepo) Get(ctx context.Context, id uuid.UUID) (*models.SettlementRecord, error) {
	q := TxorDB(ctx, r.db)

	query := `
		SELECT id, subject_type, subject_id, period_start, period_end,
		       total_requests, gross_amount, platform_fee, payout_amount,
		       status, created_at, updated_at
		FROM settlement_records
		WHERE id = $1;`

	var rec models.SettlementRecord
	err := q.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.SubjectType, &rec.SubjectID, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.TotalRequests, &rec.GrossAmount, &rec.PlatformFee, &rec.PayoutAmount,
		&rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrSettlementNotFound
		}
		return nil, fmt.Errorf("settlement repo: Get: %w", err)
	}
	return &rec, nil
}

// AdvanceStatus moves the record forward only when it still carries the
// expected status.
func (r *SettlementRepo) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to types.SettlementStatus) (*models.SettlementRecord, error) {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE settlement_records
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING id, subject_type, subject_id, period_start, period_end,
		          total_requests, gross_amount, platform_fee, payout_amount,
		          status, created_at, updated_at;`

	var rec models.SettlementRecord
	err := q.QueryRow(ctx, query, id, from, to).Scan(
		&rec.ID, &rec.SubjectType, &rec.SubjectID, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.TotalRequests, &rec.GrossAmount, &rec.PlatformFee, &rec.PayoutAmount,
		&rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("settlement repo: AdvanceStatus: %w", err)
	}

	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, wrap.Error(ctx, types.ErrStaleUpdate)
}

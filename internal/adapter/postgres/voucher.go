package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
)

type VoucherRepo struct {
	db *pgxpool.Pool
}

func NewVoucherRepo(db *pgxpool.Pool) *VoucherRepo {
	return &VoucherRepo{db: db}
}

func (r *VoucherRepo) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	q := TxorDB(ctx, r.db)

	query := `
		SELECT code, active, start_date, end_date, usage_limit, used_count,
		       min_order_value, discount_type, discount_value, max_discount_amount
		FROM vouchers
		WHERE code = $1;`

	var v models.Voucher
	err := q.QueryRow(ctx, query, code).Scan(
		&v.Code, &v.Active, &v.StartDate, &v.EndDate, &v.UsageLimit, &v.UsedCount,
		&v.MinOrderValue, &v.DiscountType, &v.DiscountValue, &v.MaxDiscountAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("voucher repo: GetByCode: %w", err)
	}
	return &v, nil
}

// IncrementUsage bumps used_count while re-checking the limit in the
// same statement, so concurrent redemptions cannot overshoot it.
func (r *VoucherRepo) IncrementUsage(ctx context.Context, code string) error {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE vouchers
		SET used_count = used_count + 1
		WHERE code = $1
		  AND (usage_limit IS NULL OR used_count < usage_limit);`

	cmdTag, err := q.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("voucher repo: IncrementUsage: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		if _, getErr := r.GetByCode(ctx, code); getErr != nil {
			return getErr
		}
		return wrap.Error(ctx, types.ErrVoucherExhausted)
	}
	return nil
}

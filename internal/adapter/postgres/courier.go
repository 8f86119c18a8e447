package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
)

type CourierRepo struct {
	db *pgxpool.Pool
}

func NewCourierRepo(db *pgxpool.Pool) *CourierRepo {
	return &CourierRepo{db: db}
}

func (r *CourierRepo) Create(ctx context.Context, courier *models.Courier) error {
	q := TxorDB(ctx, r.db)

	query := `
		INSERT INTO couriers (id, name, vehicle_type, is_online)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at;`

	err := q.QueryRow(ctx, query, courier.ID, courier.Name, courier.VehicleType, courier.IsOnline).
		Scan(&courier.CreatedAt, &courier.UpdatedAt)
	if err != nil {
		return fmt.Errorf("courier repo: Create: %w", err)
	}
	return nil
}

func (r *CourierRepo) Get(ctx context.Context, id uuid.UUID) (*models.Courier, error) {
	q := TxorDB(ctx, r.db)

	query := `
		SELECT id, name, vehicle_type, is_online, created_at, updated_at
		FROM couriers
		WHERE id = $1;`

	var c models.Courier
	err := q.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.VehicleType, &c.IsOnline, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrCourierNotFound
		}
		return nil, fmt.Errorf("courier repo: Get: %w", err)
	}
	return &c, nil
}

// SetOnline flips the availability flag and reports whether the value
// actually changed.
func (r *CourierRepo) SetOnline(ctx context.Context, id uuid.UUID, online bool) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE couriers
		SET is_online = $2, updated_at = now()
		WHERE id = $1
		RETURNING (SELECT is_online FROM couriers WHERE id = $1);`

	var wasOnline bool
	err := q.QueryRow(ctx, query, id, online).Scan(&wasOnline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, types.ErrCourierNotFound
		}
		return false, fmt.Errorf("courier repo: SetOnline: %w", err)
	}
	return wasOnline != online, nil
}

// ListOnline feeds the geo index with the couriers worth ranging over.
func (r *CourierRepo) ListOnline(ctx context.Context) ([]models.Courier, error) {
	q := TxorDB(ctx, r.db)

	query := `
		SELECT id, name, vehicle_type, is_online, created_at, updated_at
		FROM couriers
		WHERE is_online = TRUE;`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("courier repo: ListOnline: %w", err)
	}
	defer rows.Close()

	couriers := make([]models.Courier, 0)
	for rows.Next() {
		var c models.Courier
		if err := rows.Scan(&c.ID, &c.Name, &c.VehicleType, &c.IsOnline, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("courier repo: ListOnline (scan): %w", err)
		}
		couriers = append(couriers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("courier repo: ListOnline (rows): %w", err)
	}

	return couriers, nil
}

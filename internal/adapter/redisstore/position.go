package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/marketfleet/dispatch/internal/domain/models"
)

const positionKeyPrefix = "courier:position:"

// PositionStore keeps last-known courier positions in Redis. Last write
// wins and entries expire with the configured TTL, so a courier that
// stops reporting eventually drops out of proximity queries.
type PositionStore struct {
	client *redis.Client
}

func NewPositionStore(client *redis.Client) *PositionStore {
	return &PositionStore{client: client}
}

func positionKey(courierID uuid.UUID) string {
	return positionKeyPrefix + courierID.String()
}

func (s *PositionStore) Set(ctx context.Context, courierID uuid.UUID, pos models.Position, ttl time.Duration) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("position store: Set (marshal): %w", err)
	}

	if err := s.client.Set(ctx, positionKey(courierID), data, ttl).Err(); err != nil {
		return fmt.Errorf("position store: Set: %w", err)
	}
	return nil
}

// Get returns nil without error when no position is stored.
func (s *PositionStore) Get(ctx context.Context, courierID uuid.UUID) (*models.Position, error) {
	data, err := s.client.Get(ctx, positionKey(courierID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("position store: Get: %w", err)
	}

	var pos models.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return nil, fmt.Errorf("position store: Get (unmarshal): %w", err)
	}
	return &pos, nil
}

// Positions fetches many couriers in one MGET. Couriers without a
// stored position are simply absent from the result.
func (s *PositionStore) Positions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Position, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Position{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = positionKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("position store: Positions: %w", err)
	}

	result := make(map[uuid.UUID]models.Position, len(ids))
	for i, v := range values {
		if v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var pos models.Position
		if err := json.Unmarshal([]byte(raw), &pos); err != nil {
			// A corrupt entry is skipped, not fatal.
			continue
		}
		result[ids[i]] = pos
	}
	return result, nil
}

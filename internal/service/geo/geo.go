package geo

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
)

const earthRadiusM = 6371000

// CourierDirectory lists couriers currently accepting work.
type CourierDirectory interface {
	ListOnline(ctx context.Context) ([]models.Courier, error)
}

// PositionStore holds last-known courier positions keyed by courier ID.
// Couriers without a stored position are absent from the result map.
type PositionStore interface {
	Positions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Position, error)
}

// Index answers proximity queries over online couriers. It prunes with a
// cheap bounding box before paying for the great-circle distance.
type Index struct {
	couriers  CourierDirectory
	positions PositionStore
}

func NewIndex(couriers CourierDirectory, positions PositionStore) *Index {
	return &Index{couriers: couriers, positions: positions}
}

// FindOnlineWithinRadius returns online couriers within radiusM meters of
// the center, sorted by distance ascending. A non-nil vehicle narrows the
// result to that vehicle type. Couriers with no stored position or a
// malformed one are skipped rather than failing the query; a malformed
// center likewise yields an empty result, never a bad match.
func (idx *Index) FindOnlineWithinRadius(ctx context.Context, lat, lon, radiusM float64, vehicle *types.VehicleType) ([]models.CourierWithDistance, error) {
	if !ValidCoordinate(lat, lon) || radiusM <= 0 {
		return []models.CourierWithDistance{}, nil
	}

	online, err := idx.couriers.ListOnline(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if len(online) == 0 {
		return []models.CourierWithDistance{}, nil
	}

	ids := make([]uuid.UUID, 0, len(online))
	for _, c := range online {
		ids = append(ids, c.ID)
	}

	positions, err := idx.positions.Positions(ctx, ids)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	box := boundingBox(lat, lon, radiusM)

	result := make([]models.CourierWithDistance, 0)
	for _, c := range online {
		if vehicle != nil && c.VehicleType != *vehicle {
			continue
		}
		pos, ok := positions[c.ID]
		if !ok || !ValidCoordinate(pos.Latitude, pos.Longitude) {
			continue
		}
		if !box.contains(pos.Latitude, pos.Longitude) {
			continue
		}

		d := Haversine(lat, lon, pos.Latitude, pos.Longitude)
		if d > radiusM {
			continue
		}

		result = append(result, models.CourierWithDistance{
			Courier:   c,
			Position:  pos,
			DistanceM: d,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DistanceM < result[j].DistanceM
	})
	return result, nil
}

// Haversine returns the great-circle distance between two points in
// meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// ValidCoordinate reports whether the pair is a usable WGS84 coordinate.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

type bbox struct {
	minLat, maxLat float64
	minLon, maxLon float64
}

func (b bbox) contains(lat, lon float64) bool {
	return lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon
}

// boundingBox approximates radiusM around the center. One degree of
// latitude is ~111.32 km; longitude degrees shrink by cos(latitude).
// Near the poles the longitude span degenerates, so the box falls back
// to the full range there.
func boundingBox(lat, lon, radiusM float64) bbox {
	const metersPerDegree = 111320.0

	dLat := radiusM / metersPerDegree

	cosLat := math.Cos(lat * math.Pi / 180)
	dLon := 180.0
	if cosLat > 1e-6 {
		dLon = radiusM / (metersPerDegree * cosLat)
	}

	return bbox{
		minLat: lat - dLat,
		maxLat: lat + dLat,
		minLon: lon - dLon,
		maxLon: lon + dLon,
	}
}

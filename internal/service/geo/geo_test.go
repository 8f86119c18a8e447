package geo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
)

type fakeDirectory struct {
	couriers []models.Courier
}

func (f *fakeDirectory) ListOnline(ctx context.Context) ([]models.Courier, error) {
	return f.couriers, nil
}

type fakePositions struct {
	positions map[uuid.UUID]models.Position
}

func (f *fakePositions) Positions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Position, error) {
	out := make(map[uuid.UUID]models.Position, len(ids))
	for _, id := range ids {
		if pos, ok := f.positions[id]; ok {
			out[id] = pos
		}
	}
	return out, nil
}

func courier(name string) models.Courier {
	return models.Courier{
		ID:          uuid.New(),
		Name:        name,
		VehicleType: types.VehicleMotorbike,
		IsOnline:    true,
	}
}

func pos(lat, lon float64) models.Position {
	return models.Position{Latitude: lat, Longitude: lon, UpdatedAt: time.Now()}
}

func TestHaversine(t *testing.T) {
	// Hoan Kiem Lake to West Lake, Hanoi: roughly 4.3 km.
	d := Haversine(21.0285, 105.8542, 21.0587, 105.8230)
	if d < 4000 || d > 5000 {
		t.Fatalf("Haversine = %.0f m, want roughly 4300 m", d)
	}

	if d := Haversine(21.0285, 105.8542, 21.0285, 105.8542); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestFindOnlineWithinRadius(t *testing.T) {
	center := struct{ lat, lon float64 }{21.0285, 105.8542}

	near := courier("near")
	far := courier("far")
	noPosition := courier("silent")

	dir := &fakeDirectory{couriers: []models.Courier{far, near, noPosition}}
	store := &fakePositions{positions: map[uuid.UUID]models.Position{
		near.ID: pos(21.0320, 105.8500), // ~600 m away
		far.ID:  pos(21.1000, 105.9500), // ~12 km away
	}}

	idx := NewIndex(dir, store)

	got, err := idx.FindOnlineWithinRadius(context.Background(), center.lat, center.lon, 5000, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d couriers, want 1", len(got))
	}
	if got[0].ID != near.ID {
		t.Fatalf("got courier %s, want %s", got[0].Name, near.Name)
	}
	if got[0].DistanceM <= 0 || got[0].DistanceM > 5000 {
		t.Fatalf("distance %v out of expected range", got[0].DistanceM)
	}
}

// TestFindOnlineWithinRadiusBoxCorner places a courier inside the
// bounding box but outside the true radius. The box corner of a 5 km
// square lies ~7 km from the center, so the box alone would admit it.
func TestFindOnlineWithinRadiusBoxCorner(t *testing.T) {
	const radiusM = 5000
	centerLat, centerLon := 21.0285, 105.8542

	dLat := radiusM / 111320.0
	dLon := radiusM / (111320.0 * math.Cos(centerLat*math.Pi/180))

	cornerLat := centerLat + dLat*0.99
	cornerLon := centerLon + dLon*0.99

	if d := Haversine(centerLat, centerLon, cornerLat, cornerLon); d <= radiusM {
		t.Fatalf("test setup broken: corner distance %.0f m should exceed %d m", d, radiusM)
	}

	atCorner := courier("corner")
	dir := &fakeDirectory{couriers: []models.Courier{atCorner}}
	store := &fakePositions{positions: map[uuid.UUID]models.Position{
		atCorner.ID: pos(cornerLat, cornerLon),
	}}

	got, err := NewIndex(dir, store).FindOnlineWithinRadius(context.Background(), centerLat, centerLon, radiusM, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("courier at box corner must be excluded, got %d results", len(got))
	}
}

func TestFindOnlineWithinRadiusSortedByDistance(t *testing.T) {
	centerLat, centerLon := 21.0285, 105.8542

	a := courier("a")
	b := courier("b")
	c := courier("c")

	dir := &fakeDirectory{couriers: []models.Courier{a, b, c}}
	store := &fakePositions{positions: map[uuid.UUID]models.Position{
		a.ID: pos(21.0450, 105.8542), // ~1.8 km
		b.ID: pos(21.0300, 105.8542), // ~170 m
		c.ID: pos(21.0380, 105.8542), // ~1.1 km
	}}

	got, err := NewIndex(dir, store).FindOnlineWithinRadius(context.Background(), centerLat, centerLon, 5000, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d couriers, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].DistanceM < got[i-1].DistanceM {
			t.Fatalf("results not sorted by distance: %v before %v", got[i-1].DistanceM, got[i].DistanceM)
		}
	}
	if got[0].ID != b.ID {
		t.Fatalf("nearest courier should be %s, got %s", b.Name, got[0].Name)
	}
}

func TestFindOnlineWithinRadiusMalformedInput(t *testing.T) {
	c := courier("somewhere")
	dir := &fakeDirectory{couriers: []models.Courier{c}}
	store := &fakePositions{positions: map[uuid.UUID]models.Position{
		c.ID: pos(21.0285, 105.8542),
	}}
	idx := NewIndex(dir, store)

	// Malformed center fails closed: empty result, no error.
	for _, in := range []struct{ lat, lon float64 }{
		{91, 105}, {-91, 105}, {21, 181}, {21, -181}, {math.NaN(), 105}, {21, math.Inf(1)},
	} {
		got, err := idx.FindOnlineWithinRadius(context.Background(), in.lat, in.lon, 5000, nil)
		if err != nil {
			t.Fatalf("FindOnlineWithinRadius(%v, %v) error: %v", in.lat, in.lon, err)
		}
		if len(got) != 0 {
			t.Fatalf("FindOnlineWithinRadius(%v, %v) = %d results, want 0", in.lat, in.lon, len(got))
		}
	}

	// Malformed stored position skips that courier, not the query.
	store.positions[c.ID] = pos(math.NaN(), 105.8542)
	got, err := idx.FindOnlineWithinRadius(context.Background(), 21.0285, 105.8542, 5000, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("courier with malformed position must be skipped, got %d results", len(got))
	}
}

func TestFindOnlineWithinRadiusVehicleFilter(t *testing.T) {
	centerLat, centerLon := 21.0285, 105.8542

	bike := courier("bike")
	car := courier("car")
	car.VehicleType = types.VehicleCar

	dir := &fakeDirectory{couriers: []models.Courier{bike, car}}
	store := &fakePositions{positions: map[uuid.UUID]models.Position{
		bike.ID: pos(21.0300, 105.8542),
		car.ID:  pos(21.0310, 105.8542),
	}}

	want := types.VehicleCar
	got, err := NewIndex(dir, store).FindOnlineWithinRadius(context.Background(), centerLat, centerLon, 5000, &want)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != car.ID {
		t.Fatalf("vehicle filter should keep only the car courier, got %d results", len(got))
	}
}

func TestValidCoordinate(t *testing.T) {
	valid := [][2]float64{{0, 0}, {90, 180}, {-90, -180}, {21.0285, 105.8542}}
	for _, v := range valid {
		if !ValidCoordinate(v[0], v[1]) {
			t.Errorf("ValidCoordinate(%v, %v) = false, want true", v[0], v[1])
		}
	}
	invalid := [][2]float64{{90.1, 0}, {-90.1, 0}, {0, 180.1}, {0, -180.1}, {math.NaN(), 0}, {0, math.Inf(-1)}}
	for _, v := range invalid {
		if ValidCoordinate(v[0], v[1]) {
			t.Errorf("ValidCoordinate(%v, %v) = true, want false", v[0], v[1])
		}
	}
}

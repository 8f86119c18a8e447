package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/config"
	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	"github.com/marketfleet/dispatch/internal/service/fare"
	"github.com/marketfleet/dispatch/pkg/logger"
)

/*=====================In-memory fakes====================*/

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.DeliveryRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]*models.DeliveryRequest)}
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *models.DeliveryRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	clone := *req
	f.requests[req.ID] = &clone
	return nil
}

func (f *fakeRequestRepo) Get(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	clone := *req
	return &clone, nil
}

func (f *fakeRequestRepo) ListPending(ctx context.Context) ([]models.DeliveryRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.DeliveryRequest, 0)
	for _, req := range f.requests {
		if req.Status == types.StatusPending {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) Claim(ctx context.Context, requestID, courierID uuid.UUID) (*models.DeliveryRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[requestID]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	if req.AssignedCourierID != nil && *req.AssignedCourierID == courierID {
		clone := *req
		return &clone, nil
	}
	if req.Status != types.StatusPending {
		return nil, types.ErrAlreadyTaken
	}

	id := courierID
	req.AssignedCourierID = &id
	req.Status = types.StatusAssigned
	req.UpdatedAt = time.Now()
	clone := *req
	return &clone, nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to types.RequestStatus, expectedUpdatedAt time.Time, cancelReason *string) (*models.DeliveryRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	if req.Status != from || !req.UpdatedAt.Equal(expectedUpdatedAt) {
		return nil, types.ErrStaleUpdate
	}

	req.Status = to
	req.UpdatedAt = time.Now()
	req.CancelReason = cancelReason
	if to == types.StatusCompleted {
		now := time.Now()
		req.CompletedAt = &now
	}
	clone := *req
	return &clone, nil
}

func (f *fakeRequestRepo) CancelExpired(ctx context.Context, cutoff time.Time, reason string) ([]models.DeliveryRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.DeliveryRequest, 0)
	for _, req := range f.requests {
		if req.Status == types.StatusPending && req.CreatedAt.Before(cutoff) {
			req.Status = types.StatusCancelled
			r := reason
			req.CancelReason = &r
			req.UpdatedAt = time.Now()
			out = append(out, *req)
		}
	}
	return out, nil
}

type fakeCourierRepo struct {
	mu       sync.Mutex
	couriers map[uuid.UUID]*models.Courier
}

func newFakeCourierRepo(couriers ...*models.Courier) *fakeCourierRepo {
	f := &fakeCourierRepo{couriers: make(map[uuid.UUID]*models.Courier)}
	for _, c := range couriers {
		f.couriers[c.ID] = c
	}
	return f
}

func (f *fakeCourierRepo) Get(ctx context.Context, id uuid.UUID) (*models.Courier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.couriers[id]
	if !ok {
		return nil, types.ErrCourierNotFound
	}
	clone := *c
	return &clone, nil
}

func (f *fakeCourierRepo) SetOnline(ctx context.Context, id uuid.UUID, online bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.couriers[id]
	if !ok {
		return false, types.ErrCourierNotFound
	}
	changed := c.IsOnline != online
	c.IsOnline = online
	return changed, nil
}

type fakeVoucherRepo struct {
	mu       sync.Mutex
	vouchers map[string]*models.Voucher
}

func (f *fakeVoucherRepo) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.vouchers[code]
	if !ok {
		return nil, types.ErrVoucherNotFound
	}
	clone := *v
	return &clone, nil
}

func (f *fakeVoucherRepo) IncrementUsage(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.vouchers[code]
	if !ok {
		return types.ErrVoucherNotFound
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return types.ErrVoucherExhausted
	}
	v.UsedCount++
	return nil
}

type fakePositionStore struct {
	mu        sync.Mutex
	positions map[uuid.UUID]models.Position
}

func newFakePositionStore() *fakePositionStore {
	return &fakePositionStore{positions: make(map[uuid.UUID]models.Position)}
}

func (f *fakePositionStore) Set(ctx context.Context, courierID uuid.UUID, pos models.Position, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[courierID] = pos
	return nil
}

func (f *fakePositionStore) Get(ctx context.Context, courierID uuid.UUID) (*models.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pos, ok := f.positions[courierID]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []models.RequestStatusMessage
}

func (p *capturingPublisher) PublishRequestStatus(ctx context.Context, msg models.RequestStatusMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturingPublisher) published() []models.RequestStatusMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.RequestStatusMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// noTx runs the function directly; the fakes are already atomic.
type noTx struct{}

func (noTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

/*=====================Test fixture=======================*/

type fixture struct {
	svc       *Service
	requests  *fakeRequestRepo
	couriers  *fakeCourierRepo
	vouchers  *fakeVoucherRepo
	positions *fakePositionStore
	publisher *capturingPublisher
}

func newFixture(t *testing.T, couriers ...*models.Courier) *fixture {
	t.Helper()

	f := &fixture{
		requests:  newFakeRequestRepo(),
		couriers:  newFakeCourierRepo(couriers...),
		vouchers:  &fakeVoucherRepo{vouchers: make(map[string]*models.Voucher)},
		positions: newFakePositionStore(),
		publisher: &capturingPublisher{},
	}

	calc := fare.NewCalculator(config.TariffsConfig{
		FoodOrder: config.TariffConfig{BaseFee: 15000, FreeKm: 3, PerKmRate: 5000},
		Ride:      config.TariffConfig{BaseFee: 12000, FreeKm: 2, PerKmRate: 9000},
	})

	cfg := config.DispatchConfig{
		SearchRadiusM:  5000,
		PendingTimeout: config.Duration(15 * time.Minute),
		SweepInterval:  config.Duration(30 * time.Second),
	}

	f.svc = New(f.requests, f.couriers, f.vouchers, f.positions, f.publisher, nil, calc, noTx{}, cfg, logger.InitLogger("dispatch-test", logger.LevelError))
	return f
}

func onlineCourier(vehicle types.VehicleType) *models.Courier {
	return &models.Courier{
		ID:          uuid.New(),
		Name:        "courier",
		VehicleType: vehicle,
		IsOnline:    true,
	}
}

func (f *fixture) placeCourier(t *testing.T, id uuid.UUID, lat, lon float64) {
	t.Helper()
	if err := f.svc.UpdateCourierPosition(context.Background(), id, lat, lon, time.Now()); err != nil {
		t.Fatalf("UpdateCourierPosition: %v", err)
	}
}

func (f *fixture) createFoodOrder(t *testing.T, originLat, originLon float64) *models.DeliveryRequest {
	t.Helper()

	storeID := uuid.New()
	req, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		Kind:        types.KindFoodOrder,
		RequesterID: uuid.New(),
		StoreID:     &storeID,
		Origin:      models.Location{Latitude: originLat, Longitude: originLon},
		Destination: models.Location{Latitude: originLat + 0.02, Longitude: originLon + 0.02},
		Subtotal:    120000,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

/*=====================Tests==============================*/

func TestCreateRequestComputesFare(t *testing.T) {
	f := newFixture(t)

	req := f.createFoodOrder(t, 21.0285, 105.8542)

	if req.Status != types.StatusPending {
		t.Fatalf("new request status = %s, want PENDING", req.Status)
	}
	if req.DistanceKm <= 0 {
		t.Fatalf("distance = %v, want > 0", req.DistanceKm)
	}
	if req.FareAmount < 15000 {
		t.Fatalf("fare = %v, must include the base fee", req.FareAmount)
	}
	if req.PayableAmount != req.FareAmount {
		t.Fatalf("payable = %v without voucher, want fare %v", req.PayableAmount, req.FareAmount)
	}

	msgs := f.publisher.published()
	if len(msgs) != 1 || msgs[0].Status != types.StatusPending {
		t.Fatalf("expected one PENDING status message, got %v", msgs)
	}
}

func TestCreateRequestRejectsBadCoordinates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		Kind:        types.KindRide,
		RequesterID: uuid.New(),
		Origin:      models.Location{Latitude: 95, Longitude: 105.8542},
		Destination: models.Location{Latitude: 21.0, Longitude: 105.8},
	})
	if !errors.Is(err, types.ErrInvalidCoordinates) {
		t.Fatalf("error = %v, want ErrInvalidCoordinates", err)
	}
}

func TestCreateRequestWithVoucher(t *testing.T) {
	f := newFixture(t)

	limit := 1
	maxDiscount := 30000.0
	f.vouchers.vouchers["SAVE20"] = &models.Voucher{
		Code:              "SAVE20",
		Active:            true,
		StartDate:         time.Now().Add(-time.Hour),
		EndDate:           time.Now().Add(time.Hour),
		UsageLimit:        &limit,
		DiscountType:      types.DiscountPercentage,
		DiscountValue:     20,
		MaxDiscountAmount: &maxDiscount,
	}

	code := "SAVE20"
	in := CreateRequestInput{
		Kind:        types.KindFoodOrder,
		RequesterID: uuid.New(),
		Origin:      models.Location{Latitude: 21.0285, Longitude: 105.8542},
		Destination: models.Location{Latitude: 21.0587, Longitude: 105.8230},
		Subtotal:    200000,
		VoucherCode: &code,
	}

	req, err := f.svc.CreateRequest(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.DiscountAmount != 30000 {
		t.Fatalf("discount = %v, want 30000 (20%% of 200000 capped)", req.DiscountAmount)
	}
	if req.PayableAmount != fare.Payable(req.FareAmount, 30000) {
		t.Fatalf("payable = %v, want fare minus discount", req.PayableAmount)
	}

	// The single use is burned; a second redemption must fail.
	if _, err := f.svc.CreateRequest(context.Background(), in); !errors.Is(err, types.ErrVoucherExhausted) {
		t.Fatalf("second redemption error = %v, want ErrVoucherExhausted", err)
	}
}

func TestClaimSingleWinner(t *testing.T) {
	const numCouriers = 16

	couriers := make([]*models.Courier, numCouriers)
	for i := range couriers {
		couriers[i] = onlineCourier(types.VehicleMotorbike)
	}

	f := newFixture(t, couriers...)
	req := f.createFoodOrder(t, 21.0285, 105.8542)
	for _, c := range couriers {
		f.placeCourier(t, c.ID, 21.0300, 105.8550)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		losses  int
	)

	for _, c := range couriers {
		wg.Add(1)
		go func(courierID uuid.UUID) {
			defer wg.Done()

			claimed, err := f.svc.Claim(context.Background(), req.ID, courierID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, *claimed.AssignedCourierID)
			case errors.Is(err, types.ErrAlreadyTaken):
				losses++
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}(c.ID)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("got %d winners, want exactly 1", len(winners))
	}
	if losses != numCouriers-1 {
		t.Fatalf("got %d ErrAlreadyTaken, want %d", losses, numCouriers-1)
	}

	got, err := f.svc.GetRequest(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Status != types.StatusAssigned || got.AssignedCourierID == nil || *got.AssignedCourierID != winners[0] {
		t.Fatalf("final state %s assigned to %v, want ASSIGNED to winner %s", got.Status, got.AssignedCourierID, winners[0])
	}
}

func TestClaimIdempotentForWinner(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	f := newFixture(t, c)
	req := f.createFoodOrder(t, 21.0285, 105.8542)
	f.placeCourier(t, c.ID, 21.0300, 105.8550)

	if _, err := f.svc.Claim(context.Background(), req.ID, c.ID); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	again, err := f.svc.Claim(context.Background(), req.ID, c.ID)
	if err != nil {
		t.Fatalf("repeated claim by winner must succeed, got %v", err)
	}
	if *again.AssignedCourierID != c.ID {
		t.Fatalf("repeated claim reassigned the request")
	}
}

func TestClaimEligibility(t *testing.T) {
	offline := onlineCourier(types.VehicleMotorbike)
	offline.IsOnline = false
	wrongVehicle := onlineCourier(types.VehicleVan)
	tooFar := onlineCourier(types.VehicleMotorbike)
	noPosition := onlineCourier(types.VehicleMotorbike)

	f := newFixture(t, offline, wrongVehicle, tooFar, noPosition)

	storeID := uuid.New()
	vt := types.VehicleMotorbike
	req, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		Kind:        types.KindFoodOrder,
		RequesterID: uuid.New(),
		StoreID:     &storeID,
		VehicleType: &vt,
		Origin:      models.Location{Latitude: 21.0285, Longitude: 105.8542},
		Destination: models.Location{Latitude: 21.0587, Longitude: 105.8230},
		Subtotal:    100000,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	f.placeCourier(t, offline.ID, 21.0300, 105.8550)
	f.placeCourier(t, wrongVehicle.ID, 21.0300, 105.8550)
	f.placeCourier(t, tooFar.ID, 21.2000, 106.0500)

	for name, courierID := range map[string]uuid.UUID{
		"offline courier":  offline.ID,
		"vehicle mismatch": wrongVehicle.ID,
		"out of radius":    tooFar.ID,
		"unknown position": noPosition.ID,
	} {
		if _, err := f.svc.Claim(context.Background(), req.ID, courierID); !errors.Is(err, types.ErrNotEligible) {
			t.Errorf("%s: error = %v, want ErrNotEligible", name, err)
		}
	}

	got, _ := f.svc.GetRequest(context.Background(), req.ID)
	if got.Status != types.StatusPending {
		t.Fatalf("ineligible claims must not assign; status = %s", got.Status)
	}
}

func TestListCandidatesRankedByDistance(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	f := newFixture(t, c)
	f.placeCourier(t, c.ID, 21.0285, 105.8542)

	far := f.createFoodOrder(t, 21.0450, 105.8542)  // ~1.8 km
	near := f.createFoodOrder(t, 21.0300, 105.8542) // ~170 m
	f.createFoodOrder(t, 21.3000, 106.2000)         // far outside the radius

	vt := types.VehicleVan
	storeID := uuid.New()
	if _, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		Kind:        types.KindFoodOrder,
		RequesterID: uuid.New(),
		StoreID:     &storeID,
		VehicleType: &vt,
		Origin:      models.Location{Latitude: 21.0290, Longitude: 105.8542},
		Destination: models.Location{Latitude: 21.0587, Longitude: 105.8230},
		Subtotal:    50000,
	}); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	candidates, err := f.svc.ListCandidates(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2 (radius and vehicle filters)", len(candidates))
	}
	if candidates[0].ID != near.ID || candidates[1].ID != far.ID {
		t.Fatalf("candidates not ordered by pickup distance")
	}
	if candidates[0].PickupDistanceM >= candidates[1].PickupDistanceM {
		t.Fatalf("distances not ascending: %v then %v", candidates[0].PickupDistanceM, candidates[1].PickupDistanceM)
	}
}

func TestListCandidatesRequiresOnline(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	c.IsOnline = false
	f := newFixture(t, c)

	if _, err := f.svc.ListCandidates(context.Background(), c.ID); !errors.Is(err, types.ErrCourierOffline) {
		t.Fatalf("error = %v, want ErrCourierOffline", err)
	}
}

func TestAdvanceStatusHappyPath(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	f := newFixture(t, c)
	req := f.createFoodOrder(t, 21.0285, 105.8542)
	f.placeCourier(t, c.ID, 21.0300, 105.8550)

	if _, err := f.svc.Claim(context.Background(), req.ID, c.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	for _, to := range []types.RequestStatus{
		types.StatusArriving, types.StatusInProgress, types.StatusCompleted,
	} {
		updated, err := f.svc.AdvanceStatus(context.Background(), req.ID, c.ID, to)
		if err != nil {
			t.Fatalf("AdvanceStatus to %s: %v", to, err)
		}
		if updated.Status != to {
			t.Fatalf("status = %s, want %s", updated.Status, to)
		}
	}

	final, _ := f.svc.GetRequest(context.Background(), req.ID)
	if final.CompletedAt == nil {
		t.Fatal("CompletedAt must be set on completion")
	}
}

func TestAdvanceStatusGuards(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	intruder := onlineCourier(types.VehicleMotorbike)
	f := newFixture(t, c, intruder)
	req := f.createFoodOrder(t, 21.0285, 105.8542)
	f.placeCourier(t, c.ID, 21.0300, 105.8550)

	// Unassigned request: no courier may advance it.
	if _, err := f.svc.AdvanceStatus(context.Background(), req.ID, c.ID, types.StatusArriving); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("advance before claim: error = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.svc.Claim(context.Background(), req.ID, c.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Wrong caller.
	if _, err := f.svc.AdvanceStatus(context.Background(), req.ID, intruder.ID, types.StatusArriving); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("intruder advance: error = %v, want ErrInvalidTransition", err)
	}

	// Skipping a lifecycle step.
	if _, err := f.svc.AdvanceStatus(context.Background(), req.ID, c.ID, types.StatusCompleted); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("skip to COMPLETED: error = %v, want ErrInvalidTransition", err)
	}

	// Cancel is never a courier event.
	if _, err := f.svc.AdvanceStatus(context.Background(), req.ID, c.ID, types.StatusCancelled); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("courier cancel: error = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelRules(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	f := newFixture(t, c)
	req := f.createFoodOrder(t, 21.0285, 105.8542)
	f.placeCourier(t, c.ID, 21.0300, 105.8550)

	// A stranger cannot cancel.
	if _, err := f.svc.Cancel(context.Background(), req.ID, uuid.New(), "changed my mind"); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("stranger cancel: error = %v, want ErrInvalidTransition", err)
	}

	// The requester can cancel while ASSIGNED.
	if _, err := f.svc.Claim(context.Background(), req.ID, c.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	cancelled, err := f.svc.Cancel(context.Background(), req.ID, req.RequesterID, "changed my mind")
	if err != nil {
		t.Fatalf("requester cancel: %v", err)
	}
	if cancelled.Status != types.StatusCancelled || cancelled.CancelReason == nil {
		t.Fatalf("cancel did not record status and reason: %+v", cancelled)
	}

	// Terminal requests stay cancelled.
	if _, err := f.svc.Cancel(context.Background(), req.ID, req.RequesterID, "again"); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("double cancel: error = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelIrrevocableOnceArriving(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	f := newFixture(t, c)
	req := f.createFoodOrder(t, 21.0285, 105.8542)
	f.placeCourier(t, c.ID, 21.0300, 105.8550)

	if _, err := f.svc.Claim(context.Background(), req.ID, c.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.svc.AdvanceStatus(context.Background(), req.ID, c.ID, types.StatusArriving); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if _, err := f.svc.Cancel(context.Background(), req.ID, req.RequesterID, "too late"); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("cancel after ARRIVING: error = %v, want ErrInvalidTransition", err)
	}
}

func TestSweepExpiredCancelsPending(t *testing.T) {
	f := newFixture(t)

	stale := f.createFoodOrder(t, 21.0285, 105.8542)
	fresh := f.createFoodOrder(t, 21.0285, 105.8542)

	// Age the first request past the timeout.
	f.requests.mu.Lock()
	f.requests.requests[stale.ID].CreatedAt = time.Now().Add(-time.Hour)
	f.requests.mu.Unlock()

	if err := f.svc.SweepExpired(context.Background()); err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}

	got, _ := f.svc.GetRequest(context.Background(), stale.ID)
	if got.Status != types.StatusCancelled {
		t.Fatalf("stale request status = %s, want CANCELLED", got.Status)
	}
	if got.CancelReason == nil || *got.CancelReason != timeoutCancelReason {
		t.Fatalf("cancel reason = %v, want %q", got.CancelReason, timeoutCancelReason)
	}

	untouched, _ := f.svc.GetRequest(context.Background(), fresh.ID)
	if untouched.Status != types.StatusPending {
		t.Fatalf("fresh request status = %s, want PENDING", untouched.Status)
	}

	var cancelledMsgs int
	for _, m := range f.publisher.published() {
		if m.Status == types.StatusCancelled {
			cancelledMsgs++
		}
	}
	if cancelledMsgs != 1 {
		t.Fatalf("got %d cancellation messages, want 1", cancelledMsgs)
	}
}

func TestUpdateCourierPositionValidation(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	f := newFixture(t, c)

	err := f.svc.UpdateCourierPosition(context.Background(), c.ID, 181, 0, time.Now())
	if !errors.Is(err, types.ErrInvalidCoordinates) {
		t.Fatalf("error = %v, want ErrInvalidCoordinates", err)
	}

	if err := f.svc.UpdateCourierPosition(context.Background(), c.ID, 21.0285, 105.8542, time.Now()); err != nil {
		t.Fatalf("valid position rejected: %v", err)
	}
	pos, err := f.positions.Get(context.Background(), c.ID)
	if err != nil || pos == nil {
		t.Fatalf("position not stored: %v", err)
	}
}

func TestSetCourierOnline(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	c.IsOnline = false
	f := newFixture(t, c)

	if err := f.svc.SetCourierOnline(context.Background(), c.ID, true); err != nil {
		t.Fatalf("SetCourierOnline: %v", err)
	}
	got, _ := f.couriers.Get(context.Background(), c.ID)
	if !got.IsOnline {
		t.Fatal("courier should be online")
	}

	if err := f.svc.SetCourierOnline(context.Background(), uuid.New(), true); !errors.Is(err, types.ErrCourierNotFound) {
		t.Fatalf("unknown courier: error = %v, want ErrCourierNotFound", err)
	}
}

func TestStaleUpdateSurfaceExample(t *testing.T) {
	c := onlineCourier(types.VehicleMotorbike)
	f := newFixture(t, c)
	req := f.createFoodOrder(t, 21.0285, 105.8542)
	f.placeCourier(t, c.ID, 21.0300, 105.8550)

	if _, err := f.svc.Claim(context.Background(), req.ID, c.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Simulate a concurrent writer touching the row between the service's
	// read and its conditional update.
	assigned, _ := f.svc.GetRequest(context.Background(), req.ID)
	if _, err := f.requests.UpdateStatus(context.Background(), req.ID, assigned.Status, types.StatusArriving, assigned.UpdatedAt, nil); err != nil {
		t.Fatalf("setup update: %v", err)
	}
	_, err := f.requests.UpdateStatus(context.Background(), req.ID, assigned.Status, types.StatusArriving, assigned.UpdatedAt, nil)
	if !errors.Is(err, types.ErrStaleUpdate) {
		t.Fatalf("error = %v, want ErrStaleUpdate", err)
	}
}

func TestStatusMessageUsesDisplayVocabulary(t *testing.T) {
	f := newFixture(t)
	req := f.createFoodOrder(t, 21.0285, 105.8542)

	msgs := f.publisher.published()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].DisplayStatus != "READY_FOR_PICKUP" {
		t.Fatalf("display status = %q, want READY_FOR_PICKUP for a pending food order", msgs[0].DisplayStatus)
	}
	if msgs[0].RequestID != req.ID {
		t.Fatalf("message request id mismatch")
	}
}

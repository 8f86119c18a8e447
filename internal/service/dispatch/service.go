package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/config"
	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	"github.com/marketfleet/dispatch/internal/service/fare"
	"github.com/marketfleet/dispatch/internal/service/geo"
	"github.com/marketfleet/dispatch/internal/service/lifecycle"
	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/metrics"
	"github.com/marketfleet/dispatch/pkg/trm"
)

/*
Service provides the dispatch pipeline: request creation with fare
calculation, candidate matching, claiming and lifecycle transitions.
*/
type Service struct {
	repos     repos
	positions PositionStore
	publisher Publisher
	notifier  Notifier
	calc      FareCalculator
	trm       trm.TxManager
	cfg       config.DispatchConfig
	l         logger.Logger
}

type repos struct {
	request RequestRepo
	courier CourierRepo
	voucher VoucherRepo
}

// New returns a new dispatch service with all dependencies injected.
func New(requestRepo RequestRepo, courierRepo CourierRepo, voucherRepo VoucherRepo, positions PositionStore, publisher Publisher, notifier Notifier, calc FareCalculator, trm trm.TxManager, cfg config.DispatchConfig, l logger.Logger) *Service {
	return &Service{
		repos: repos{
			request: requestRepo,
			courier: courierRepo,
			voucher: voucherRepo,
		},
		positions: positions,
		publisher: publisher,
		notifier:  notifier,
		calc:      calc,
		trm:       trm,
		cfg:       cfg,
		l:         l,
	}
}

// CreateRequestInput carries everything a requester submits. Subtotal
// comes from the upstream catalog; it is zero for rides.
type CreateRequestInput struct {
	Kind        types.RequestKind
	RequesterID uuid.UUID
	StoreID     *uuid.UUID
	VehicleType *types.VehicleType
	Origin      models.Location
	Destination models.Location
	Subtotal    float64
	VoucherCode *string
}

// CreateRequest prices and persists a new delivery request. The fare,
// discount and payable amount are fixed here and never recomputed.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.DeliveryRequest, error) {
	ctx = wrap.WithAction(ctx, "create_request")

	if !in.Kind.Valid() {
		return nil, wrap.Error(ctx, fmt.Errorf("unknown request kind %q", in.Kind))
	}
	if !geo.ValidCoordinate(in.Origin.Latitude, in.Origin.Longitude) ||
		!geo.ValidCoordinate(in.Destination.Latitude, in.Destination.Longitude) {
		return nil, wrap.Error(ctx, types.ErrInvalidCoordinates)
	}

	distanceKm := geo.Haversine(
		in.Origin.Latitude, in.Origin.Longitude,
		in.Destination.Latitude, in.Destination.Longitude,
	) / 1000

	req := &models.DeliveryRequest{
		ID:          uuid.New(),
		Kind:        in.Kind,
		RequesterID: in.RequesterID,
		StoreID:     in.StoreID,
		VehicleType: in.VehicleType,
		Origin:      in.Origin,
		Destination: in.Destination,
		DistanceKm:  distanceKm,
		Subtotal:    in.Subtotal,
		FareAmount:  s.calc.ComputeFare(distanceKm, in.Kind),
		VoucherCode: in.VoucherCode,
		Status:      types.StatusPending,
	}

	fn := func(ctx context.Context) error {
		if in.VoucherCode != nil {
			voucher, err := s.repos.voucher.GetByCode(ctx, *in.VoucherCode)
			if err != nil {
				return wrap.Error(ctx, err)
			}

			discount, err := s.calc.ApplyDiscount(in.Subtotal, voucher, time.Now())
			if err != nil {
				return wrap.Error(ctx, err)
			}

			// Burn the usage inside the same transaction so the limit
			// holds under concurrent redemptions.
			if err := s.repos.voucher.IncrementUsage(ctx, *in.VoucherCode); err != nil {
				return wrap.Error(ctx, err)
			}
			req.DiscountAmount = discount
		}

		req.PayableAmount = fare.Payable(req.FareAmount, req.DiscountAmount)

		if err := s.repos.request.Create(ctx, req); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to create delivery request: %w", err))
		}
		return nil
	}

	if err := s.trm.Do(ctx, fn); err != nil {
		return nil, err
	}

	metrics.RequestsCreatedTotal.WithLabelValues(string(req.Kind)).Inc()
	s.l.Info(ctx, "delivery request created",
		"request_id", req.ID,
		"kind", req.Kind,
		"payable_amount", req.PayableAmount,
	)

	s.broadcast(ctx, req)
	return req, nil
}

// GetRequest loads one request by id.
func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error) {
	ctx = wrap.WithAction(ctx, "get_request")

	req, err := s.repos.request.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return req, nil
}

// ListCandidates returns the pending requests the courier could claim
// right now: vehicle-compatible and within the search radius of the
// courier's last position, nearest pickup first. A courier without a
// known position sees an empty list.
func (s *Service) ListCandidates(ctx context.Context, courierID uuid.UUID) ([]models.CandidateRequest, error) {
	ctx = wrap.WithAction(ctx, "list_candidates")

	courier, err := s.repos.courier.Get(ctx, courierID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !courier.IsOnline {
		return nil, wrap.Error(ctx, types.ErrCourierOffline)
	}

	pos, err := s.positions.Get(ctx, courierID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if pos == nil || !geo.ValidCoordinate(pos.Latitude, pos.Longitude) {
		return []models.CandidateRequest{}, nil
	}

	pending, err := s.repos.request.ListPending(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to list pending requests: %w", err))
	}

	candidates := make([]models.CandidateRequest, 0)
	for _, req := range pending {
		// A pending request targeted at another courier is not offered.
		if req.AssignedCourierID != nil && *req.AssignedCourierID != courierID {
			continue
		}
		if req.VehicleType != nil && *req.VehicleType != courier.VehicleType {
			continue
		}
		if !geo.ValidCoordinate(req.Origin.Latitude, req.Origin.Longitude) {
			continue
		}

		d := geo.Haversine(pos.Latitude, pos.Longitude, req.Origin.Latitude, req.Origin.Longitude)
		if d > s.cfg.SearchRadiusM {
			continue
		}

		candidates = append(candidates, models.CandidateRequest{
			DeliveryRequest: req,
			PickupDistanceM: d,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].PickupDistanceM != candidates[j].PickupDistanceM {
			return candidates[i].PickupDistanceM < candidates[j].PickupDistanceM
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates, nil
}

// Claim assigns the request to the courier. At most one courier ever
// wins: the assignment is a single conditional write, so concurrent
// claims resolve to one winner and types.ErrAlreadyTaken for the rest.
func (s *Service) Claim(ctx context.Context, requestID, courierID uuid.UUID) (*models.DeliveryRequest, error) {
	ctx = wrap.WithAction(ctx, "claim_request")
	ctx = wrap.WithRequestRef(ctx, requestID.String())

	courier, err := s.repos.courier.Get(ctx, courierID)
	if err != nil {
		metrics.RecordClaim("error")
		return nil, wrap.Error(ctx, err)
	}

	req, err := s.repos.request.Get(ctx, requestID)
	if err != nil {
		metrics.RecordClaim("error")
		return nil, wrap.Error(ctx, err)
	}

	if err := s.checkEligibility(ctx, courier, req); err != nil {
		metrics.RecordClaim("not_eligible")
		return nil, wrap.Error(ctx, err)
	}

	claimed, err := s.repos.request.Claim(ctx, requestID, courierID)
	if err != nil {
		if errors.Is(err, types.ErrAlreadyTaken) {
			metrics.RecordClaim("already_taken")
		} else {
			metrics.RecordClaim("error")
		}
		return nil, wrap.Error(ctx, err)
	}

	metrics.RecordClaim("won")
	s.l.Info(ctx, "request claimed", "courier_id", courierID)

	s.broadcast(ctx, claimed)
	return claimed, nil
}

// checkEligibility enforces the claim preconditions that do not touch
// the request row: the courier must be online, drive a matching vehicle
// and stand within the search radius of the pickup point.
func (s *Service) checkEligibility(ctx context.Context, courier *models.Courier, req *models.DeliveryRequest) error {
	if !courier.IsOnline {
		return fmt.Errorf("%w: courier is offline", types.ErrNotEligible)
	}
	if req.VehicleType != nil && *req.VehicleType != courier.VehicleType {
		return fmt.Errorf("%w: vehicle type mismatch", types.ErrNotEligible)
	}

	pos, err := s.positions.Get(ctx, courier.ID)
	if err != nil {
		return err
	}
	if pos == nil || !geo.ValidCoordinate(pos.Latitude, pos.Longitude) {
		return fmt.Errorf("%w: courier position unknown", types.ErrNotEligible)
	}

	d := geo.Haversine(pos.Latitude, pos.Longitude, req.Origin.Latitude, req.Origin.Longitude)
	if d > s.cfg.SearchRadiusM {
		return fmt.Errorf("%w: pickup out of range", types.ErrNotEligible)
	}
	return nil
}

// AdvanceStatus moves the request along the courier-driven part of the
// lifecycle. Only the assigned courier may advance, only along legal
// edges, and a concurrent modification surfaces as types.ErrStaleUpdate.
func (s *Service) AdvanceStatus(ctx context.Context, requestID, courierID uuid.UUID, to types.RequestStatus) (*models.DeliveryRequest, error) {
	ctx = wrap.WithAction(ctx, "advance_status")
	ctx = wrap.WithRequestRef(ctx, requestID.String())

	req, err := s.repos.request.Get(ctx, requestID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if req.AssignedCourierID == nil || *req.AssignedCourierID != courierID {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: not the assigned courier", types.ErrInvalidTransition))
	}
	if !lifecycle.CourierEvent(to) || !lifecycle.CanTransition(req.Status, to) {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, req.Status, to))
	}

	updated, err := s.repos.request.UpdateStatus(ctx, requestID, req.Status, to, req.UpdatedAt, nil)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.l.Info(ctx, "request status advanced", "from", req.Status, "to", to)

	s.broadcast(ctx, updated)
	return updated, nil
}

// Cancel cancels the request on behalf of the requester. Only PENDING
// and ASSIGNED requests can be cancelled; once the courier is on the
// way the request is irrevocable.
func (s *Service) Cancel(ctx context.Context, requestID, requesterID uuid.UUID, reason string) (*models.DeliveryRequest, error) {
	ctx = wrap.WithAction(ctx, "cancel_request")
	ctx = wrap.WithRequestRef(ctx, requestID.String())

	req, err := s.repos.request.Get(ctx, requestID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if req.RequesterID != requesterID {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: not the requester", types.ErrInvalidTransition))
	}
	if !lifecycle.Cancellable(req.Status) {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: cannot cancel from %s", types.ErrInvalidTransition, req.Status))
	}

	updated, err := s.repos.request.UpdateStatus(ctx, requestID, req.Status, types.StatusCancelled, req.UpdatedAt, &reason)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.l.Info(ctx, "request cancelled", "reason", reason)

	s.broadcast(ctx, updated)
	return updated, nil
}

// UpdateCourierPosition records the courier's latest location. Last
// write wins; malformed coordinates are rejected before they can
// poison proximity queries.
func (s *Service) UpdateCourierPosition(ctx context.Context, courierID uuid.UUID, lat, lon float64, at time.Time) error {
	ctx = wrap.WithAction(ctx, "update_position")

	if !geo.ValidCoordinate(lat, lon) {
		return wrap.Error(ctx, types.ErrInvalidCoordinates)
	}
	if at.IsZero() {
		at = time.Now()
	}

	pos := models.Position{Latitude: lat, Longitude: lon, UpdatedAt: at}
	if err := s.positions.Set(ctx, courierID, pos, s.cfg.PositionTTL.Std()); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to store courier position: %w", err))
	}
	return nil
}

// SetCourierOnline flips the courier's availability flag.
func (s *Service) SetCourierOnline(ctx context.Context, courierID uuid.UUID, online bool) error {
	ctx = wrap.WithAction(ctx, "set_courier_online")

	changed, err := s.repos.courier.SetOnline(ctx, courierID, online)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if changed {
		if online {
			metrics.CouriersOnlineGauge.Inc()
		} else {
			metrics.CouriersOnlineGauge.Dec()
		}
		s.l.Info(ctx, "courier availability changed", "courier_id", courierID, "online", online)
	}
	return nil
}

// broadcast publishes the request's current state to the message bus
// and to connected WebSocket clients. Both paths are best-effort.
func (s *Service) broadcast(ctx context.Context, req *models.DeliveryRequest) {
	msg := statusMessage(ctx, req)

	if err := s.publisher.PublishRequestStatus(ctx, msg); err != nil {
		s.l.Error(ctx, "failed to publish request status", err, "request_id", req.ID)
	}
	if s.notifier != nil {
		s.notifier.NotifyRequestStatus(ctx, msg)
	}
}

func statusMessage(ctx context.Context, req *models.DeliveryRequest) models.RequestStatusMessage {
	lc, _ := ctx.Value(wrap.LogCtxKey).(wrap.LogCtx)

	return models.RequestStatusMessage{
		RequestID:     req.ID,
		Kind:          req.Kind,
		Status:        req.Status,
		DisplayStatus: lifecycle.DisplayStatus(req.Kind, req.Status),
		CourierID:     req.AssignedCourierID,
		RequesterID:   req.RequesterID,
		CancelReason:  req.CancelReason,
		PayableAmount: req.PayableAmount,
		Timestamp:     time.Now(),
		CorrelationID: lc.RequestID,
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/adapter/http/handler/dto"
	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	"github.com/marketfleet/dispatch/internal/service/dispatch"
	"github.com/marketfleet/dispatch/internal/service/lifecycle"
	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/validator"
)

type Request struct {
	service DispatchService
	l       logger.Logger
}

type DispatchService interface {
	CreateRequest(ctx context.Context, in dispatch.CreateRequestInput) (*models.DeliveryRequest, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*models.DeliveryRequest, error)
	Claim(ctx context.Context, requestID, courierID uuid.UUID) (*models.DeliveryRequest, error)
	AdvanceStatus(ctx context.Context, requestID, courierID uuid.UUID, to types.RequestStatus) (*models.DeliveryRequest, error)
	Cancel(ctx context.Context, requestID, requesterID uuid.UUID, reason string) (*models.DeliveryRequest, error)
}

func NewRequest(service DispatchService, l logger.Logger) *Request {
	return &Request{
		service: service,
		l:       l,
	}
}

// requestEnvelope shapes a delivery request for clients, translating
// the stored status into the kind-specific display vocabulary.
func requestEnvelope(req *models.DeliveryRequest) envelope {
	return envelope{
		"id":              req.ID,
		"kind":            req.Kind,
		"status":          req.Status,
		"display_status":  lifecycle.DisplayStatus(req.Kind, req.Status),
		"requester_id":    req.RequesterID,
		"store_id":        req.StoreID,
		"courier_id":      req.AssignedCourierID,
		"vehicle_type":    req.VehicleType,
		"origin":          req.Origin,
		"destination":     req.Destination,
		"distance_km":     req.DistanceKm,
		"subtotal":        req.Subtotal,
		"fare_amount":     req.FareAmount,
		"discount_amount": req.DiscountAmount,
		"payable_amount":  req.PayableAmount,
		"voucher_code":    req.VoucherCode,
		"cancel_reason":   req.CancelReason,
		"created_at":      req.CreatedAt,
		"updated_at":      req.UpdatedAt,
		"completed_at":    req.CompletedAt,
	}
}

func (h *Request) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_request")

	user := models.UserFromContext(ctx)

	var req dto.CreateRequestReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	created, err := h.service.CreateRequest(ctx, req.ToInput(user.ID))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create delivery request", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusCreated, requestEnvelope(created), nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "delivery request created", "request_id", created.ID)
}

func (h *Request) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_request")

	requestID, err := uuid.Parse(r.PathValue("request_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid request uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid request uuid format")
		return
	}

	req, err := h.service.GetRequest(ctx, requestID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get delivery request", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, requestEnvelope(req), nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Request) Claim(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "claim_request")

	user := models.UserFromContext(ctx)

	requestID, err := uuid.Parse(r.PathValue("request_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid request uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid request uuid format")
		return
	}

	claimed, err := h.service.Claim(ctx, requestID, user.ID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to claim delivery request", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, requestEnvelope(claimed), nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "request claimed", "request_id", requestID, "courier_id", user.ID)
}

func (h *Request) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "advance_request_status")

	user := models.UserFromContext(ctx)

	requestID, err := uuid.Parse(r.PathValue("request_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid request uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid request uuid format")
		return
	}

	var req dto.AdvanceStatusReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	updated, err := h.service.AdvanceStatus(ctx, requestID, user.ID, req.ToStatus())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to advance request status", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, requestEnvelope(updated), nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "request status advanced", "request_id", requestID, "status", updated.Status)
}

func (h *Request) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "cancel_request")

	user := models.UserFromContext(ctx)

	requestID, err := uuid.Parse(r.PathValue("request_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid request uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid request uuid format")
		return
	}

	var req dto.CancelRequestReq
	if err := readJSON(w, r, &req); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	cancelled, err := h.service.Cancel(ctx, requestID, user.ID, req.Reason)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to cancel delivery request", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, requestEnvelope(cancelled), nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "request cancelled", "request_id", requestID)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/marketfleet/dispatch/internal/adapter/http/handler/dto"
	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/service/lifecycle"
	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/validator"
	"github.com/marketfleet/dispatch/pkg/wshub"
)

type Courier struct {
	service  CourierService
	hub      *wshub.Hub
	upgrader websocket.Upgrader
	l        logger.Logger
}

type CourierService interface {
	ListCandidates(ctx context.Context, courierID uuid.UUID) ([]models.CandidateRequest, error)
	UpdateCourierPosition(ctx context.Context, courierID uuid.UUID, lat, lon float64, at time.Time) error
	SetCourierOnline(ctx context.Context, courierID uuid.UUID, online bool) error
}

func NewCourier(service CourierService, hub *wshub.Hub, l logger.Logger) *Courier {
	return &Courier{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

func (h *Courier) Candidates(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_candidates")

	courierID, err := uuid.Parse(r.PathValue("courier_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid courier uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid courier uuid format")
		return
	}

	candidates, err := h.service.ListCandidates(ctx, courierID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list candidate requests", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	items := make([]envelope, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		items = append(items, envelope{
			"id":                c.ID,
			"kind":              c.Kind,
			"display_status":    lifecycle.DisplayStatus(c.Kind, c.Status),
			"vehicle_type":      c.VehicleType,
			"origin":            c.Origin,
			"destination":       c.Destination,
			"distance_km":       c.DistanceKm,
			"payable_amount":    c.PayableAmount,
			"pickup_distance_m": c.PickupDistanceM,
			"created_at":        c.CreatedAt,
		})
	}

	response := envelope{
		"candidates": items,
		"count":      len(items),
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Courier) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_courier_location")

	courierID, err := uuid.Parse(r.PathValue("courier_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid courier uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid courier uuid format")
		return
	}

	var req dto.CourierLocationReq
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

	if err := h.service.UpdateCourierPosition(ctx, courierID, *req.Latitude, *req.Longitude, req.At()); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to update courier location", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"message":    "location updated",
		"courier_id": courierID,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Courier) GoOnline(w http.ResponseWriter, r *http.Request) {
	h.setOnline(w, r, true, "set_courier_online", "You are now online and ready to accept requests")
}

func (h *Courier) GoOffline(w http.ResponseWriter, r *http.Request) {
	h.setOnline(w, r, false, "set_courier_offline", "You are now offline")
}

func (h *Courier) setOnline(w http.ResponseWriter, r *http.Request, online bool, action, message string) {
	ctx := wrap.WithAction(r.Context(), action)

	courierID, err := uuid.Parse(r.PathValue("courier_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid courier uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid courier uuid format")
		return
	}

	if err := h.service.SetCourierOnline(ctx, courierID, online); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to change courier availability", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	response := envelope{
		"online":  online,
		"message": message,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "courier availability changed", "courier_id", courierID, "online", online)
}

// HandleWS upgrades the connection and registers it in the hub so the
// courier receives live status updates for their requests.
func (h *Courier) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "courier_websocket")

	courierID, err := uuid.Parse(r.PathValue("courier_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid courier uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid courier uuid format")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to upgrade connection", err)
		return
	}

	wsConn := wshub.NewConn(r.Context(), courierID, conn)
	if err := h.hub.Add(wsConn); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register connection", err)
		_ = conn.Close()
		return
	}

	h.l.Info(ctx, "courier websocket connected", "courier_id", courierID)

	// Block reading until the client disconnects; incoming messages are
	// ignored, the socket is push-only.
	_ = wsConn.Listen(func(msg map[string]any) error { return nil })

	_ = h.hub.Delete(courierID)
	h.l.Info(ctx, "courier websocket disconnected", "courier_id", courierID)
}

package handler

import (
	"context"
	"net/http"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/validator"
)

type GeoService interface {
	FindOnlineWithinRadius(ctx context.Context, lat, lon, radiusM float64, vehicle *types.VehicleType) ([]models.CourierWithDistance, error)
}

// Admin exposes operational queries that are not part of the dispatch
// flow itself.
type Admin struct {
	geo GeoService
	l   logger.Logger
}

func NewAdmin(geo GeoService, l logger.Logger) *Admin {
	return &Admin{
		geo: geo,
		l:   l,
	}
}

// NearbyCouriers lists online couriers around a point, nearest first.
func (h *Admin) NearbyCouriers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_nearby_couriers")

	v := validator.New()
	qs := r.URL.Query()

	lat := readFloat(qs, "latitude", 0, v)
	lon := readFloat(qs, "longitude", 0, v)
	radiusM := readFloat(qs, "radius_m", 5000, v)

	v.Check(qs.Get("latitude") != "", "latitude", "must be provided")
	v.Check(qs.Get("longitude") != "", "longitude", "must be provided")
	v.Check(radiusM > 0, "radius_m", "must be positive")

	var vehicle *types.VehicleType
	if s := readString(qs, "vehicle_type", ""); s != "" {
		vt := types.VehicleType(s)
		v.Check(validator.PermittedValue(vt, types.VehicleMotorbike, types.VehicleCar, types.VehicleVan),
			"vehicle_type", "must be MOTORBIKE, CAR or VAN")
		vehicle = &vt
	}

	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	couriers, err := h.geo.FindOnlineWithinRadius(ctx, lat, lon, radiusM, vehicle)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to query nearby couriers", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	items := make([]envelope, 0, len(couriers))
	for _, c := range couriers {
		items = append(items, envelope{
			"id":           c.ID,
			"name":         c.Name,
			"vehicle_type": c.VehicleType,
			"position":     c.Position,
			"distance_m":   c.DistanceM,
		})
	}

	response := envelope{
		"couriers": items,
		"count":    len(items),
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

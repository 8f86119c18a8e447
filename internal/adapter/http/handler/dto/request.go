package dto

import (
	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	"github.com/marketfleet/dispatch/internal/service/dispatch"
	"github.com/marketfleet/dispatch/pkg/validator"
)

type LocationReq struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

func (l *LocationReq) Validate(v *validator.Validator, field string) {
	if l.Latitude == nil || l.Longitude == nil {
		v.AddError(field, "latitude and longitude are required")
		return
	}
	v.Check(*l.Latitude >= -90 && *l.Latitude <= 90, field, "latitude must be between -90 and 90")
	v.Check(*l.Longitude >= -180 && *l.Longitude <= 180, field, "longitude must be between -180 and 180")
}

func (l *LocationReq) ToModel() models.Location {
	return models.Location{
		Latitude:  *l.Latitude,
		Longitude: *l.Longitude,
		Address:   l.Address,
	}
}

type CreateRequestReq struct {
	Kind        string      `json:"kind"`
	StoreID     *uuid.UUID  `json:"store_id"`
	VehicleType *string     `json:"vehicle_type"`
	Origin      LocationReq `json:"origin"`
	Destination LocationReq `json:"destination"`
	Subtotal    float64     `json:"subtotal"`
	VoucherCode *string     `json:"voucher_code"`
}

func (r *CreateRequestReq) Validate(v *validator.Validator) {
	v.Check(types.RequestKind(r.Kind).Valid(), "kind", "must be FOOD_ORDER or RIDE")
	r.Origin.Validate(v, "origin")
	r.Destination.Validate(v, "destination")
	v.Check(r.Subtotal >= 0, "subtotal", "must not be negative")

	if types.RequestKind(r.Kind) == types.KindFoodOrder {
		v.Check(r.StoreID != nil, "store_id", "required for food orders")
	}
	if r.VehicleType != nil {
		v.Check(validator.PermittedValue(types.VehicleType(*r.VehicleType),
			types.VehicleMotorbike, types.VehicleCar, types.VehicleVan),
			"vehicle_type", "must be MOTORBIKE, CAR or VAN")
	}
	if r.VoucherCode != nil {
		v.Check(*r.VoucherCode != "", "voucher_code", "must not be empty")
	}
}

func (r *CreateRequestReq) ToInput(requesterID uuid.UUID) dispatch.CreateRequestInput {
	in := dispatch.CreateRequestInput{
		Kind:        types.RequestKind(r.Kind),
		RequesterID: requesterID,
		StoreID:     r.StoreID,
		Origin:      r.Origin.ToModel(),
		Destination: r.Destination.ToModel(),
		Subtotal:    r.Subtotal,
		VoucherCode: r.VoucherCode,
	}
	if r.VehicleType != nil {
		vt := types.VehicleType(*r.VehicleType)
		in.VehicleType = &vt
	}
	return in
}

type AdvanceStatusReq struct {
	Status string `json:"status"`
}

func (r *AdvanceStatusReq) Validate(v *validator.Validator) {
	v.Check(validator.PermittedValue(types.RequestStatus(r.Status),
		types.StatusArriving, types.StatusInProgress, types.StatusCompleted),
		"status", "must be ARRIVING, IN_PROGRESS or COMPLETED")
}

func (r *AdvanceStatusReq) ToStatus() types.RequestStatus {
	return types.RequestStatus(r.Status)
}

type CancelRequestReq struct {
	Reason string `json:"reason"`
}

func (r *CancelRequestReq) Validate(v *validator.Validator) {
	v.Check(r.Reason != "", "reason", "must be provided")
}

package dto

import (
	"time"

	"github.com/marketfleet/dispatch/pkg/validator"
)

type CourierLocationReq struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Timestamp *time.Time `json:"timestamp"`
}

func (r *CourierLocationReq) Validate(v *validator.Validator) {
	if r.Latitude == nil || r.Longitude == nil {
		v.AddError("location", "latitude and longitude are required")
		return
	}
	v.Check(*r.Latitude >= -90 && *r.Latitude <= 90, "latitude", "must be between -90 and 90")
	v.Check(*r.Longitude >= -180 && *r.Longitude <= 180, "longitude", "must be between -180 and 180")
}

func (r *CourierLocationReq) At() time.Time {
	if r.Timestamp != nil {
		return *r.Timestamp
	}
	return time.Now()
}

package dto

import (
	"time"

	"github.com/marketfleet/dispatch/internal/domain/types"
	"github.com/marketfleet/dispatch/pkg/validator"
)

type RunSettlementReq struct {
	SubjectType string    `json:"subject_type"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

func (r *RunSettlementReq) Validate(v *validator.Validator) {
	v.Check(types.SubjectType(r.SubjectType).Valid(), "subject_type", "must be STORE or COURIER")
	v.Check(!r.PeriodStart.IsZero(), "period_start", "must be provided")
	v.Check(!r.PeriodEnd.IsZero(), "period_end", "must be provided")
	if !r.PeriodStart.IsZero() && !r.PeriodEnd.IsZero() {
		v.Check(r.PeriodEnd.After(r.PeriodStart), "period_end", "must be after period_start")
	}
}

type AdvanceSettlementReq struct {
	Status string `json:"status"`
}

func (r *AdvanceSettlementReq) Validate(v *validator.Validator) {
	v.Check(validator.PermittedValue(types.SettlementStatus(r.Status),
		types.SettlementProcessing, types.SettlementCompleted),
		"status", "must be PROCESSING or COMPLETED")
}

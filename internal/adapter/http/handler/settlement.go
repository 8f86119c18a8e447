package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/adapter/http/handler/dto"
	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	"github.com/marketfleet/dispatch/internal/service/settlement"
	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/validator"
)

type Settlement struct {
	service SettlementService
	l       logger.Logger
}

type SettlementService interface {
	RunPeriod(ctx context.Context, subjectType types.SubjectType, periodStart, periodEnd time.Time) (*settlement.BatchResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.SettlementRecord, error)
	AdvanceStatus(ctx context.Context, id uuid.UUID, to types.SettlementStatus) (*models.SettlementRecord, error)
}

func NewSettlement(service SettlementService, l logger.Logger) *Settlement {
	return &Settlement{
		service: service,
		l:       l,
	}
}

func settlementEnvelope(rec *models.SettlementRecord) envelope {
	return envelope{
		"id":             rec.ID,
		"subject_type":   rec.SubjectType,
		"subject_id":     rec.SubjectID,
		"period_start":   rec.PeriodStart,
		"period_end":     rec.PeriodEnd,
		"total_requests": rec.TotalRequests,
		"gross_amount":   rec.GrossAmount,
		"platform_fee":   rec.PlatformFee,
		"payout_amount":  rec.PayoutAmount,
		"status":         rec.Status,
		"created_at":     rec.CreatedAt,
	}
}

func (h *Settlement) Run(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "run_settlement")

	var req dto.RunSettlementReq
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

	result, err := h.service.RunPeriod(ctx, types.SubjectType(req.SubjectType), req.PeriodStart, req.PeriodEnd)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to run settlement", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	failures := make([]envelope, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, envelope{
			"subject_id": f.SubjectID,
			"error":      f.Err.Error(),
		})
	}

	response := envelope{
		"subject_type": result.SubjectType,
		"period_start": result.PeriodStart,
		"period_end":   result.PeriodEnd,
		"created":      result.Created,
		"skipped":      result.Skipped,
		"failures":     failures,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Settlement) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_settlement")

	settlementID, err := uuid.Parse(r.PathValue("settlement_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid settlement uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid settlement uuid format")
		return
	}

	rec, err := h.service.Get(ctx, settlementID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get settlement record", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, settlementEnvelope(rec), nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func (h *Settlement) Advance(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "advance_settlement")

	settlementID, err := uuid.Parse(r.PathValue("settlement_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid settlement uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid settlement uuid format")
		return
	}

	var req dto.AdvanceSettlementReq
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

	updated, err := h.service.AdvanceStatus(ctx, settlementID, types.SettlementStatus(req.Status))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to advance settlement record", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, settlementEnvelope(updated), nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "settlement record advanced", "settlement_id", settlementID, "status", updated.Status)
}

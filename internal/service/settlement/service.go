package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/marketfleet/dispatch/config"
	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	"github.com/marketfleet/dispatch/pkg/logger"
	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/metrics"
)

/*=================Settlement Repository==================*/

type Repo interface {
	// AggregateCompleted sums COMPLETED requests per subject inside the
	// period. Food orders aggregate by store, rides and deliveries by
	// courier.
	AggregateCompleted(ctx context.Context, subjectType types.SubjectType, periodStart, periodEnd time.Time) ([]models.SubjectTotal, error)

	// InsertRecord is idempotent on (subject_type, subject_id,
	// period_start, period_end); a duplicate reports inserted=false.
	InsertRecord(ctx context.Context, rec *models.SettlementRecord) (inserted bool, err error)

	Get(ctx context.Context, id uuid.UUID) (*models.SettlementRecord, error)

	// AdvanceStatus moves the record from one status to the next and
	// reports types.ErrStaleUpdate when the record is not in the
	// expected status anymore.
	AdvanceStatus(ctx context.Context, id uuid.UUID, from, to types.SettlementStatus) (*models.SettlementRecord, error)
}

// Service aggregates completed requests into per-subject settlement
// records. Runs are idempotent: re-running a period never duplicates
// records and never double-pays.
type Service struct {
	repo Repo
	cfg  config.SettlementConfig
	l    logger.Logger
}

func New(repo Repo, cfg config.SettlementConfig, l logger.Logger) *Service {
	return &Service{
		repo: repo,
		cfg:  cfg,
		l:    l,
	}
}

// BatchResult summarizes one settlement run. Skipped counts subjects
// whose record for the period already existed.
type BatchResult struct {
	SubjectType types.SubjectType
	PeriodStart time.Time
	PeriodEnd   time.Time

	Created  int
	Skipped  int
	Failures []models.SubjectFailure
}

// RunPeriod produces settlement records for every subject with
// completed requests in the period. Subjects settle independently: one
// failing subject lands in Failures, the rest still settle.
func (s *Service) RunPeriod(ctx context.Context, subjectType types.SubjectType, periodStart, periodEnd time.Time) (*BatchResult, error) {
	ctx = wrap.WithAction(ctx, "settlement_run")

	if !subjectType.Valid() {
		return nil, wrap.Error(ctx, fmt.Errorf("unknown subject type %q", subjectType))
	}
	if !periodEnd.After(periodStart) {
		return nil, wrap.Error(ctx, fmt.Errorf("period end %s must be after start %s", periodEnd, periodStart))
	}

	totals, err := s.repo.AggregateCompleted(ctx, subjectType, periodStart, periodEnd)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to aggregate completed requests: %w", err))
	}

	result := &BatchResult{
		SubjectType: subjectType,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)

	for _, total := range totals {
		g.Go(func() error {
			inserted, err := s.settleSubject(gctx, subjectType, total, periodStart, periodEnd)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failures = append(result.Failures, models.SubjectFailure{
					SubjectID: total.SubjectID,
					Err:       err,
				})
				metrics.SettlementRecordsTotal.WithLabelValues(string(subjectType), "error").Inc()
			case inserted:
				result.Created++
				metrics.SettlementRecordsTotal.WithLabelValues(string(subjectType), "created").Inc()
			default:
				result.Skipped++
				metrics.SettlementRecordsTotal.WithLabelValues(string(subjectType), "skipped").Inc()
			}
			// Per-subject failures are collected, not propagated, so the
			// group keeps settling the remaining subjects.
			return nil
		})
	}

	// Workers never return errors; Wait only orders completion.
	_ = g.Wait()

	s.l.Info(ctx, "settlement run finished",
		"subject_type", subjectType,
		"created", result.Created,
		"skipped", result.Skipped,
		"failed", len(result.Failures),
	)
	return result, nil
}

func (s *Service) settleSubject(ctx context.Context, subjectType types.SubjectType, total models.SubjectTotal, periodStart, periodEnd time.Time) (bool, error) {
	fee := total.GrossAmount * s.cfg.CommissionRate

	rec := &models.SettlementRecord{
		ID:            uuid.New(),
		SubjectType:   subjectType,
		SubjectID:     total.SubjectID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		TotalRequests: total.TotalRequests,
		GrossAmount:   total.GrossAmount,
		PlatformFee:   fee,
		PayoutAmount:  total.GrossAmount - fee,
		Status:        types.SettlementPending,
	}

	inserted, err := s.repo.InsertRecord(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("failed to insert settlement record: %w", err)
	}
	return inserted, nil
}

// Get loads one settlement record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.SettlementRecord, error) {
	ctx = wrap.WithAction(ctx, "get_settlement")

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return rec, nil
}

// AdvanceStatus moves a settlement record strictly forward:
// PENDING -> PROCESSING -> COMPLETED. Any other move is rejected.
func (s *Service) AdvanceStatus(ctx context.Context, id uuid.UUID, to types.SettlementStatus) (*models.SettlementRecord, error) {
	ctx = wrap.WithAction(ctx, "advance_settlement")

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if nextStatus(rec.Status) != to || to == "" {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, rec.Status, to))
	}

	updated, err := s.repo.AdvanceStatus(ctx, id, rec.Status, to)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.l.Info(ctx, "settlement record advanced", "settlement_id", id, "from", rec.Status, "to", to)
	return updated, nil
}

func nextStatus(s types.SettlementStatus) types.SettlementStatus {
	switch s {
	case types.SettlementPending:
		return types.SettlementProcessing
	case types.SettlementProcessing:
		return types.SettlementCompleted
	default:
		return ""
	}
}

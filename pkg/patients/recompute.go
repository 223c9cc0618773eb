package patients

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/strokecare/platform/pkg/common/logger"
	"github.com/strokecare/platform/pkg/common/models"
	"github.com/strokecare/platform/pkg/features"
	"github.com/strokecare/platform/pkg/observability/metrics"
	"github.com/strokecare/platform/pkg/risk"
)

// Store is the subset of Repository the recompute job needs.
type Store interface {
	ListActive(ctx context.Context, afterID string, limit int) ([]PatientModel, error)
	UpdateRisk(ctx context.Context, assessment models.RiskAssessment) error
	ClearRisk(ctx context.Context, id string) error
}

// Recomputer rescores every active patient with the current model and
// policy.
type Recomputer struct {
	store     Store
	scorer    *risk.Scorer
	batchSize int
	workerSem chan struct{}
	now       func() time.Time
}

func NewRecomputer(store Store, scorer *risk.Scorer, batchSize, maxWorkers int) *Recomputer {
	if batchSize <= 0 {
		batchSize = 200
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Recomputer{
		store:     store,
		scorer:    scorer,
		batchSize: batchSize,
		workerSem: make(chan struct{}, maxWorkers),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run pages through active patients and updates their risk columns.
// Patients whose documents carry no measurements are skipped and any earlier
// assessment on them is cleared. A patient that
// fails to score or save is counted and the run continues; a model that
// cannot be loaded aborts before any patient is touched.
func (r *Recomputer) Run(ctx context.Context) (models.RecomputeSummary, error) {
	start := time.Now()
	var summary models.RecomputeSummary

	if err := r.scorer.Ready(); err != nil {
		return summary, fmt.Errorf("recompute aborted: %w", err)
	}

	var mu sync.Mutex
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
		page, err := r.store.ListActive(ctx, afterID, r.batchSize)
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, fmt.Errorf("list patients: %w", err)
		}
		if len(page) == 0 {
			break
		}

		var wg sync.WaitGroup
		for i := range page {
			patient := page[i]
			summary.Scanned++
			r.workerSem <- struct{}{}
			wg.Add(1)
			go func() {
				defer func() {
					<-r.workerSem
					wg.Done()
				}()
				outcome := r.recomputeOne(ctx, &patient)
				mu.Lock()
				switch outcome {
				case outcomeUpdated:
					summary.Updated++
				case outcomeSkipped:
					summary.Skipped++
				default:
					summary.Failed++
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		afterID = page[len(page)-1].ID
		if len(page) < r.batchSize {
			break
		}
	}

	summary.Duration = time.Since(start)
	metrics.ObserveRecompute(summary.Updated, summary.Failed)
	return summary, nil
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (r *Recomputer) recomputeOne(ctx context.Context, patient *PatientModel) outcome {
	record := features.Record(patient.Document)
	if features.Sparse(record) {
		if patient.RiskCalculatedAt == nil {
			return outcomeSkipped
		}
		if err := r.store.ClearRisk(ctx, patient.ID); err != nil {
			logger.Log.WithError(err).WithField("patient_id", patient.ID).Error("failed to clear stale risk assessment")
			return outcomeFailed
		}
		return outcomeSkipped
	}

	assessment, err := r.scorer.Score(record, "")
	if err != nil {
		entry := logger.Log.WithError(err).WithField("patient_id", patient.ID)
		if errors.Is(err, risk.ErrModelUnavailable) {
			entry.Warn("model could not score patient")
		} else {
			entry.Error("failed to score patient")
		}
		return outcomeFailed
	}

	update := models.RiskAssessment{
		PatientID:    patient.ID,
		Score:        assessment.Result.Probability,
		Level:        string(assessment.Result.RiskLevel),
		Flag:         assessment.Result.StrokeFlag,
		ModelVersion: assessment.ModelVersion,
		CalculatedAt: r.now(),
	}
	if err := r.store.UpdateRisk(ctx, update); err != nil {
		logger.Log.WithError(err).WithField("patient_id", patient.ID).Error("failed to save risk assessment")
		return outcomeFailed
	}
	return outcomeUpdated
}

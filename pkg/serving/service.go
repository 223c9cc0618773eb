package serving

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/strokecare/platform/pkg/common/logger"
	"github.com/strokecare/platform/pkg/common/models"
	"github.com/strokecare/platform/pkg/features"
	"github.com/strokecare/platform/pkg/observability/metrics"
	"github.com/strokecare/platform/pkg/risk"
)

const source = "serving-service"

var (
	errMissingRecord = errors.New("record required")
	// ErrVectorNotCached means no normalized vector is cached for a patient.
	ErrVectorNotCached = errors.New("feature vector not cached")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type PredictionStore interface {
	RecordPrediction(ctx context.Context, log *PredictionLog) error
	Recent(ctx context.Context, limit int) ([]PredictionLog, error)
	Stats(ctx context.Context) (models.PredictionStats, error)
}

type VectorCache interface {
	MaterializeVector(ctx context.Context, patientID string, v features.Vector) error
	GetVector(ctx context.Context, patientID string) (features.Vector, bool, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service scores patient records and records the outcome. Persistence is
// required; caching and event publication are best effort.
type Service struct {
	scorer    *risk.Scorer
	store     PredictionStore
	cache     VectorCache
	publisher EventPublisher
}

func NewService(scorer *risk.Scorer, store PredictionStore, cache VectorCache, publisher EventPublisher) *Service {
	return &Service{
		scorer:    scorer,
		store:     store,
		cache:     cache,
		publisher: publisher,
	}
}

func (s *Service) Policy() risk.Policy {
	return s.scorer.Policy()
}

// Normalize exposes the feature normalizer without scoring.
func (s *Service) Normalize(record map[string]interface{}) features.Vector {
	return features.Normalize(record)
}

func (s *Service) Predict(ctx context.Context, req models.PredictionRequest) (models.PredictionResponse, error) {
	start := time.Now()
	if req.Record == nil {
		return models.PredictionResponse{}, ValidationError{reason: errMissingRecord}
	}

	assessment, err := s.scorer.Score(req.Record, req.ModelName)
	if err != nil {
		if errors.Is(err, risk.ErrModelUnavailable) {
			metrics.ObserveModelUnavailable()
		}
		return models.PredictionResponse{}, err
	}
	result := assessment.Result

	if s.cache != nil && req.PatientID != "" {
		if err := s.cache.MaterializeVector(ctx, req.PatientID, assessment.Vector); err != nil {
			logger.Log.WithError(err).WithField("patient_id", req.PatientID).Warn("failed to cache feature vector")
		}
	}

	latency := time.Since(start)
	log := &PredictionLog{
		ID:           uuid.New(),
		PatientID:    req.PatientID,
		ModelName:    assessment.ModelName,
		ModelVersion: assessment.ModelVersion,
		Probability:  result.Probability,
		StrokeFlag:   result.StrokeFlag,
		RiskLevel:    string(result.RiskLevel),
		RawFeatures:  assessment.Vector.Map(),
		Degraded:     strings.Join(result.Degraded, ","),
		LatencyMs:    float64(latency.Microseconds()) / 1000.0,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.RecordPrediction(ctx, log); err != nil {
		return models.PredictionResponse{}, fmt.Errorf("record prediction: %w", err)
	}

	resp := log.ToResponse()
	resp.Latency = latency

	s.publish(ctx, resp)
	metrics.ObservePrediction(resp.RiskLevel, resp.StrokeFlag, len(result.Degraded), latency.Microseconds())

	logger.Log.WithFields(map[string]interface{}{
		"prediction_id": resp.ID,
		"patient_id":    req.PatientID,
		"model_version": resp.ModelVersion,
		"risk_level":    resp.RiskLevel,
		"latency_ms":    latency.Milliseconds(),
	}).Info("Prediction completed")

	return resp, nil
}

func (s *Service) publish(ctx context.Context, resp models.PredictionResponse) {
	if s.publisher == nil {
		return
	}
	payload := map[string]interface{}{
		"prediction_id": resp.ID,
		"patient_id":    resp.PatientID,
		"model_name":    resp.ModelName,
		"model_version": resp.ModelVersion,
		"probability":   resp.Probability,
		"stroke_flag":   resp.StrokeFlag,
		"risk_level":    resp.RiskLevel,
	}
	if err := s.publisher.PublishEvent(ctx, models.EventRiskAssessed, source, payload); err != nil {
		logger.Log.WithError(err).WithField("prediction_id", resp.ID).Warn("failed to publish risk event")
	}
}

// CachedVector returns the last normalized vector scored for patientID.
func (s *Service) CachedVector(ctx context.Context, patientID string) (features.Vector, error) {
	if s.cache == nil {
		return features.Vector{}, ErrVectorNotCached
	}
	v, ok, err := s.cache.GetVector(ctx, patientID)
	if err != nil {
		return features.Vector{}, err
	}
	if !ok {
		return features.Vector{}, ErrVectorNotCached
	}
	return v, nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]models.PredictionResponse, error) {
	logs, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.PredictionResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.ToResponse())
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (models.PredictionStats, error) {
	return s.store.Stats(ctx)
}

// HandlePatientEvent scores a patient document arriving on the event bus.
// Other event types and malformed events are dropped; an unavailable model
// is returned so the message is retried.
func (s *Service) HandlePatientEvent(ctx context.Context, event models.Event) error {
	if event.Type != "" && event.Type != models.EventPatientUpserted {
		return nil
	}
	record, patientID, err := extractPatient(event.Data)
	if err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Warn("skipping patient event")
		return nil
	}
	_, err = s.Predict(ctx, models.PredictionRequest{PatientID: patientID, Record: record})
	if err != nil && IsValidationError(err) {
		logger.Log.WithError(err).WithField("event_id", event.ID).Warn("skipping patient event")
		return nil
	}
	return err
}

func extractPatient(data map[string]interface{}) (map[string]interface{}, string, error) {
	if data == nil {
		return nil, "", errors.New("event data missing")
	}

	var record map[string]interface{}
	switch raw := data["patient"].(type) {
	case map[string]interface{}:
		record = raw
	case string:
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, "", fmt.Errorf("decode patient document: %w", err)
		}
	default:
		return nil, "", errors.New("patient document not present")
	}

	patientID, _ := data["patient_id"].(string)
	if patientID == "" {
		patientID = idString(record["patient_id"])
	}
	if patientID == "" {
		patientID = idString(record["original_id"])
	}
	return record, patientID, nil
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return fmt.Sprintf("%.0f", id)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

package serving

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/strokecare/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persisted outcome of one classification.
type PredictionLog struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	PatientID    string            `gorm:"column:patient_id;index"`
	ModelName    string            `gorm:"column:model_name"`
	ModelVersion string            `gorm:"column:model_version"`
	Probability  float64           `gorm:"column:probability"`
	StrokeFlag   int               `gorm:"column:stroke_flag"`
	RiskLevel    string            `gorm:"column:risk_level;size:20;index"`
	RawFeatures  datatypes.JSONMap `gorm:"column:raw_features"`
	Degraded     string            `gorm:"column:degraded_features"`
	LatencyMs    float64           `gorm:"column:latency_ms"`
	CreatedAt    time.Time         `gorm:"column:created_at;index"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "stroke_predictions"
}

func (p PredictionLog) ToResponse() models.PredictionResponse {
	resp := models.PredictionResponse{
		ID:           p.ID.String(),
		PatientID:    p.PatientID,
		ModelName:    p.ModelName,
		ModelVersion: p.ModelVersion,
		Probability:  p.Probability,
		StrokeFlag:   p.StrokeFlag,
		RiskLevel:    p.RiskLevel,
		Features:     map[string]interface{}(p.RawFeatures),
		Latency:      time.Duration(p.LatencyMs * float64(time.Millisecond)),
		CreatedAt:    p.CreatedAt,
	}
	if p.Degraded != "" {
		resp.DegradedFeatures = strings.Split(p.Degraded, ",")
	}
	return resp
}

// Repository handles prediction log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, log *PredictionLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Stats aggregates dashboard counts over all stored predictions.
func (r *Repository) Stats(ctx context.Context) (models.PredictionStats, error) {
	var rows []struct {
		RiskLevel string
		Count     int64
	}
	err := r.db.WithContext(ctx).
		Model(&PredictionLog{}).
		Select("risk_level, count(*) AS count").
		Group("risk_level").
		Scan(&rows).Error
	if err != nil {
		return models.PredictionStats{}, err
	}

	stats := models.PredictionStats{ByLevel: make(map[string]int64, len(rows))}
	for _, row := range rows {
		stats.ByLevel[row.RiskLevel] = row.Count
		stats.Total += row.Count
	}
	err = r.db.WithContext(ctx).
		Model(&PredictionLog{}).
		Where("stroke_flag = ?", 1).
		Count(&stats.Flagged).Error
	return stats, err
}

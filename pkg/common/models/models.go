package models

import (
	"time"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // patient.upserted, risk.assessed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const (
	EventPatientUpserted = "patient.upserted"
	EventRiskAssessed    = "risk.assessed"
)

// Risk prediction
type PredictionRequest struct {
	PatientID string                 `json:"patient_id,omitempty"`
	ModelName string                 `json:"model_name,omitempty"`
	Record    map[string]interface{} `json:"record"`
}

type PredictionResponse struct {
	ID               string                 `json:"id"`
	PatientID        string                 `json:"patient_id,omitempty"`
	ModelName        string                 `json:"model_name"`
	ModelVersion     string                 `json:"model_version,omitempty"`
	Probability      float64                `json:"probability"`
	StrokeFlag       int                    `json:"stroke_flag"`
	RiskLevel        string                 `json:"risk_level"`
	DegradedFeatures []string               `json:"degraded_features,omitempty"`
	Features         map[string]interface{} `json:"features"`
	Latency          time.Duration          `json:"latency"`
	CreatedAt        time.Time              `json:"created_at"`
}

type PredictionStats struct {
	Total   int64            `json:"total"`
	Flagged int64            `json:"flagged"`
	ByLevel map[string]int64 `json:"by_level"`
}

// Patient risk snapshot written back by batch recomputation.
type RiskAssessment struct {
	PatientID    string    `json:"patient_id"`
	Score        float64   `json:"score"`
	Level        string    `json:"level"`
	Flag         int       `json:"flag"`
	ModelVersion string    `json:"model_version,omitempty"`
	CalculatedAt time.Time `json:"calculated_at"`
}

type RecomputeSummary struct {
	Scanned  int           `json:"scanned"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

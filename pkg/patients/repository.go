package patients

import (
	"context"
	"errors"
	"time"

	"github.com/strokecare/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrPatientNotFound = errors.New("patient not found")

// PatientModel is a stored patient document plus its latest risk columns.
type PatientModel struct {
	ID               string            `gorm:"primaryKey;column:id"`
	OriginalID       string            `gorm:"column:original_id;index"`
	Document         datatypes.JSONMap `gorm:"column:document"`
	IsActive         bool              `gorm:"column:is_active;index;default:true"`
	RiskScore        *float64          `gorm:"column:risk_score"`
	RiskLevel        string            `gorm:"column:risk_level;size:20;index"`
	RiskFlag         *int              `gorm:"column:risk_flag"`
	RiskModelVersion string            `gorm:"column:risk_model_version"`
	RiskCalculatedAt *time.Time        `gorm:"column:risk_calculated_at"`
	CreatedAt        time.Time         `gorm:"column:created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at"`
}

func (PatientModel) TableName() string {
	return "patients"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PatientModel{})
}

// ListActive returns up to limit active patients with id greater than
// afterID, ordered by id. Pass the last id of a page to get the next one.
func (r *Repository) ListActive(ctx context.Context, afterID string, limit int) ([]PatientModel, error) {
	if limit <= 0 {
		limit = 200
	}
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	var patients []PatientModel
	result := query.Order("id asc").Limit(limit).Find(&patients)
	return patients, result.Error
}

// UpdateRisk writes an assessment onto the patient's risk columns.
func (r *Repository) UpdateRisk(ctx context.Context, assessment models.RiskAssessment) error {
	updates := map[string]interface{}{
		"risk_score":         assessment.Score,
		"risk_level":         assessment.Level,
		"risk_flag":          assessment.Flag,
		"risk_model_version": assessment.ModelVersion,
		"risk_calculated_at": assessment.CalculatedAt,
		"updated_at":         time.Now().UTC(),
	}
	return r.update(ctx, assessment.PatientID, updates)
}

// ClearRisk nulls the risk columns so no stale assessment outlives the data
// it was computed from.
func (r *Repository) ClearRisk(ctx context.Context, id string) error {
	updates := map[string]interface{}{
		"risk_score":         nil,
		"risk_level":         "",
		"risk_flag":          nil,
		"risk_model_version": "",
		"risk_calculated_at": nil,
		"updated_at":         time.Now().UTC(),
	}
	return r.update(ctx, id, updates)
}

func (r *Repository) update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&PatientModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPatientNotFound
	}
	return nil
}

package features

import "strings"

// Record is a patient document as produced by the persistence and import
// layers. It may be flat or grouped under "demographics" and
// "medical_history".
type Record map[string]interface{}

const (
	Gender          = "gender"
	Age             = "age"
	Hypertension    = "hypertension"
	HeartDisease    = "heart_disease"
	EverMarried     = "ever_married"
	WorkType        = "work_type"
	ResidenceType   = "Residence_type"
	AvgGlucoseLevel = "avg_glucose_level"
	BMI             = "bmi"
	SmokingStatus   = "smoking_status"
)

// Names is the canonical feature order.
var Names = []string{
	Gender,
	Age,
	Hypertension,
	HeartDisease,
	EverMarried,
	WorkType,
	ResidenceType,
	AvgGlucoseLevel,
	BMI,
	SmokingStatus,
}

// Categorical lists the string-valued features that need encoding before
// they reach a model.
var Categorical = []string{Gender, EverMarried, WorkType, ResidenceType, SmokingStatus}

// Vector is a fully populated feature vector. No field is ever unset.
type Vector struct {
	Gender          string  `json:"gender"`
	Age             float64 `json:"age"`
	Hypertension    int     `json:"hypertension"`
	HeartDisease    int     `json:"heart_disease"`
	EverMarried     string  `json:"ever_married"`
	WorkType        string  `json:"work_type"`
	ResidenceType   string  `json:"Residence_type"`
	AvgGlucoseLevel float64 `json:"avg_glucose_level"`
	BMI             float64 `json:"bmi"`
	SmokingStatus   string  `json:"smoking_status"`
}

// IsCategorical reports whether name is a string-valued feature.
func IsCategorical(name string) bool {
	for _, c := range Categorical {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Value returns the feature stored under name. Numeric features come back
// as float64 or int, categorical ones as string.
func (v Vector) Value(name string) (interface{}, bool) {
	switch strings.ToLower(name) {
	case Gender:
		return v.Gender, true
	case Age:
		return v.Age, true
	case Hypertension:
		return v.Hypertension, true
	case HeartDisease:
		return v.HeartDisease, true
	case EverMarried:
		return v.EverMarried, true
	case WorkType:
		return v.WorkType, true
	case "residence_type":
		return v.ResidenceType, true
	case AvgGlucoseLevel:
		return v.AvgGlucoseLevel, true
	case BMI:
		return v.BMI, true
	case SmokingStatus:
		return v.SmokingStatus, true
	}
	return nil, false
}

// Map renders the vector keyed by canonical feature name.
func (v Vector) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(Names))
	for _, name := range Names {
		value, _ := v.Value(name)
		out[name] = value
	}
	return out
}

package features

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultGender        = "Other"
	DefaultEverMarried   = "No"
	DefaultWorkType      = "Private"
	DefaultResidenceType = "Urban"
	DefaultSmokingStatus = "never smoked"
)

const (
	demographicsKey = "demographics"
	medicalKey      = "medical_history"
)

// fieldSource lists where a feature may live in a record, most specific
// first. Each entry is a key path.
type fieldSource [][]string

func nested(group, key string) []string { return []string{group, key} }
func flat(key string) []string          { return []string{key} }

var sources = map[string]fieldSource{
	Gender:          {nested(demographicsKey, "gender"), flat("gender")},
	Age:             {nested(demographicsKey, "age"), flat("age")},
	Hypertension:    {nested(medicalKey, "hypertension"), flat("hypertension")},
	HeartDisease:    {nested(medicalKey, "heart_disease"), flat("heart_disease")},
	EverMarried:     {nested(demographicsKey, "ever_married"), flat("ever_married")},
	WorkType:        {nested(demographicsKey, "work_type"), flat("work_type")},
	ResidenceType: {
		nested(demographicsKey, "residence_type"),
		flat("Residence_type"),
		nested(demographicsKey, "Residence_type"),
		flat("residence_type"),
	},
	AvgGlucoseLevel: {nested(medicalKey, "avg_glucose_level"), flat("avg_glucose_level")},
	BMI:             {nested(medicalKey, "bmi"), flat("bmi")},
	SmokingStatus: {
		nested(medicalKey, "smoking_status"),
		flat("smoking_status"),
		nested(demographicsKey, "smoking_status"),
	},
}

// bmiSentinels are the spellings import tooling uses for "not measured".
// They normalize to 0.0; imputation happens offline, not here.
var bmiSentinels = map[string]struct{}{
	"":    {},
	"n/a": {},
	"na":  {},
	"nan": {},
}

// Normalize builds a complete feature vector from a patient record. It
// accepts both the flat and the grouped record shapes and never fails:
// anything missing or malformed takes the field default.
func Normalize(record Record) Vector {
	return Vector{
		Gender:          resolveString(record, Gender, DefaultGender),
		Age:             resolveFloat(record, Age),
		Hypertension:    resolveFlag(record, Hypertension),
		HeartDisease:    resolveFlag(record, HeartDisease),
		EverMarried:     resolveString(record, EverMarried, DefaultEverMarried),
		WorkType:        resolveString(record, WorkType, DefaultWorkType),
		ResidenceType:   resolveString(record, ResidenceType, DefaultResidenceType),
		AvgGlucoseLevel: resolveFloat(record, AvgGlucoseLevel),
		BMI:             resolveBMI(record),
		SmokingStatus:   resolveString(record, SmokingStatus, DefaultSmokingStatus),
	}
}

// resolve returns the first present value for a feature. Nil values and
// blank strings count as absent.
func resolve(record Record, feature string) (interface{}, bool) {
	for _, path := range sources[feature] {
		value, ok := lookup(record, path)
		if !ok || isBlank(value) {
			continue
		}
		return value, true
	}
	return nil, false
}

func lookup(record Record, path []string) (interface{}, bool) {
	var current interface{} = map[string]interface{}(record)
	for _, key := range path {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func asMap(value interface{}) (map[string]interface{}, bool) {
	switch m := value.(type) {
	case map[string]interface{}:
		return m, m != nil
	case Record:
		return map[string]interface{}(m), m != nil
	case map[string]string:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func isBlank(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func resolveString(record Record, feature, fallback string) string {
	value, ok := resolve(record, feature)
	if !ok {
		return fallback
	}
	if s, ok := toString(value); ok && s != "" {
		return s
	}
	return fallback
}

func resolveFloat(record Record, feature string) float64 {
	value, ok := resolve(record, feature)
	if !ok {
		return 0
	}
	if f, ok := toFloat(value); ok {
		return f
	}
	return 0
}

func resolveFlag(record Record, feature string) int {
	value, ok := resolve(record, feature)
	if !ok {
		return 0
	}
	return toFlag(value)
}

func resolveBMI(record Record) float64 {
	value, ok := resolve(record, BMI)
	if !ok {
		return 0
	}
	if s, isString := value.(string); isString {
		if _, sentinel := bmiSentinels[strings.ToLower(strings.TrimSpace(s))]; sentinel {
			return 0
		}
	}
	if f, ok := toFloat(value); ok {
		return f
	}
	return 0
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case fmt.Stringer:
		return strings.TrimSpace(v.String()), true
	default:
		return "", false
	}
}

// toFloat only accepts finite numbers; NaN and infinities are malformed.
func toFloat(value interface{}) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toFlag maps a value to 0/1. Numbers are truncated toward zero and any
// positive result is 1. Strings must parse as integers; text such as
// "Yes" is 0.
func toFlag(value interface{}) int {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return 0
		}
		return 1
	case json.Number:
		n, err := v.Int64()
		if err != nil || n <= 0 {
			return 0
		}
		return 1
	}
	f, ok := toFloat(value)
	if !ok || math.Trunc(f) <= 0 {
		return 0
	}
	return 1
}

// Sparse reports whether record carries none of the measured values (age,
// glucose, BMI). Such records would score on defaults alone.
func Sparse(record Record) bool {
	for _, feature := range []string{Age, AvgGlucoseLevel, BMI} {
		if _, ok := resolve(record, feature); ok {
			return false
		}
	}
	return true
}

package features

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNormalizeEmptyRecordUsesDefaults(t *testing.T) {
	want := Vector{
		Gender:          "Other",
		Age:             0,
		Hypertension:    0,
		HeartDisease:    0,
		EverMarried:     "No",
		WorkType:        "Private",
		ResidenceType:   "Urban",
		AvgGlucoseLevel: 0,
		BMI:             0,
		SmokingStatus:   "never smoked",
	}

	for _, record := range []Record{nil, {}} {
		if got := Normalize(record); got != want {
			t.Fatalf("Normalize(%v) = %+v, want %+v", record, got, want)
		}
	}
}

func TestNormalizeNestedShape(t *testing.T) {
	record := Record{
		"demographics": map[string]interface{}{
			"gender":         "Female",
			"age":            60,
			"ever_married":   "Yes",
			"work_type":      "Self-employed",
			"residence_type": "Rural",
		},
		"medical_history": map[string]interface{}{
			"hypertension":      1,
			"heart_disease":     1.0,
			"avg_glucose_level": "180.5",
			"bmi":               30.1,
			"smoking_status":    "smokes",
		},
	}

	got := Normalize(record)
	want := Vector{
		Gender:          "Female",
		Age:             60,
		Hypertension:    1,
		HeartDisease:    1,
		EverMarried:     "Yes",
		WorkType:        "Self-employed",
		ResidenceType:   "Rural",
		AvgGlucoseLevel: 180.5,
		BMI:             30.1,
		SmokingStatus:   "smokes",
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestNormalizeFlatShapeWithKaggleKeys(t *testing.T) {
	record := Record{
		"gender":            "Male",
		"age":               "67",
		"hypertension":      "0",
		"heart_disease":     "1",
		"ever_married":      "Yes",
		"work_type":         "Govt_job",
		"Residence_type":    "Rural",
		"avg_glucose_level": 228.69,
		"bmi":               "36.6",
		"smoking_status":    "formerly smoked",
	}

	got := Normalize(record)
	if got.Age != 67 || got.HeartDisease != 1 || got.Hypertension != 0 {
		t.Fatalf("unexpected numeric coercion: %+v", got)
	}
	if got.ResidenceType != "Rural" {
		t.Fatalf("expected Residence_type key to resolve, got %q", got.ResidenceType)
	}
	if got.BMI != 36.6 {
		t.Fatalf("expected bmi 36.6, got %v", got.BMI)
	}
}

func TestNormalizeNestedTakesPrecedence(t *testing.T) {
	record := Record{
		"gender":       "Male",
		"demographics": map[string]interface{}{"gender": "Female"},
	}
	if got := Normalize(record).Gender; got != "Female" {
		t.Fatalf("expected nested value to win, got %q", got)
	}

	record = Record{
		"gender":       "Male",
		"demographics": map[string]interface{}{"gender": "  "},
	}
	if got := Normalize(record).Gender; got != "Male" {
		t.Fatalf("expected blank nested value to fall back to flat key, got %q", got)
	}
}

func TestNormalizeResidenceTypeVariants(t *testing.T) {
	cases := []struct {
		name   string
		record Record
		want   string
	}{
		{"nested lower", Record{"demographics": map[string]interface{}{"residence_type": "Rural"}}, "Rural"},
		{"flat kaggle", Record{"Residence_type": "Rural"}, "Rural"},
		{"nested kaggle", Record{"demographics": map[string]interface{}{"Residence_type": "Rural"}}, "Rural"},
		{"flat lower", Record{"residence_type": "Rural"}, "Rural"},
		{"missing", Record{}, "Urban"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.record).ResidenceType; got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeBMISentinels(t *testing.T) {
	for _, raw := range []interface{}{"N/A", "", "NA", "nan", nil, "abc"} {
		record := Record{"medical_history": map[string]interface{}{"bmi": raw}}
		if got := Normalize(record).BMI; got != 0 {
			t.Fatalf("bmi %v normalized to %v, want 0", raw, got)
		}
	}
}

func TestNormalizeMalformedValuesFallBack(t *testing.T) {
	record := Record{
		"demographics": "not-a-map",
		"age":          "sixty",
		"hypertension": "Yes",
		"heart_disease": map[string]interface{}{
			"value": 1,
		},
		"avg_glucose_level": math.NaN(),
		"gender":            42,
		"medical_history": map[string]interface{}{
			"bmi":            []interface{}{1, 2},
			"smoking_status": true,
		},
	}

	got := Normalize(record)
	want := Normalize(Record{})
	if got != want {
		t.Fatalf("expected all defaults, got %+v", got)
	}
}

func TestNormalizeFlagCoercion(t *testing.T) {
	cases := []struct {
		raw  interface{}
		want int
	}{
		{1, 1},
		{0, 0},
		{true, 1},
		{false, 0},
		{"1", 1},
		{" 0 ", 0},
		{"1.0", 0},
		{"Yes", 0},
		{2.7, 1},
		{0.4, 0},
		{-1, 0},
		{json.Number("1"), 1},
	}
	for _, tc := range cases {
		record := Record{"medical_history": map[string]interface{}{"hypertension": tc.raw}}
		if got := Normalize(record).Hypertension; got != tc.want {
			t.Fatalf("hypertension %#v -> %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeDecodedJSON(t *testing.T) {
	payload := `{"demographics":{"gender":"Male","age":75},"medical_history":{"hypertension":1,"heart_disease":1,"avg_glucose_level":180.0,"bmi":30.0,"smoking_status":"smokes"}}`
	var record Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := Normalize(record)
	if got.Gender != "Male" || got.Age != 75 || got.Hypertension != 1 || got.HeartDisease != 1 {
		t.Fatalf("unexpected vector %+v", got)
	}
}

func TestVectorMapUsesCanonicalNames(t *testing.T) {
	m := Normalize(Record{"age": 50}).Map()
	if len(m) != len(Names) {
		t.Fatalf("expected %d entries, got %d", len(Names), len(m))
	}
	for _, name := range Names {
		if _, ok := m[name]; !ok {
			t.Fatalf("missing feature %s", name)
		}
	}
	if m[Age].(float64) != 50 {
		t.Fatalf("unexpected age %v", m[Age])
	}
	if v, ok := Normalize(nil).Value("residence_type"); !ok || v != "Urban" {
		t.Fatalf("expected case-variant lookup to succeed, got %v %v", v, ok)
	}
}

func TestSparse(t *testing.T) {
	if !Sparse(Record{"gender": "Male", "medical_history": map[string]interface{}{"bmi": ""}}) {
		t.Fatal("expected record without measurements to be sparse")
	}
	if Sparse(Record{"medical_history": map[string]interface{}{"avg_glucose_level": 95.2}}) {
		t.Fatal("expected record with glucose to be dense")
	}
}

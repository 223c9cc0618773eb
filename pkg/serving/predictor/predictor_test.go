package predictor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/strokecare/platform/pkg/features"
	"github.com/strokecare/platform/pkg/risk"
)

const artifactJSON = `{
  "version": "v3",
  "feature_order": ["gender","age","hypertension","heart_disease","ever_married","work_type","Residence_type","avg_glucose_level","bmi","smoking_status"],
  "encoders": {
    "gender": ["Female","Male","Other"],
    "ever_married": ["No","Yes"],
    "work_type": ["Govt_job","Never_worked","Private","Self-employed","children"],
    "Residence_type": ["Rural","Urban"],
    "smoking_status": ["Unknown","formerly smoked","never smoked","smokes"]
  },
  "model": {
    "type": "classification",
    "algorithm": "logistic",
    "weights": {"bias": 0, "coefficients": [0,0,0,0,0,0,0,0,0,0]}
  }
}`

func writeArtifact(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name+"_latest.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestHandleLoadsAndClassifies(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "stroke", artifactJSON)

	p := NewPredictor(dir)
	handle, err := p.Handle("stroke")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.Version != "v3" {
		t.Fatalf("unexpected version %q", handle.Version)
	}

	result, err := risk.Classify(features.Normalize(nil), handle, risk.DefaultPolicy())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Probability != 0.5 || result.StrokeFlag != 1 || result.RiskLevel != risk.LevelHigh {
		t.Fatalf("unexpected result %+v", result)
	}

	again, err := p.Handle("stroke")
	if err != nil || again != handle {
		t.Fatalf("expected cached handle, got %p vs %p (%v)", again, handle, err)
	}
}

func TestHandleReloadsWhenArtifactChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "stroke", artifactJSON)

	p := NewPredictor(dir)
	first, err := p.Handle("stroke")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeArtifact(t, dir, "stroke", artifactJSON)
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := p.Handle("stroke")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh handle after the artifact changed")
	}
}

func TestHandleModelUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "corrupt", "{not json")
	writeArtifact(t, dir, "forest", `{"feature_order":["age"],"model":{"algorithm":"random_forest"}}`)
	writeArtifact(t, dir, "short", `{"feature_order":["age","bmi"],"model":{"weights":{"coefficients":[1]}}}`)
	writeArtifact(t, dir, "noenc", `{"feature_order":["gender"],"model":{"weights":{"coefficients":[1]}}}`)

	p := NewPredictor(dir)
	for _, name := range []string{"missing", "corrupt", "forest", "short", "noenc", "../stroke", ""} {
		if _, err := p.Handle(name); !errors.Is(err, risk.ErrModelUnavailable) {
			t.Fatalf("model %q: expected ErrModelUnavailable, got %v", name, err)
		}
	}
}

func TestDecodeFallsBackToModelFeatureNames(t *testing.T) {
	handle, err := Decode([]byte(`{"model":{"feature_names":["age","bmi"],"weights":{"bias":0.1,"coefficients":[0.01,0.02]}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(handle.FeatureOrder) != 2 || handle.FeatureOrder[1] != "bmi" {
		t.Fatalf("unexpected feature order %v", handle.FeatureOrder)
	}
}

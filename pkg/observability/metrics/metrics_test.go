package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestObservePredictionCounts(t *testing.T) {
	before := Read()

	ObservePrediction("Medium", 0, 1, 120)
	ObservePrediction("High", 1, 0, 80)
	ObserveModelUnavailable()

	after := Read()
	if after.Medium-before.Medium != 1 || after.High-before.High != 1 {
		t.Fatalf("unexpected level counts: before %+v after %+v", before, after)
	}
	if after.Flagged-before.Flagged != 1 {
		t.Fatalf("expected one flagged prediction")
	}
	if after.DegradedEncodings-before.DegradedEncodings != 1 {
		t.Fatalf("expected one degraded encoding")
	}
	if after.ModelUnavailable-before.ModelUnavailable != 1 {
		t.Fatalf("expected one model unavailable error")
	}
	if after.LastLatencyMicros != 80 {
		t.Fatalf("expected latest latency 80, got %d", after.LastLatencyMicros)
	}
}

func TestWritePrometheus(t *testing.T) {
	rec := httptest.NewRecorder()
	WritePrometheus(rec)

	body := rec.Body.String()
	for _, want := range []string{
		`strokecare_predictions_total{risk_level="High"}`,
		"strokecare_model_unavailable_total",
		"strokecare_recompute_updated_total",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in output:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	predictionsLow      atomic.Int64
	predictionsMedium   atomic.Int64
	predictionsHigh     atomic.Int64
	predictionsFlagged  atomic.Int64
	modelUnavailable    atomic.Int64
	degradedEncodings   atomic.Int64
	recomputeUpdated    atomic.Int64
	recomputeFailed     atomic.Int64
	predictionLatencyUs atomic.Int64
)

// ObservePrediction records one successful classification.
func ObservePrediction(level string, flag int, degraded int, latencyMicros int64) {
	switch level {
	case "Low":
		predictionsLow.Add(1)
	case "Medium":
		predictionsMedium.Add(1)
	case "High":
		predictionsHigh.Add(1)
	}
	if flag == 1 {
		predictionsFlagged.Add(1)
	}
	if degraded > 0 {
		degradedEncodings.Add(int64(degraded))
	}
	predictionLatencyUs.Store(latencyMicros)
}

func ObserveModelUnavailable() {
	modelUnavailable.Add(1)
}

func ObserveRecompute(updated, failed int) {
	recomputeUpdated.Add(int64(updated))
	recomputeFailed.Add(int64(failed))
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Low               int64
	Medium            int64
	High              int64
	Flagged           int64
	ModelUnavailable  int64
	DegradedEncodings int64
	RecomputeUpdated  int64
	RecomputeFailed   int64
	LastLatencyMicros int64
}

func Read() Snapshot {
	return Snapshot{
		Low:               predictionsLow.Load(),
		Medium:            predictionsMedium.Load(),
		High:              predictionsHigh.Load(),
		Flagged:           predictionsFlagged.Load(),
		ModelUnavailable:  modelUnavailable.Load(),
		DegradedEncodings: degradedEncodings.Load(),
		RecomputeUpdated:  recomputeUpdated.Load(),
		RecomputeFailed:   recomputeFailed.Load(),
		LastLatencyMicros: predictionLatencyUs.Load(),
	}
}

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	})
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeSnapshot(w, Read())
}

func writeSnapshot(w io.Writer, s Snapshot) {
	fmt.Fprintf(w, "# HELP strokecare_predictions_total Classifications served, by risk level.\n")
	fmt.Fprintf(w, "# TYPE strokecare_predictions_total counter\n")
	fmt.Fprintf(w, "strokecare_predictions_total{risk_level=\"Low\"} %d\n", s.Low)
	fmt.Fprintf(w, "strokecare_predictions_total{risk_level=\"Medium\"} %d\n", s.Medium)
	fmt.Fprintf(w, "strokecare_predictions_total{risk_level=\"High\"} %d\n", s.High)

	fmt.Fprintf(w, "# HELP strokecare_predictions_flagged_total Classifications with stroke_flag=1.\n")
	fmt.Fprintf(w, "# TYPE strokecare_predictions_flagged_total counter\n")
	fmt.Fprintf(w, "strokecare_predictions_flagged_total %d\n", s.Flagged)

	fmt.Fprintf(w, "# HELP strokecare_model_unavailable_total Requests rejected because no classifier could be loaded.\n")
	fmt.Fprintf(w, "# TYPE strokecare_model_unavailable_total counter\n")
	fmt.Fprintf(w, "strokecare_model_unavailable_total %d\n", s.ModelUnavailable)

	fmt.Fprintf(w, "# HELP strokecare_degraded_encodings_total Categorical values encoded through a fallback.\n")
	fmt.Fprintf(w, "# TYPE strokecare_degraded_encodings_total counter\n")
	fmt.Fprintf(w, "strokecare_degraded_encodings_total %d\n", s.DegradedEncodings)

	fmt.Fprintf(w, "# HELP strokecare_recompute_updated_total Patients re-scored by batch recomputation.\n")
	fmt.Fprintf(w, "# TYPE strokecare_recompute_updated_total counter\n")
	fmt.Fprintf(w, "strokecare_recompute_updated_total %d\n", s.RecomputeUpdated)

	fmt.Fprintf(w, "# HELP strokecare_recompute_failed_total Patients batch recomputation could not score.\n")
	fmt.Fprintf(w, "# TYPE strokecare_recompute_failed_total counter\n")
	fmt.Fprintf(w, "strokecare_recompute_failed_total %d\n", s.RecomputeFailed)

	fmt.Fprintf(w, "# HELP strokecare_prediction_latency_microseconds Latency of the most recent classification.\n")
	fmt.Fprintf(w, "# TYPE strokecare_prediction_latency_microseconds gauge\n")
	fmt.Fprintf(w, "strokecare_prediction_latency_microseconds %d\n", s.LastLatencyMicros)
}

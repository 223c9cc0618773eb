package serving

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/strokecare/platform/pkg/common/logger"
	"github.com/strokecare/platform/pkg/common/models"
	"github.com/strokecare/platform/pkg/risk"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/normalize", h.handleNormalize).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/predictions", h.handleRecent).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/predictions/stats", h.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/policy", h.handlePolicy).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/patients/{patient_id}/features", h.handleCachedFeatures).Methods(http.MethodGet)
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid prediction payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Predict(r.Context(), req)
	if err != nil {
		switch {
		case IsValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, risk.ErrModelUnavailable):
			logger.Log.WithError(err).Error("risk model unavailable")
			http.Error(w, "risk model unavailable", http.StatusServiceUnavailable)
		default:
			logger.Log.WithError(err).Error("failed to score record")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req struct {
		Record map[string]interface{} `json:"record"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.service.Normalize(req.Record))
}

func (h *HTTPHandler) handleCachedFeatures(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patient_id"]
	vector, err := h.service.CachedVector(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, ErrVectorNotCached) {
			http.Error(w, "feature vector not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).WithField("patient_id", patientID).Error("failed to read cached features")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, vector)
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	predictions, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list predictions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, predictions)
}

func (h *HTTPHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to aggregate predictions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) handlePolicy(w http.ResponseWriter, r *http.Request) {
	policy := h.service.Policy()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"low_cutoff":  policy.LowCutoff,
		"high_cutoff": policy.HighCutoff,
		"flag_cutoff": risk.FlagCutoff,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

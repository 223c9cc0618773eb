package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/strokecare/platform/pkg/features"
)

// ErrModelUnavailable is returned whenever no trustworthy probability can
// be produced. Callers decide their own degraded behaviour; no risk level
// is ever guessed.
var ErrModelUnavailable = errors.New("risk model unavailable")

// Model is a trained probabilistic classifier. It returns the probability
// of the positive (stroke) class for an encoded sample.
type Model interface {
	PositiveProbability(sample []float64) (float64, error)
}

// Handle bundles a loaded model with the encoding tables and feature order
// it was trained with. A Handle is immutable once built and may be shared
// across goroutines.
type Handle struct {
	Model        Model
	Encoders     EncoderTable
	FeatureOrder []string
	Version      string
}

func (h *Handle) Validate() error {
	if h == nil || h.Model == nil {
		return fmt.Errorf("%w: no model loaded", ErrModelUnavailable)
	}
	if len(h.FeatureOrder) == 0 {
		return fmt.Errorf("%w: feature order missing", ErrModelUnavailable)
	}
	var probe features.Vector
	for _, name := range h.FeatureOrder {
		if _, ok := probe.Value(name); !ok {
			return fmt.Errorf("%w: unknown feature %q", ErrModelUnavailable, name)
		}
		if features.IsCategorical(name) && len(h.Encoders[name]) == 0 {
			return fmt.Errorf("%w: no encoder for %q", ErrModelUnavailable, name)
		}
	}
	return nil
}

// Result is the outcome of one classification.
type Result struct {
	Probability float64 `json:"probability"`
	StrokeFlag  int     `json:"stroke_flag"`
	RiskLevel   Level   `json:"risk_level"`
	// Degraded names the categorical features whose value was not part of
	// the trained set.
	Degraded []string `json:"degraded_features,omitempty"`
}

// Encode assembles the numeric sample for v in the handle's feature order.
func Encode(v features.Vector, h *Handle) ([]float64, []string, error) {
	if err := h.Validate(); err != nil {
		return nil, nil, err
	}
	sample := make([]float64, len(h.FeatureOrder))
	var degraded []string
	for i, name := range h.FeatureOrder {
		value, _ := v.Value(name)
		switch typed := value.(type) {
		case string:
			enc := EncodeCategorical(name, typed, h.Encoders)
			if enc.Degraded() {
				degraded = append(degraded, name)
			}
			sample[i] = float64(enc.Index)
		case float64:
			sample[i] = typed
		case int:
			sample[i] = float64(typed)
		default:
			return nil, nil, fmt.Errorf("%w: unsupported feature %q", ErrModelUnavailable, name)
		}
	}
	return sample, degraded, nil
}

// Classify scores a normalized feature vector with the given handle and
// maps the probability through policy.
func Classify(v features.Vector, h *Handle, policy Policy) (Result, error) {
	sample, degraded, err := Encode(v, h)
	if err != nil {
		return Result{}, err
	}
	probability, err := h.Model.PositiveProbability(sample)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return Result{}, fmt.Errorf("%w: probability %v out of range", ErrModelUnavailable, probability)
	}
	return Result{
		Probability: probability,
		StrokeFlag:  policy.Flag(probability),
		RiskLevel:   policy.Level(probability),
		Degraded:    degraded,
	}, nil
}

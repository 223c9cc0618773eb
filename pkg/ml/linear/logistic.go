package linear

import (
	"fmt"
	"math"
)

// Weights is a trained logistic regression model.
type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

func (w Weights) Validate(featureCount int) error {
	if len(w.Coefficients) != featureCount {
		return fmt.Errorf("model has %d coefficients for %d features", len(w.Coefficients), featureCount)
	}
	for i, c := range w.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if math.IsNaN(w.Bias) || math.IsInf(w.Bias, 0) {
		return fmt.Errorf("bias is not finite")
	}
	return nil
}

// PositiveProbability returns sigmoid(bias + w·x).
func (w Weights) PositiveProbability(sample []float64) (float64, error) {
	if len(sample) != len(w.Coefficients) {
		return 0, fmt.Errorf("sample has %d values, model expects %d", len(sample), len(w.Coefficients))
	}
	return sigmoid(dot(w.Coefficients, sample) + w.Bias), nil
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

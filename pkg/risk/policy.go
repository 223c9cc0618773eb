package risk

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// FlagCutoff is the probability at or above which a prediction is flagged
// as a stroke outcome. It is independent of the risk tiers.
const FlagCutoff = 0.5

const (
	DefaultLowCutoff  = 0.12
	DefaultHighCutoff = 0.30
)

var ErrInvalidPolicy = errors.New("invalid risk policy")

// Policy is the single source of Low/Medium/High cutoffs. Every consumer
// of probabilities (API, batch recompute, event consumers) derives levels
// through it.
type Policy struct {
	LowCutoff  float64 `yaml:"low_cutoff" json:"low_cutoff"`
	HighCutoff float64 `yaml:"high_cutoff" json:"high_cutoff"`
}

func DefaultPolicy() Policy {
	return Policy{LowCutoff: DefaultLowCutoff, HighCutoff: DefaultHighCutoff}
}

// LoadPolicy reads a YAML policy file over the defaults, so a file may set
// only one cutoff. An empty path yields the default policy.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Policy{}, fmt.Errorf("read risk policy: %w", err)
	}
	policy := DefaultPolicy()
	if err := yaml.Unmarshal(content, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse risk policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

func (p Policy) Validate() error {
	if !finite(p.LowCutoff) || !finite(p.HighCutoff) {
		return fmt.Errorf("%w: cutoffs must be finite", ErrInvalidPolicy)
	}
	if p.LowCutoff < 0 || p.HighCutoff > 1 || p.LowCutoff > p.HighCutoff {
		return fmt.Errorf("%w: low=%v high=%v", ErrInvalidPolicy, p.LowCutoff, p.HighCutoff)
	}
	return nil
}

// WithOverrides replaces either cutoff when the override is non-negative.
func (p Policy) WithOverrides(low, high float64) (Policy, error) {
	if low >= 0 {
		p.LowCutoff = low
	}
	if high >= 0 {
		p.HighCutoff = high
	}
	return p, p.Validate()
}

// Level maps a probability to its tier. Both cutoffs are inclusive lower
// bounds of the tier above them.
func (p Policy) Level(probability float64) Level {
	switch {
	case probability >= p.HighCutoff:
		return LevelHigh
	case probability >= p.LowCutoff:
		return LevelMedium
	default:
		return LevelLow
	}
}

func (p Policy) Flag(probability float64) int {
	if probability >= FlagCutoff {
		return 1
	}
	return 0
}

// ResolvePolicy loads the policy file at path and applies env overrides on
// top of it. Negative overrides are ignored.
func ResolvePolicy(path string, low, high float64) (Policy, error) {
	policy, err := LoadPolicy(path)
	if err != nil {
		return Policy{}, err
	}
	return policy.WithOverrides(low, high)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

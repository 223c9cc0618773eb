package risk

import (
	"github.com/strokecare/platform/pkg/features"
)

// HandleProvider resolves a model name to a loaded classifier handle.
type HandleProvider interface {
	Handle(model string) (*Handle, error)
}

// Scorer runs the full record -> vector -> result pipeline with one model
// source and one policy. API handlers, event consumers and batch jobs all
// score through it so thresholds cannot drift between them.
type Scorer struct {
	handles      HandleProvider
	policy       Policy
	defaultModel string
}

func NewScorer(handles HandleProvider, policy Policy, defaultModel string) *Scorer {
	return &Scorer{handles: handles, policy: policy, defaultModel: defaultModel}
}

func (s *Scorer) Policy() Policy {
	return s.policy
}

func (s *Scorer) DefaultModel() string {
	return s.defaultModel
}

// Assessment is a scored record together with what produced it.
type Assessment struct {
	Vector       features.Vector
	Result       Result
	ModelName    string
	ModelVersion string
}

// Score normalizes record and classifies it with model, or the default
// model when model is empty.
func (s *Scorer) Score(record features.Record, model string) (Assessment, error) {
	if model == "" {
		model = s.defaultModel
	}
	vector := features.Normalize(record)
	if s.handles == nil {
		return Assessment{}, ErrModelUnavailable
	}
	handle, err := s.handles.Handle(model)
	if err != nil {
		return Assessment{}, err
	}
	result, err := Classify(vector, handle, s.policy)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{
		Vector:       vector,
		Result:       result,
		ModelName:    model,
		ModelVersion: handle.Version,
	}, nil
}

// Ready loads the default model and reports whether it can classify.
func (s *Scorer) Ready() error {
	if s.handles == nil {
		return ErrModelUnavailable
	}
	handle, err := s.handles.Handle(s.defaultModel)
	if err != nil {
		return err
	}
	return handle.Validate()
}

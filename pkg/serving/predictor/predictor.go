package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/strokecare/platform/pkg/ml/linear"
	"github.com/strokecare/platform/pkg/risk"
)

const algorithmLogistic = "logistic"

// Artifact is the on-disk bundle written by the offline training job:
// model parameters, per-feature category tables and the feature order the
// model was fitted on.
type Artifact struct {
	Version      string            `json:"version"`
	FeatureOrder []string          `json:"feature_order"`
	Encoders     risk.EncoderTable `json:"encoders"`
	Model        struct {
		Type         string         `json:"type"`
		Algorithm    string         `json:"algorithm"`
		FeatureNames []string       `json:"feature_names"`
		Weights      linear.Weights `json:"weights"`
	} `json:"model"`
}

// Predictor loads classifier artifacts from a directory and hands out
// immutable risk handles. Artifacts are parsed once and reused until the
// file on disk changes.
type Predictor struct {
	dir   string
	cache map[string]cachedHandle
	mu    sync.RWMutex
}

type cachedHandle struct {
	handle  *risk.Handle
	modTime int64
}

func NewPredictor(dir string) *Predictor {
	return &Predictor{
		dir:   dir,
		cache: make(map[string]cachedHandle),
	}
}

// Handle returns the classifier handle for model. Any failure to locate or
// decode the artifact is reported as risk.ErrModelUnavailable.
func (p *Predictor) Handle(model string) (*risk.Handle, error) {
	if model == "" || strings.ContainsAny(model, `/\`) || strings.Contains(model, "..") {
		return nil, fmt.Errorf("%w: invalid model name %q", risk.ErrModelUnavailable, model)
	}
	latest := filepath.Join(p.dir, fmt.Sprintf("%s_latest.json", model))
	info, err := os.Stat(latest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", risk.ErrModelUnavailable, err)
	}
	mod := info.ModTime().UnixNano()

	p.mu.RLock()
	cached, ok := p.cache[model]
	p.mu.RUnlock()
	if ok && cached.modTime == mod {
		return cached.handle, nil
	}

	content, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", risk.ErrModelUnavailable, err)
	}
	handle, err := Decode(content)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.cache[model] = cachedHandle{handle: handle, modTime: mod}
	p.mu.Unlock()
	return handle, nil
}

// Decode parses an artifact and validates it into a risk handle.
func Decode(content []byte) (*risk.Handle, error) {
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("%w: corrupt artifact: %v", risk.ErrModelUnavailable, err)
	}
	algorithm := strings.ToLower(artifact.Model.Algorithm)
	if algorithm == "" {
		algorithm = algorithmLogistic
	}
	if algorithm != algorithmLogistic {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", risk.ErrModelUnavailable, artifact.Model.Algorithm)
	}

	order := artifact.FeatureOrder
	if len(order) == 0 {
		order = artifact.Model.FeatureNames
	}
	if err := artifact.Model.Weights.Validate(len(order)); err != nil {
		return nil, fmt.Errorf("%w: %v", risk.ErrModelUnavailable, err)
	}

	handle := &risk.Handle{
		Model:        artifact.Model.Weights,
		Encoders:     artifact.Encoders,
		FeatureOrder: order,
		Version:      artifact.Version,
	}
	if err := handle.Validate(); err != nil {
		return nil, err
	}
	return handle, nil
}

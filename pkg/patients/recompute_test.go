package patients

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/strokecare/platform/pkg/common/models"
	"github.com/strokecare/platform/pkg/features"
	"github.com/strokecare/platform/pkg/risk"
)

// ageModel scores age/100 and refuses ages it was told to reject.
type ageModel struct {
	reject float64
}

func (m ageModel) PositiveProbability(sample []float64) (float64, error) {
	age := sample[1]
	if age == m.reject {
		return 0, errors.New("solver diverged")
	}
	return age / 100, nil
}

type handles map[string]*risk.Handle

func (h handles) Handle(model string) (*risk.Handle, error) {
	handle, ok := h[model]
	if !ok {
		return nil, risk.ErrModelUnavailable
	}
	return handle, nil
}

func testScorer(model risk.Model) *risk.Scorer {
	encoders := risk.EncoderTable{
		features.Gender:        {"Female", "Male", "Other"},
		features.EverMarried:   {"No", "Yes"},
		features.WorkType:      {"Govt_job", "Private", "Self-employed"},
		features.ResidenceType: {"Rural", "Urban"},
		features.SmokingStatus: {"Unknown", "formerly smoked", "never smoked", "smokes"},
	}
	handle := &risk.Handle{Model: model, Encoders: encoders, FeatureOrder: features.Names, Version: "v2"}
	return risk.NewScorer(handles{"stroke": handle}, risk.DefaultPolicy(), "stroke")
}

type fakeStore struct {
	mu       sync.Mutex
	patients []PatientModel
	failIDs  map[string]bool
	updates  map[string]models.RiskAssessment
	cleared  []string
	pages    int
}

func (s *fakeStore) ListActive(_ context.Context, afterID string, limit int) ([]PatientModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages++
	var page []PatientModel
	for _, p := range s.patients {
		if p.IsActive && p.ID > afterID {
			page = append(page, p)
		}
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (s *fakeStore) UpdateRisk(_ context.Context, assessment models.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[assessment.PatientID] {
		return errors.New("connection reset")
	}
	if s.updates == nil {
		s.updates = map[string]models.RiskAssessment{}
	}
	s.updates[assessment.PatientID] = assessment
	return nil
}

func (s *fakeStore) ClearRisk(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, id)
	return nil
}

func patient(id string, active bool, doc map[string]interface{}) PatientModel {
	return PatientModel{ID: id, IsActive: active, Document: doc}
}

func TestRecomputeUpdatesActivePatients(t *testing.T) {
	store := &fakeStore{
		patients: []PatientModel{
			patient("p1", true, map[string]interface{}{"demographics": map[string]interface{}{"age": 80}}),
			patient("p2", true, map[string]interface{}{"age": "20"}),
			patient("p3", false, map[string]interface{}{"age": 90}),
			patient("p4", true, map[string]interface{}{"gender": "Male"}),
			patient("p5", true, map[string]interface{}{"age": 13}),
			patient("p6", true, map[string]interface{}{"age": 5}),
		},
		failIDs: map[string]bool{"p6": true},
	}
	stale := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	store.patients[3].RiskCalculatedAt = &stale
	store.patients = append(store.patients, patient("p7", true, map[string]interface{}{"gender": "Female"}))
	sort.Slice(store.patients, func(i, j int) bool { return store.patients[i].ID < store.patients[j].ID })

	r := NewRecomputer(store, testScorer(ageModel{reject: 13}), 2, 3)
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Scanned != 6 || summary.Updated != 2 || summary.Skipped != 2 || summary.Failed != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	high := store.updates["p1"]
	if high.Level != string(risk.LevelHigh) || high.Flag != 1 || high.ModelVersion != "v2" || high.CalculatedAt.IsZero() {
		t.Fatalf("unexpected assessment for p1: %+v", high)
	}
	if got := store.updates["p2"]; got.Level != string(risk.LevelMedium) || got.Flag != 0 {
		t.Fatalf("unexpected assessment for p2: %+v", got)
	}
	if _, ok := store.updates["p3"]; ok {
		t.Fatal("inactive patient must not be rescored")
	}
	if len(store.cleared) != 1 || store.cleared[0] != "p4" {
		t.Fatalf("expected only the previously scored sparse patient to be cleared, got %v", store.cleared)
	}
}

func TestRecomputeAbortsWithoutModel(t *testing.T) {
	store := &fakeStore{patients: []PatientModel{patient("p1", true, map[string]interface{}{"age": 70})}}
	scorer := risk.NewScorer(handles{}, risk.DefaultPolicy(), "stroke")

	_, err := NewRecomputer(store, scorer, 10, 1).Run(context.Background())
	if !errors.Is(err, risk.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if store.pages != 0 {
		t.Fatalf("expected no patient reads, got %d", store.pages)
	}
}

func TestRecomputeStopsOnCancel(t *testing.T) {
	store := &fakeStore{patients: []PatientModel{patient("p1", true, map[string]interface{}{"age": 70})}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRecomputer(store, testScorer(ageModel{reject: -1}), 10, 1).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

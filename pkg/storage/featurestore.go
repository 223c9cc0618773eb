package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/strokecare/platform/pkg/common/logger"
	"github.com/strokecare/platform/pkg/features"
)

const featureSetVersion = 1

// FeatureStore keeps the latest normalized vector per patient in Redis so
// dashboards and re-scoring can skip normalization.
type FeatureStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type cachedVector struct {
	PatientID string          `json:"patient_id"`
	Vector    features.Vector `json:"vector"`
	Version   int             `json:"version"`
	StoredAt  time.Time       `json:"stored_at"`
}

func NewFeatureStore(client *redis.Client, prefix string, ttl time.Duration) *FeatureStore {
	if prefix == "" {
		prefix = "features"
	}
	return &FeatureStore{client: client, prefix: prefix, ttl: ttl}
}

func (f *FeatureStore) key(patientID string) string {
	return fmt.Sprintf("%s:v%d:%s", f.prefix, featureSetVersion, patientID)
}

// MaterializeVector caches v for patientID with the configured TTL.
func (f *FeatureStore) MaterializeVector(ctx context.Context, patientID string, v features.Vector) error {
	if patientID == "" {
		return nil
	}
	data, err := json.Marshal(cachedVector{
		PatientID: patientID,
		Vector:    v,
		Version:   featureSetVersion,
		StoredAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	key := f.key(patientID)
	if err := f.client.Set(ctx, key, data, f.ttl).Err(); err != nil {
		return fmt.Errorf("cache feature vector: %w", err)
	}
	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Cached feature vector")
	return nil
}

// GetVector returns the cached vector for patientID. The boolean is false
// on a cache miss.
func (f *FeatureStore) GetVector(ctx context.Context, patientID string) (features.Vector, bool, error) {
	data, err := f.client.Get(ctx, f.key(patientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return features.Vector{}, false, nil
	}
	if err != nil {
		return features.Vector{}, false, err
	}
	var cached cachedVector
	if err := json.Unmarshal(data, &cached); err != nil {
		return features.Vector{}, false, err
	}
	return cached.Vector, true, nil
}

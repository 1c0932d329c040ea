package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/yairfalse/vahti/types"
)

// PutRecommendation inserts or overwrites a rightsizing recommendation,
// keyed by owner and resource id so repeated sweeps do not pile up duplicates.
func (s *Store) PutRecommendation(rec types.RightsizingRecommendation) error {
	if rec.ResourceID == "" || rec.OwnerID == "" {
		return fmt.Errorf("recommendation needs resource id and owner")
	}

	key := []byte(rec.OwnerID + "/" + rec.ResourceID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecommendations)

		// An applied recommendation is history; a fresh sweep may replace it
		if existing := bucket.Get(key); existing != nil {
			var prev types.RightsizingRecommendation
			if err := json.Unmarshal(existing, &prev); err != nil {
				return fmt.Errorf("corrupt recommendation row %s: %w", key, err)
			}
			rec.CreatedAt = prev.CreatedAt
		} else if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now()
		}

		value, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return bucket.Put(key, value)
	})
}

// GetRecommendation reads one recommendation scoped to its owner
func (s *Store) GetRecommendation(resourceID, ownerID string) (*types.RightsizingRecommendation, error) {
	var rec types.RightsizingRecommendation
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketRecommendations).Get([]byte(ownerID + "/" + resourceID))
		if value == nil {
			return types.ErrNotFoundOrUnauthorized
		}
		return json.Unmarshal(value, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecommendations returns an owner's recommendations, optionally
// filtered by status.
func (s *Store) ListRecommendations(ownerID string, status types.RecommendationStatus) ([]types.RightsizingRecommendation, error) {
	var out []types.RightsizingRecommendation
	prefix := []byte(ownerID + "/")

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRecommendations).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec types.RightsizingRecommendation
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt recommendation row %s: %w", k, err)
			}
			if status == "" || rec.Status == status {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out, err
}

// MarkRecommendationApplied advances a pending recommendation to applied
func (s *Store) MarkRecommendationApplied(resourceID, ownerID string) error {
	key := []byte(ownerID + "/" + resourceID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRecommendations)
		value := bucket.Get(key)
		if value == nil {
			return types.ErrNotFoundOrUnauthorized
		}

		var rec types.RightsizingRecommendation
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("corrupt recommendation row %s: %w", key, err)
		}
		if rec.Status != types.RecommendationPending {
			return &types.InvalidStateError{ResourceID: resourceID, Current: string(rec.Status), Wanted: string(types.RecommendationPending)}
		}
		rec.Status = types.RecommendationApplied
		rec.AppliedAt = time.Now()

		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return bucket.Put(key, updated)
	})
}

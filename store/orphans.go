package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/yairfalse/vahti/types"
)

// UpsertOrphan inserts or overwrites a live orphan row keyed by
// owner and resource id. Existing rows keep their DetectedAt; scan facts
// (cost, risk, classification, details) are overwritten and status resets
// to detected. Cleaned rows live in a separate bucket and are never touched.
func (s *Store) UpsertOrphan(o types.OrphanedResource) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("invalid orphan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := orphanKey(o.OwnerID, o.ResourceID)
	now := time.Now()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOrphans)

		if existing := bucket.Get(key); existing != nil {
			var prev types.OrphanedResource
			if err := json.Unmarshal(existing, &prev); err != nil {
				return fmt.Errorf("corrupt orphan row %s: %w", key, err)
			}
			o.DetectedAt = prev.DetectedAt
		} else if o.DetectedAt.IsZero() {
			o.DetectedAt = now
		}
		o.Status = types.StatusDetected
		o.UpdatedAt = now

		value, err := json.Marshal(o)
		if err != nil {
			return err
		}
		return bucket.Put(key, value)
	})
	if err != nil {
		return err
	}

	s.index.ReplaceOrInsert(&orphanState{
		Key:    string(key),
		Owner:  o.OwnerID,
		ID:     o.ResourceID,
		Status: o.Status,
	})
	return nil
}

// GetOrphan reads one live orphan row scoped to its owner
func (s *Store) GetOrphan(resourceID, ownerID string) (*types.OrphanedResource, error) {
	var o types.OrphanedResource
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketOrphans).Get(orphanKey(ownerID, resourceID))
		if value == nil {
			return types.ErrNotFoundOrUnauthorized
		}
		return json.Unmarshal(value, &o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrphans returns every live orphan row for an owner
func (s *Store) ListOrphans(ownerID string) ([]types.OrphanedResource, error) {
	var out []types.OrphanedResource
	prefix := []byte(ownerID + "/")

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketOrphans).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var o types.OrphanedResource
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("corrupt orphan row %s: %w", k, err)
			}
			out = append(out, o)
		}
		return nil
	})
	return out, err
}

// ListOrphanIDs returns resource ids of an owner's live orphans whose
// status is in the given set. Served from the in-memory index.
func (s *Store) ListOrphanIDs(ownerID string, statuses ...types.CleanupStatus) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[types.CleanupStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	var ids []string
	pivot := &orphanState{Key: ownerID + "/"}
	s.index.AscendGreaterOrEqual(pivot, func(st *orphanState) bool {
		if st.Owner != ownerID {
			return false
		}
		if len(want) == 0 || want[st.Status] {
			ids = append(ids, st.ID)
		}
		return true
	})
	return ids
}

// DeleteOrphans removes the given live rows in one transaction,
// constrained to owner and the allowed status set. Returns rows removed.
func (s *Store) DeleteOrphans(ownerID string, resourceIDs []string, statuses ...types.CleanupStatus) (int, error) {
	if len(resourceIDs) == 0 {
		return 0, nil
	}

	allowed := make(map[types.CleanupStatus]bool, len(statuses))
	for _, st := range statuses {
		allowed[st] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Only keys the transaction really deleted leave the index, so a row
	// skipped for its status keeps its index entry.
	var deleted []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		deleted = deleted[:0]
		bucket := tx.Bucket(bucketOrphans)
		for _, id := range resourceIDs {
			key := orphanKey(ownerID, id)
			value := bucket.Get(key)
			if value == nil {
				continue
			}
			var o types.OrphanedResource
			if err := json.Unmarshal(value, &o); err != nil {
				return fmt.Errorf("corrupt orphan row %s: %w", key, err)
			}
			if len(allowed) > 0 && !allowed[o.Status] {
				continue
			}
			if err := bucket.Delete(key); err != nil {
				return err
			}
			deleted = append(deleted, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range deleted {
		s.index.Delete(&orphanState{Key: ownerID + "/" + id})
	}
	return len(deleted), nil
}

// MarkOrphanScheduled advances a live row from detected to scheduled
func (s *Store) MarkOrphanScheduled(resourceID, ownerID string) error {
	return s.transitionOrphan(resourceID, ownerID, types.StatusDetected, types.StatusScheduled)
}

// MarkOrphanCleaned finalizes a live row: status becomes cleaned and the
// row moves to the history bucket, freeing the live key for re-detection.
func (s *Store) MarkOrphanCleaned(resourceID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := orphanKey(ownerID, resourceID)
	now := time.Now()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		live := tx.Bucket(bucketOrphans)
		value := live.Get(key)
		if value == nil {
			return types.ErrNotFoundOrUnauthorized
		}

		var o types.OrphanedResource
		if err := json.Unmarshal(value, &o); err != nil {
			return fmt.Errorf("corrupt orphan row %s: %w", key, err)
		}
		o.Status = types.StatusCleaned
		o.CleanedAt = now
		o.UpdatedAt = now

		updated, err := json.Marshal(o)
		if err != nil {
			return err
		}

		historyKey := []byte(fmt.Sprintf("%s/%s/%d", ownerID, resourceID, now.UnixNano()))
		if err := tx.Bucket(bucketCleaned).Put(historyKey, updated); err != nil {
			return err
		}
		return live.Delete(key)
	})
	if err != nil {
		return err
	}

	s.index.Delete(&orphanState{Key: string(key)})
	return nil
}

// ListCleaned returns the historical record of cleaned orphans for an owner
func (s *Store) ListCleaned(ownerID string) ([]types.OrphanedResource, error) {
	var out []types.OrphanedResource
	prefix := []byte(ownerID + "/")

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketCleaned).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var o types.OrphanedResource
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("corrupt cleaned row %s: %w", k, err)
			}
			out = append(out, o)
		}
		return nil
	})
	return out, err
}

// transitionOrphan moves a live row between statuses in one transaction
func (s *Store) transitionOrphan(resourceID, ownerID string, from, to types.CleanupStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := orphanKey(ownerID, resourceID)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketOrphans)
		value := bucket.Get(key)
		if value == nil {
			return types.ErrNotFoundOrUnauthorized
		}

		var o types.OrphanedResource
		if err := json.Unmarshal(value, &o); err != nil {
			return fmt.Errorf("corrupt orphan row %s: %w", key, err)
		}
		if o.Status != from {
			return &types.InvalidStateError{ResourceID: resourceID, Current: string(o.Status), Wanted: string(from)}
		}
		o.Status = to
		o.UpdatedAt = time.Now()

		updated, err := json.Marshal(o)
		if err != nil {
			return err
		}
		return bucket.Put(key, updated)
	})
	if err != nil {
		return err
	}

	s.index.ReplaceOrInsert(&orphanState{
		Key:    string(key),
		Owner:  ownerID,
		ID:     resourceID,
		Status: to,
	})
	return nil
}

package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/yairfalse/vahti/types"
)

// PutSchedule inserts or overwrites a schedule, keyed by its id
func (s *Store) PutSchedule(rec types.ScheduledAction) error {
	if rec.ID == "" {
		return fmt.Errorf("schedule id cannot be empty")
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		value, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSchedules).Put([]byte(rec.ID), value)
	})
}

// GetSchedule reads one schedule scoped to its owner.
// A missing id and a foreign owner both return ErrNotFoundOrUnauthorized.
func (s *Store) GetSchedule(id, ownerID string) (*types.ScheduledAction, error) {
	var rec types.ScheduledAction
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketSchedules).Get([]byte(id))
		if value == nil {
			return types.ErrNotFoundOrUnauthorized
		}
		return json.Unmarshal(value, &rec)
	})
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != ownerID {
		return nil, types.ErrNotFoundOrUnauthorized
	}
	return &rec, nil
}

// DeleteSchedule removes a schedule scoped to its owner
func (s *Store) DeleteSchedule(id, ownerID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSchedules)
		value := bucket.Get([]byte(id))
		if value == nil {
			return types.ErrNotFoundOrUnauthorized
		}
		var rec types.ScheduledAction
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal schedule: %w", err)
		}
		if rec.OwnerID != ownerID {
			return types.ErrNotFoundOrUnauthorized
		}
		return bucket.Delete([]byte(id))
	})
}

// UpdateSchedule applies mutate to a schedule inside one transaction,
// scoped to id and owner. Returns the updated record.
func (s *Store) UpdateSchedule(id, ownerID string, mutate func(*types.ScheduledAction) error) (*types.ScheduledAction, error) {
	var rec types.ScheduledAction
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSchedules)
		value := bucket.Get([]byte(id))
		if value == nil {
			return types.ErrNotFoundOrUnauthorized
		}
		if err := json.Unmarshal(value, &rec); err != nil {
			return err
		}
		if rec.OwnerID != ownerID {
			return types.ErrNotFoundOrUnauthorized
		}

		if err := mutate(&rec); err != nil {
			return err
		}
		rec.UpdatedAt = time.Now()

		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), updated)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListSchedules returns every schedule owned by ownerID
func (s *Store) ListSchedules(ownerID string) ([]types.ScheduledAction, error) {
	var out []types.ScheduledAction
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSchedules).ForEach(func(k, v []byte) error {
			var rec types.ScheduledAction
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt schedule row %s: %w", k, err)
			}
			if rec.OwnerID == ownerID {
				out = append(out, rec)
			}
			return nil
		})
	})
	return out, err
}

// AllSchedules returns every schedule across all owners, paused ones
// included. Used to rebuild and heal the live timer registry.
func (s *Store) AllSchedules() ([]types.ScheduledAction, error) {
	var out []types.ScheduledAction
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSchedules).ForEach(func(k, v []byte) error {
			var rec types.ScheduledAction
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt schedule row %s: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

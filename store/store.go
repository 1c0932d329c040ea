// Package store persists schedules, orphaned resources and rightsizing
// recommendations in a local bbolt database. All reads and writes are
// scoped by owner; an in-memory btree index over live orphan states keeps
// reconciliation diffs off the disk path.
package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/yairfalse/vahti/types"
)

// Bucket names in bbolt
var (
	bucketSchedules       = []byte("schedules")
	bucketOrphans         = []byte("orphans")
	bucketCleaned         = []byte("orphans_cleaned")
	bucketRecommendations = []byte("recommendations")
	bucketMeta            = []byte("meta")
)

// orphanState tracks a live orphan row in the in-memory index
type orphanState struct {
	Key    string // owner + "/" + resourceID
	Owner  string
	ID     string
	Status types.CleanupStatus
}

// Store is the owner-scoped persistence layer
type Store struct {
	mu    sync.RWMutex
	db    *bbolt.DB
	index *btree.BTreeG[*orphanState]
	dir   string
}

// Open creates or opens a store in the given directory
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "vahti.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketSchedules, bucketOrphans, bucketCleaned, bucketRecommendations, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init buckets: %w", err)
	}

	s := &Store{
		db:  db,
		dir: dir,
		index: btree.NewG[*orphanState](32, func(a, b *orphanState) bool {
			return a.Key < b.Key
		}),
	}

	if err := s.rebuildIndex(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to rebuild orphan index: %w", err)
	}

	return s, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// rebuildIndex loads live orphan states from disk into the btree
func (s *Store) rebuildIndex() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOrphans).ForEach(func(k, v []byte) error {
			var o types.OrphanedResource
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("corrupt orphan row %s: %w", k, err)
			}
			s.index.ReplaceOrInsert(&orphanState{
				Key:    string(k),
				Owner:  o.OwnerID,
				ID:     o.ResourceID,
				Status: o.Status,
			})
			return nil
		})
	})
}

// orphanKey builds the owner-scoped key for an orphan row
func orphanKey(ownerID, resourceID string) []byte {
	return []byte(ownerID + "/" + resourceID)
}

// Owners returns every owner with at least one schedule or live orphan
func (s *Store) Owners() ([]string, error) {
	seen := make(map[string]bool)

	err := s.db.View(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSchedules).ForEach(func(k, v []byte) error {
			var rec types.ScheduledAction
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			seen[rec.OwnerID] = true
			return nil
		}); err != nil {
			return err
		}
		return tx.Bucket(bucketOrphans).ForEach(func(k, v []byte) error {
			var o types.OrphanedResource
			if err := json.Unmarshal(v, &o); err != nil {
				return err
			}
			seen[o.OwnerID] = true
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	return owners, nil
}

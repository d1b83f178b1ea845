// Package store persists model snapshots in an embedded bbolt database.
// Snapshots are small JSON documents describing a trained model's
// identity and ensemble weight, keyed by model name.
package store

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/slopewise/slopewise/pkg/errors"
)

var snapshotBucket = []byte("snapshots")

// Snapshot captures the persistent state of one pipeline model.
type Snapshot struct {
	Name         string    `json:"name"`
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Trained      bool      `json:"trained"`
	FeatureNames []string  `json:"feature_names,omitempty"`
	Weight       float64   `json:"weight"`
	SavedAt      time.Time `json:"saved_at"`
}

// SnapshotStore reads and writes snapshots in a single bbolt file.
type SnapshotStore struct {
	db *bolt.DB
}

// Open creates or opens the snapshot database at path.
func Open(path string) (*SnapshotStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: create bucket")
	}
	return &SnapshotStore{db: db}, nil
}

// Save stores or replaces the snapshot under its name.
func (s *SnapshotStore) Save(snap Snapshot) error {
	if snap.Name == "" {
		return errors.NewValidationError("name", "must not be empty", snap.Name)
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	buf, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "store: marshal snapshot")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put([]byte(snap.Name), buf)
	})
}

// Load returns the snapshot saved under name, or a ModelNotFoundError.
func (s *SnapshotStore) Load(name string) (Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		buf := tx.Bucket(snapshotBucket).Get([]byte(name))
		if buf == nil {
			return errors.NewModelNotFoundError(name)
		}
		return json.Unmarshal(buf, &snap)
	})
	return snap, err
}

// List returns every stored snapshot in key order.
func (s *SnapshotStore) List() ([]Snapshot, error) {
	var snaps []Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotBucket).ForEach(func(_, v []byte) error {
			var snap Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			snaps = append(snaps, snap)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "store: list snapshots")
	}
	return snaps, nil
}

// Delete removes the snapshot under name. Deleting a missing name is
// not an error.
func (s *SnapshotStore) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotBucket).Delete([]byte(name))
	})
}

// Close releases the underlying database file.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

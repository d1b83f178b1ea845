package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopewise/slopewise/pkg/errors"
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := Snapshot{
		Name:         "rf_main",
		ID:           "a2f1",
		Type:         "random_forest",
		Trained:      true,
		FeatureNames: []string{"displacement", "rainfall"},
		Weight:       0.42,
	}
	require.NoError(t, s.Save(in))

	out, err := s.Load("rf_main")
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.FeatureNames, out.FeatureNames)
	assert.Equal(t, in.Weight, out.Weight)
	assert.False(t, out.SavedAt.IsZero(), "SavedAt should be stamped on save")
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load("nope")
	var nfe *errors.ModelNotFoundError
	assert.ErrorAs(t, err, &nfe)
	assert.Equal(t, "nope", nfe.Name)
}

func TestSaveEmptyName(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Save(Snapshot{}))
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(Snapshot{Name: "m", Weight: 0.1}))
	require.NoError(t, s.Save(Snapshot{Name: "m", Weight: 0.9}))

	out, err := s.Load("m")
	require.NoError(t, err)
	assert.Equal(t, 0.9, out.Weight)

	snaps, err := s.List()
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, s.Save(Snapshot{Name: name}))
	}

	snaps, err := s.List()
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	// bbolt iterates keys in byte order.
	assert.Equal(t, "a", snaps[0].Name)
	assert.Equal(t, "c", snaps[2].Name)

	require.NoError(t, s.Delete("b"))
	require.NoError(t, s.Delete("b"))

	snaps, err = s.List()
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

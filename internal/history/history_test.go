package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tandem-dev/tandem/internal/storage"
)

func newStore(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	kv := storage.New(t.TempDir())
	s, err := New(kv)
	require.NoError(t, err)
	return s, kv
}

func TestStore_Dedup(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.Add("X"))
	require.NoError(t, s.Add("Y"))
	require.NoError(t, s.Add("X"))

	assert.Equal(t, []string{"X", "Y"}, s.All())
}

func TestStore_MostRecentFirst(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.Add("first"))
	require.NoError(t, s.Add("second"))

	assert.Equal(t, []string{"second", "first"}, s.All())
}

func TestStore_Capacity(t *testing.T) {
	s, _ := newStore(t)

	for i := 0; i < Capacity+10; i++ {
		require.NoError(t, s.Add(fmt.Sprintf("prompt %d", i)))
	}

	all := s.All()
	assert.Len(t, all, Capacity)
	// Newest survives, oldest fell off.
	assert.Equal(t, fmt.Sprintf("prompt %d", Capacity+9), all[0])
}

func TestStore_IgnoresEmpty(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.Add("   "))
	assert.Zero(t, s.Len())
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	s, kv := newStore(t)
	require.NoError(t, s.Add("remember me"))

	reloaded, err := New(kv)
	require.NoError(t, err)
	assert.Equal(t, []string{"remember me"}, reloaded.All())
}

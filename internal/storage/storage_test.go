package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStore_PutGet(t *testing.T) {
	s := New(t.TempDir())

	in := sample{Name: "history", Count: 3}
	require.NoError(t, s.Put([]string{"client", "prompts"}, in))

	var out sample
	require.NoError(t, s.Get([]string{"client", "prompts"}, &out))
	assert.Equal(t, in, out)
}

func TestStore_GetMissing(t *testing.T) {
	s := New(t.TempDir())

	var out sample
	err := s.Get([]string{"nope"}, &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutReplaces(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.Put([]string{"k"}, sample{Name: "a"}))
	require.NoError(t, s.Put([]string{"k"}, sample{Name: "b"}))

	var out sample
	require.NoError(t, s.Get([]string{"k"}, &out))
	assert.Equal(t, "b", out.Name)
}

func TestStore_Delete(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.Put([]string{"k"}, sample{Name: "a"}))
	assert.True(t, s.Exists([]string{"k"}))

	require.NoError(t, s.Delete([]string{"k"}))
	assert.False(t, s.Exists([]string{"k"}))

	// Deleting again is a no-op.
	assert.NoError(t, s.Delete([]string{"k"}))
}

package contextstore_test

import (
	"path/filepath"
	"testing"

	"github.com/blackroad/gateway/pkg/contextstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_MissingFileIsEmpty(t *testing.T) {
	s := contextstore.New(filepath.Join(t.TempDir(), "context.json"))
	doc, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestSetAndGet_RoundTrips(t *testing.T) {
	s := contextstore.New(filepath.Join(t.TempDir(), "context.json"))
	require.NoError(t, s.Set("last_goal", "ship gateway"))

	e, ok, err := s.Get("last_goal")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ship gateway", e.Value)
	assert.NotEmpty(t, e.Updated)
}

func TestSet_PreservesOtherKeys(t *testing.T) {
	s := contextstore.New(filepath.Join(t.TempDir(), "context.json"))
	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Set("b", 2))

	doc, err := s.All()
	require.NoError(t, err)
	assert.Len(t, doc, 2)
}

func TestDelete_RemovesKey(t *testing.T) {
	s := contextstore.New(filepath.Join(t.TempDir(), "context.json"))
	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Delete("a"))

	_, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_MissingKeyIsNoop(t *testing.T) {
	s := contextstore.New(filepath.Join(t.TempDir(), "context.json"))
	assert.NoError(t, s.Delete("nope"))
}

func TestCount_ReflectsStoredKeys(t *testing.T) {
	s := contextstore.New(filepath.Join(t.TempDir(), "context.json"))
	assert.Equal(t, 0, s.Count())
	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Set("b", 2))
	assert.Equal(t, 2, s.Count())
}

func TestSet_PersistsAcrossNewStoreInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.json")
	s1 := contextstore.New(path)
	require.NoError(t, s1.Set("k", "v"))

	s2 := contextstore.New(path)
	e, ok, err := s2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", e.Value)
}

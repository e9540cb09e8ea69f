package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/carepoints/generic"
	"github.com/warp/carepoints/generic/store/storetest"
	"github.com/warp/carepoints/store/file"
)

func newTestStore(t *testing.T) *file.Store {
	t.Helper()
	s, err := file.New(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFile_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.Store { return newTestStore(t) })
}

func TestFile_OneFilePerKey(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(context.Background(), "points", []byte("20")))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "points.json"))
	require.NoError(t, err)
	assert.Equal(t, "20", string(data))
}

func TestFile_RejectsPathKeys(t *testing.T) {
	s := newTestStore(t)
	err := s.Put(context.Background(), "../escape", []byte("1"))
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestFile_KeysIgnoreStrayFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(context.Background(), "tab", []byte(`"month"`)))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub.json"), 0o755))

	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tab"}, keys)
}

package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAbsent(t *testing.T) {
	store := NewStore(t.TempDir())

	_, ok, err := store.Get(Key{SourceBase: "ep01.mkv", StartMS: 0, EndMS: 1000})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	key := Key{SourceBase: "ep01.mkv", StartMS: 1300, EndMS: 92700}

	require.NoError(t, store.Put(key, "[00:01,250 - 00:03,100] こんにちは"))

	raw, ok, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[00:01,250 - 00:03,100] こんにちは", raw)

	// Layout: <dir>/<sourceBase>/<start>_<end>.txt
	_, err = os.Stat(filepath.Join(dir, "ep01.mkv", "1300_92700.txt"))
	require.NoError(t, err)
}

func TestPutOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())
	key := Key{SourceBase: "ep01.mkv", StartMS: 0, EndMS: 500}

	require.NoError(t, store.Put(key, "first"))
	require.NoError(t, store.Put(key, "second"))

	raw, ok, err := store.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", raw)
}

func TestInvalidate(t *testing.T) {
	store := NewStore(t.TempDir())
	key := Key{SourceBase: "ep01.mkv", StartMS: 0, EndMS: 500}

	require.NoError(t, store.Put(key, "stale"))
	require.NoError(t, store.Invalidate(key))

	_, ok, err := store.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	// Double invalidation stays silent.
	require.NoError(t, store.Invalidate(key))
}

func TestKeysAreIndependent(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Put(Key{SourceBase: "a.mkv", StartMS: 0, EndMS: 1}, "A"))
	require.NoError(t, store.Put(Key{SourceBase: "b.mkv", StartMS: 0, EndMS: 1}, "B"))
	require.NoError(t, store.Put(Key{SourceBase: "a.mkv", StartMS: 0, EndMS: 2}, "C"))

	raw, ok, err := store.Get(Key{SourceBase: "a.mkv", StartMS: 0, EndMS: 1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", raw)
}

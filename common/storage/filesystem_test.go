package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alibi/locker/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FilesystemStore {
	t.Helper()
	log := logger.New("error", "text")
	store, err := NewFilesystemStore(t.TempDir(), t.TempDir(), log)
	require.NoError(t, err)
	return store
}

func TestFilesystemStore_PutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("round trip payload \x00\x01\x02")

	key, err := store.Put(ctx, PutRequest{
		Content:     content,
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		OwnerID:     "alice",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "alice/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFilesystemStore_GetMissingIsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "alice/nope.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemStore_NoUnnamespacedFallback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Plant a file directly under the root, outside any owner namespace.
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "loose.bin"), []byte("x"), 0o640))

	// A namespaced key for it must not resolve.
	_, err := store.Get(ctx, "alice/loose.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemStore_DeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.Put(ctx, PutRequest{Content: []byte("bye"), Filename: "a.txt", OwnerID: "bob"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Second delete of the same key is a no-op.
	assert.NoError(t, store.Delete(ctx, key))
}

func TestFilesystemStore_LocateReturnsRelativePath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.Put(ctx, PutRequest{Content: []byte("hi"), Filename: "n.txt", OwnerID: "carol"})
	require.NoError(t, err)

	url, err := store.Locate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/files/"+key, url)
}

func TestFilesystemStore_RejectsTraversalKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"../etc/passwd", "alice/../../etc/passwd", ""} {
		_, err := store.Get(ctx, key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestNewFilesystemStore_FallbackWhenRootUnwritable(t *testing.T) {
	log := logger.New("error", "text")

	// A regular file cannot be used as a directory, forcing the fallback.
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o640))
	fallback := filepath.Join(t.TempDir(), "fallback-uploads")

	store, err := NewFilesystemStore(filepath.Join(blocked, "uploads"), fallback, log)
	require.NoError(t, err)
	assert.Equal(t, fallback, store.Root())

	// The fallback root is fully functional.
	key, err := store.Put(context.Background(), PutRequest{Content: []byte("ok"), Filename: "f.txt", OwnerID: "dave"})
	require.NoError(t, err)
	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), got)
}

func TestNewFilesystemStore_FailsWhenBothUnwritable(t *testing.T) {
	log := logger.New("error", "text")

	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o640))

	_, err := NewFilesystemStore(filepath.Join(blocked, "a"), filepath.Join(blocked, "b"), log)
	assert.Error(t, err)
}

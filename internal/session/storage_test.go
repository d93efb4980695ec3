package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, AccessTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, AccessTokenKey, "abc"))
	require.NoError(t, s.Set(ctx, UserProfileKey, `{"id":"1"}`))

	v, err := s.Get(ctx, AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	require.NoError(t, s.Set(ctx, AccessTokenKey, "def"))
	v, err = s.Get(ctx, AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "def", v)

	require.NoError(t, s.Delete(ctx, AccessTokenKey))
	require.NoError(t, s.Delete(ctx, AccessTokenKey))
	_, err = s.Get(ctx, AccessTokenKey)
	assert.ErrorIs(t, err, ErrNotFound)

	v, err = s.Get(ctx, UserProfileKey)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, v)
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	fs := NewFileStorage(path)
	exerciseStorage(t, fs)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again := NewFileStorage(path)
	v, err := again.Get(context.Background(), UserProfileKey)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, v)
}

func TestFileStorageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	_, err := NewFileStorage(path).Get(context.Background(), AccessTokenKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewRedisStorage(client, "booking:session:")
	exerciseStorage(t, s)

	assert.True(t, mr.Exists("booking:session:"+UserProfileKey))
	assert.False(t, mr.Exists(UserProfileKey))
}

func TestRedisStorageUnavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	_, err := NewRedisStorage(client, "p:").Get(context.Background(), AccessTokenKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

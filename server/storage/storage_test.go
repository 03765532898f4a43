package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Daskott/kavach/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutGet(t *testing.T) {
	store, err := New(context.Background(), shared.StorageConfig{Backend: shared.LOCAL_STORAGE, Dir: t.TempDir()})
	require.Nil(t, err)

	_, err = store.Get(context.Background(), "missing.png")
	assert.ErrorIs(t, err, ErrObjectNotExist)

	err = store.Put(context.Background(), Object{Key: "abc.png", ContentType: "image/png", Body: []byte("first")})
	assert.Nil(t, err)

	// Put overwrites
	err = store.Put(context.Background(), Object{Key: "abc.png", ContentType: "image/png", Body: []byte("second")})
	assert.Nil(t, err)

	body, err := store.Get(context.Background(), "abc.png")
	assert.Nil(t, err)
	assert.Equal(t, "second", string(body))
}

func TestLocalStorageKeepsKeysInsideDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.Nil(t, err)

	assert.Equal(t, filepath.Join(dir, "passwd"), store.path("../../etc/passwd"))
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), shared.StorageConfig{Backend: "ftp"})
	assert.NotNil(t, err)
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "abc.png", objectName("", "abc.png"))
	assert.Equal(t, "qr/abc.png", objectName("/qr/", "abc.png"))
}

package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"marketplace/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalImageStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalImageStore(dir, "/uploads/")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), "seller-1/pic.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/seller-1/pic.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "seller-1", "pic.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestLocalImageStore_StaysInsideRoot(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalImageStore(filepath.Join(dir, "root"), "/uploads")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), "../../escape.png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/escape.png", url)
	_, err = os.Stat(filepath.Join(dir, "escape.png"))
	assert.True(t, os.IsNotExist(err))
}

package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageService(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	storage := NewStorageService(dir)
	require.NoError(t, storage.EnsureUploadDir())

	name, path, err := storage.SaveFile("resume_match", "Jane Doe.PDF", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "resume_match_"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.Equal(t, storage.GetFilePath(name), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)

	require.NoError(t, storage.DeleteFile(name))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, _, err = storage.SaveFile("resume_match", "payload.exe", []byte("MZ"))
	assert.Error(t, err)
}

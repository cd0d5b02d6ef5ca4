package fileio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Read(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello world"), 0o644))

	r := NewReader(dir, 1024)
	content, err := r.Read(context.Background(), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", content)
}

func TestReader_RejectsAbsolutePath(t *testing.T) {
	r := NewReader(t.TempDir(), 1024)
	_, err := r.Read(context.Background(), "/etc/passwd")
	var pathErr *PathError
	assert.ErrorAs(t, err, &pathErr)
}

func TestReader_RejectsPathEscape(t *testing.T) {
	r := NewReader(t.TempDir(), 1024)
	_, err := r.Read(context.Background(), "../secrets.txt")
	var pathErr *PathError
	assert.ErrorAs(t, err, &pathErr)
}

func TestReader_RejectsBlocklistedNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRET=1"), 0o644))

	r := NewReader(dir, 1024)
	_, err := r.Read(context.Background(), ".env")
	var pathErr *PathError
	assert.ErrorAs(t, err, &pathErr)
}

func TestReader_RejectsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), make([]byte, 100), 0o644))

	r := NewReader(dir, 10)
	_, err := r.Read(context.Background(), "big.txt")
	var sizeErr *SizeError
	assert.ErrorAs(t, err, &sizeErr)
}

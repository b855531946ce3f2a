package media

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileAsset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Report.Final.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	asset, err := NewFileAsset(path)
	require.NoError(t, err)

	assert.Equal(t, path, asset.ID())
	assert.Equal(t, "Report.Final", asset.Name())

	ext, ok := asset.Extension()
	assert.True(t, ok)
	assert.Equal(t, "txt", ext)

	mt, ok := asset.MimeType()
	assert.True(t, ok)
	assert.Equal(t, "text/plain", mt)

	assert.Equal(t, DefaultLanguage, asset.Language())

	rc, err := asset.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestNewFileAsset_Options(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	asset, err := NewFileAsset(path, WithMimeType("image/png"), WithLanguage("fr-FR"))
	require.NoError(t, err)

	_, ok := asset.Extension()
	assert.False(t, ok, "file without extension reports it absent")

	mt, _ := asset.MimeType()
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, "fr-FR", asset.Language())
}

func TestNewFileAsset_Errors(t *testing.T) {
	_, err := NewFileAsset("")
	assert.Error(t, err)

	_, err = NewFileAsset(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)

	_, err = NewFileAsset(t.TempDir())
	assert.Error(t, err)
}

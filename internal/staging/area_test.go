package staging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-media-extract/internal/logging"
)

func newTestArea(t *testing.T) *Area {
	t.Helper()
	area, err := NewArea(filepath.Join(t.TempDir(), "media-indexing"), logging.NewDiscard())
	require.NoError(t, err)
	return area
}

func TestNewArea(t *testing.T) {
	_, err := NewArea("", logging.NewDiscard())
	assert.Error(t, err)

	area := newTestArea(t)
	assert.True(t, filepath.IsAbs(area.Dir()))
}

func TestArea_Ensure(t *testing.T) {
	area := newTestArea(t)

	_, err := os.Stat(area.Dir())
	require.True(t, os.IsNotExist(err), "directory is created lazily")

	require.NoError(t, area.Ensure())
	info, err := os.Stat(area.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent
	assert.NoError(t, area.Ensure())
}

func TestArea_EnsureRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	area, err := NewArea(path, logging.NewDiscard())
	require.NoError(t, err)
	assert.Error(t, area.Ensure())
}

func TestArea_Path(t *testing.T) {
	area := newTestArea(t)

	tests := []struct {
		name       string
		stem       string
		ext        string
		wantSuffix string
	}{
		{name: "plain", stem: "invoice", ext: "pdf", wantSuffix: "-invoice.pdf"},
		{name: "leading dot ext", stem: "scan", ext: ".png", wantSuffix: "-scan.png"},
		{name: "traversal in stem", stem: "../../etc/passwd", ext: "pdf", wantSuffix: "-____etc_passwd.pdf"},
		{name: "no stem", stem: "", ext: "tif", wantSuffix: ".tif"},
		{name: "page suffix", stem: "report-page_3", ext: "png", wantSuffix: "-report-page_3.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := area.Path(tt.stem, tt.ext)
			require.NoError(t, err)
			assert.True(t, area.Contains(path))
			assert.Equal(t, area.Dir(), filepath.Dir(path))
			assert.True(t, strings.HasSuffix(path, tt.wantSuffix), "got %s", path)
		})
	}
}

func TestArea_PathLongNames(t *testing.T) {
	area := newTestArea(t)
	require.NoError(t, area.Ensure())

	tests := []struct {
		name string
		stem string
		ext  string
	}{
		{name: "230 byte ascii stem", stem: strings.Repeat("a", 230), ext: "pdf"},
		{name: "multibyte stem", stem: strings.Repeat("é", 150), ext: "pdf"},
		{name: "page raster of long name", stem: strings.Repeat("b", 230) + "-page_12", ext: "png"},
		{name: "long extension", stem: "scan", ext: strings.Repeat("x", 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := area.Path(tt.stem, tt.ext)
			require.NoError(t, err)

			base := filepath.Base(path)
			assert.LessOrEqual(t, len(base), 36+1+MaxStemBytes+1+MaxExtBytes)
			assert.True(t, utf8.ValidString(base), "got %q", base)

			f, err := os.Create(path)
			require.NoError(t, err)
			require.NoError(t, f.Close())
			require.NoError(t, area.Remove(path))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	// "é" is two bytes; a cut inside it backs off to the previous boundary
	assert.Equal(t, "é", Truncate("éé", 3))
	assert.Equal(t, "a", Truncate("a 日", 4))
}

func TestArea_PathIsUniqueUnderConcurrency(t *testing.T) {
	area := newTestArea(t)

	const n = 200
	paths := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := area.Path("same-asset", "pdf")
			assert.NoError(t, err)
			paths[i] = p
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate staged path %s", p)
		seen[p] = true
	}
}

func TestArea_Contains(t *testing.T) {
	area := newTestArea(t)

	assert.True(t, area.Contains(filepath.Join(area.Dir(), "a.pdf")))
	assert.False(t, area.Contains(area.Dir()))
	assert.False(t, area.Contains(filepath.Join(area.Dir(), "..", "a.pdf")))
	assert.False(t, area.Contains(area.Dir()+"-sibling/a.pdf"))
}

func TestArea_RemoveAndPending(t *testing.T) {
	area := newTestArea(t)
	require.NoError(t, area.Ensure())

	path, err := area.Path("doc", "pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	pending, err := area.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, pending)

	require.NoError(t, area.Remove(path))
	pending, err = area.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Removing twice is not an error
	assert.NoError(t, area.Remove(path))
	assert.NoError(t, area.Remove(""))

	assert.Error(t, area.Remove(filepath.Join(t.TempDir(), "elsewhere.pdf")))
}

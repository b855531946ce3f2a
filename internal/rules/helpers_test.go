package rules

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-media-extract/internal/config"
	"github.com/a3tai/mcp-media-extract/internal/media"
)

type fakeExtractor struct {
	value string
	ok    bool
	calls atomic.Int32
}

func newFakeExtractor(value string, ok bool) *fakeExtractor {
	return &fakeExtractor{value: value, ok: ok}
}

func (f *fakeExtractor) ComputeFieldValue(_ context.Context, _ media.Indexable) (string, bool) {
	f.calls.Add(1)
	return f.value, f.ok
}

func (f *fakeExtractor) Calls() int {
	return int(f.calls.Load())
}

type testAsset struct {
	id      string
	ext     string
	hasExt  bool
	mime    string
	hasMime bool
}

func assetWith(ext, mime string) *testAsset {
	return &testAsset{id: "asset-" + ext, ext: ext, hasExt: true, mime: mime, hasMime: true}
}

func (a *testAsset) ID() string                   { return a.id }
func (a *testAsset) Name() string                 { return a.id }
func (a *testAsset) Extension() (string, bool)    { return a.ext, a.hasExt }
func (a *testAsset) MimeType() (string, bool)     { return a.mime, a.hasMime }
func (a *testAsset) Language() string             { return "en" }
func (a *testAsset) Open() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("")), nil }

type plainIndexable string

func (p plainIndexable) ID() string { return string(p) }

func parseNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))
	return &node
}

func parseCatalog(t *testing.T, src string) *config.Catalog {
	t.Helper()
	catalog, err := config.ParseCatalog([]byte(src))
	require.NoError(t, err)
	return catalog
}

package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mediaerrors "github.com/a3tai/mcp-media-extract/internal/errors"
	"github.com/a3tai/mcp-media-extract/internal/logging"
	"github.com/a3tai/mcp-media-extract/internal/media"
)

func compileWith(t *testing.T, src string, deps CompileDeps) (*Table, error) {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logging.NewDiscard()
	}
	return Compile(parseNode(t, src), deps)
}

func TestCompile_EmptyConfiguration(t *testing.T) {
	def := newFakeExtractor("ocr", true)

	table, err := Compile(nil, CompileDeps{Default: def})
	require.NoError(t, err)
	assert.True(t, table.IsEmpty())

	table, err = compileWith(t, "", CompileDeps{Default: def})
	require.NoError(t, err)
	assert.True(t, table.IsEmpty())
}

func TestCompile_ExcludeWildcardRegistersIncludesExactly(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	src := `
mediaIndexing:
  extensions:
    includes: [pdf, png]
    excludes: ["*"]
  mimeTypes:
    includes: []
    excludes: []
`
	table, err := compileWith(t, src, CompileDeps{Default: def})
	require.NoError(t, err)

	for _, ext := range []string{"pdf", "png"} {
		extractor, ok := table.ByExtension(ext)
		require.True(t, ok, ext)
		assert.Same(t, def, extractor)
	}
	assert.Empty(t, table.Fallback())
}

func TestCompile_IncludeWildcardAddsFallback(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	src := `
mediaIndexing:
  extensions:
    includes: ["*"]
    excludes: [docx, xlsx]
  mimeTypes:
    includes: ["*"]
    excludes: []
`
	table, err := compileWith(t, src, CompileDeps{Default: def})
	require.NoError(t, err)

	assert.Len(t, table.Fallback(), 2)
	_, ok := table.ByExtension("*")
	assert.False(t, ok)
	assert.True(t, table.Excludes().HasExtension("DOCX"))
	assert.Equal(t, []string{"docx", "xlsx"}, table.Excludes().Extensions())
}

func TestCompile_SingleWildcardExcludeTakesPrecedence(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	src := `
mediaIndexing:
  extensions:
    includes: ["*"]
    excludes: ["*"]
  mimeTypes:
    includes: []
    excludes: []
`
	table, err := compileWith(t, src, CompileDeps{Default: def})
	require.NoError(t, err)

	assert.Empty(t, table.Fallback())
	_, ok := table.ByExtension("*")
	assert.True(t, ok)
}

func TestCompile_SingleNonWildcardRegistersNothing(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	src := `
mediaIndexing:
  extensions:
    includes: [pdf, png]
    excludes: [docx]
  mimeTypes:
    includes: [image/png]
    excludes: []
`
	table, err := compileWith(t, src, CompileDeps{Default: def})
	require.NoError(t, err)

	assert.True(t, table.IsEmpty())
	assert.True(t, table.Excludes().HasExtension("docx"))
}

func TestCompile_MultipleIncludesRegisteredIndividually(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	src := `
mediaIndexing:
  extensions:
    includes: [PDF, " Tiff "]
    excludes: []
  mimeTypes:
    includes: [application/pdf, image/tiff, image/png]
    excludes: [image/gif, image/bmp]
`
	table, err := compileWith(t, src, CompileDeps{Default: def})
	require.NoError(t, err)

	_, ok := table.ByExtension("pdf")
	assert.True(t, ok)
	_, ok = table.ByExtension("TIFF")
	assert.True(t, ok)
	for _, mime := range []string{"application/pdf", "image/tiff", "image/png"} {
		_, ok := table.ByMimeType(mime)
		assert.True(t, ok, mime)
	}
	assert.Empty(t, table.Fallback())
}

func TestCompile_TypedIncludes(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	pdfText := newFakeExtractor("native", true)

	registry := NewRegistry()
	require.NoError(t, registry.RegisterExtractor("pdftext", pdfText))
	require.NoError(t, registry.Register("broken", func() (media.Extractor, error) {
		return nil, errors.New("tessdata missing")
	}))

	src := `
mediaIndexing:
  extensions:
    includes:
      - {value: pdf, type: PdfText}
      - {value: jpg, type: nosuch}
      - {value: png, type: broken}
      - tif
    excludes: []
  mimeTypes:
    includes: []
    excludes: []
`
	table, err := compileWith(t, src, CompileDeps{Default: def, Registry: registry})
	require.Error(t, err)
	assert.ErrorIs(t, err, mediaerrors.ErrConfiguration)

	extractor, ok := table.ByExtension("pdf")
	require.True(t, ok)
	assert.Same(t, pdfText, extractor)

	for _, ext := range []string{"jpg", "png", "tif"} {
		extractor, ok := table.ByExtension(ext)
		require.True(t, ok, ext)
		assert.Same(t, def, extractor, ext)
	}

	rules := table.Rules()
	require.Len(t, rules, 4)
	assert.Equal(t, Rule{Key: "jpg", Kind: MatchExtension, KindName: "extension", Extractor: "tesseract"}, rules[0])
	assert.Equal(t, "pdftext", rules[1].Extractor)
}

func TestCompile_TypedIncludeWithoutRegistry(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	src := `
mediaIndexing:
  extensions:
    includes: [{value: pdf, type: pdftext}, png]
    excludes: []
  mimeTypes:
    includes: []
    excludes: []
`
	table, err := compileWith(t, src, CompileDeps{Default: def})
	assert.ErrorIs(t, err, mediaerrors.ErrConfiguration)

	extractor, ok := table.ByExtension("pdf")
	require.True(t, ok)
	assert.Same(t, def, extractor)
}

func TestCompile_DuplicateKeyLastWins(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	plain := newFakeExtractor("plain", true)
	registry := NewRegistry()
	require.NoError(t, registry.RegisterExtractor("plaintext", plain))

	src := `
mediaIndexing:
  extensions:
    includes: [txt, {value: TXT, type: plaintext}]
    excludes: []
  mimeTypes:
    includes: []
    excludes: []
`
	table, err := compileWith(t, src, CompileDeps{Default: def, Registry: registry})
	require.NoError(t, err)

	extractor, ok := table.ByExtension("txt")
	require.True(t, ok)
	assert.Same(t, plain, extractor)
}

func TestCompile_RefResolvesNamedFragment(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	catalog := parseCatalog(t, `
fragments:
  contentSearch/mediaIndexing:
    extensions:
      includes: ["*"]
      excludes: []
    mimeTypes:
      includes: [application/pdf, image/png]
      excludes: []
`)
	src := `
mediaIndexing:
  ref: contentSearch/mediaIndexing
`
	table, err := compileWith(t, src, CompileDeps{Default: def, Provider: catalog})
	require.NoError(t, err)

	assert.Len(t, table.Fallback(), 1)
	_, ok := table.ByMimeType("image/png")
	assert.True(t, ok)
}

func TestCompile_SectionErrors(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	catalog := parseCatalog(t, "settings: {}\n")

	tests := []struct {
		name string
		src  string
	}{
		{name: "empty_ref", src: "mediaIndexing:\n  ref: \"\"\n"},
		{name: "unresolved_ref", src: "mediaIndexing:\n  ref: missing/fragment\n"},
		{name: "no_section", src: "somethingElse: true\n"},
		{name: "no_children", src: "{}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := compileWith(t, tt.src, CompileDeps{Default: def, Provider: catalog})
			require.Error(t, err)
			assert.Equal(t, mediaerrors.KindConfiguration, mediaerrors.KindOf(err))
			require.NotNil(t, table)
			assert.True(t, table.IsEmpty())
		})
	}
}

func TestCompile_MissingListDoesNotAbortOthers(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	src := `
mediaIndexing:
  extensions:
    includes: [pdf, png]
  mimeTypes:
    includes: [image/jpeg, image/png]
    excludes:
`
	table, err := compileWith(t, src, CompileDeps{Default: def})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extensions/excludes node not found")
	assert.NotContains(t, err.Error(), "mimeTypes/excludes")

	_, ok := table.ByExtension("pdf")
	assert.True(t, ok)
	_, ok = table.ByMimeType("image/jpeg")
	assert.True(t, ok)
}

func TestCompile_InvalidListShape(t *testing.T) {
	def := newFakeExtractor("ocr", true)
	src := `
mediaIndexing:
  extensions:
    includes: pdf
    excludes: []
  mimeTypes:
    includes: [[nested]]
    excludes: []
`
	table, err := compileWith(t, src, CompileDeps{Default: def})
	require.Error(t, err)
	assert.True(t, table.IsEmpty())
}

func TestCompile_RequiresDefaultExtractor(t *testing.T) {
	table, err := compileWith(t, "mediaIndexing:\n  extensions: {includes: [pdf], excludes: []}\n", CompileDeps{})
	require.Error(t, err)
	assert.True(t, table.IsEmpty())
}

func TestEntry_UnmarshalYAML(t *testing.T) {
	var entries []Entry
	require.NoError(t, parseNode(t, "[pdf, {value: ' PNG ', type: pdftext}, '']").Decode(&entries))

	assert.Equal(t, []Entry{
		{Value: "pdf"},
		{Value: "PNG", Type: "pdftext"},
		{Value: ""},
	}, entries)
}

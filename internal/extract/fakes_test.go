package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-media-extract/internal/config"
	"github.com/a3tai/mcp-media-extract/internal/language"
	"github.com/a3tai/mcp-media-extract/internal/logging"
	"github.com/a3tai/mcp-media-extract/internal/ocr"
	"github.com/a3tai/mcp-media-extract/internal/pdf/wrapper"
)

// fakeLibrary builds documents from the staged file content. Each line is a
// page written as "native text|image content".
type fakeLibrary struct {
	openErr error
	textErr error
	saveErr error
	onText  func(index int)

	mu       sync.Mutex
	opened   []string
	rendered []wrapper.RenderOptions
	closed   atomic.Int32
}

func (l *fakeLibrary) GetTextBackend() wrapper.TextBackend { return wrapper.BackendLedongthuc }

func (l *fakeLibrary) Open(path string) (wrapper.Document, error) {
	if l.openErr != nil {
		return nil, l.openErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.opened = append(l.opened, path)
	l.mu.Unlock()

	doc := &fakeDocument{lib: l}
	for i, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		native, image, _ := strings.Cut(line, "|")
		doc.pages = append(doc.pages, &fakePage{lib: l, index: i, text: native, image: image})
	}
	return doc, nil
}

func (l *fakeLibrary) Opened() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.opened...)
}

type fakeDocument struct {
	lib   *fakeLibrary
	pages []*fakePage
}

func (d *fakeDocument) GetPageCount() int { return len(d.pages) }

func (d *fakeDocument) GetPage(index int) (wrapper.Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, wrapper.ErrInvalidPage
	}
	return d.pages[index], nil
}

func (d *fakeDocument) Close() error {
	d.lib.closed.Add(1)
	return nil
}

type fakePage struct {
	lib   *fakeLibrary
	index int
	text  string
	image string
}

func (p *fakePage) GetIndex() int { return p.index }

func (p *fakePage) GetText() (string, error) {
	if p.lib.onText != nil {
		p.lib.onText(p.index)
	}
	if p.lib.textErr != nil {
		return "", p.lib.textErr
	}
	return p.text, nil
}

func (p *fakePage) Save(path string, opts wrapper.RenderOptions) error {
	p.lib.mu.Lock()
	p.lib.rendered = append(p.lib.rendered, opts)
	p.lib.mu.Unlock()

	if p.lib.saveErr != nil {
		return p.lib.saveErr
	}
	return os.WriteFile(path, []byte(p.image), 0o600)
}

// fakeOCR recognizes an image file as "ocr(<file content>)".
type fakeOCR struct {
	newErr     error
	processErr error

	mu      sync.Mutex
	langs   []string
	paths   []string
	modes   []ocr.Mode
	images  []string
	created atomic.Int32
	closed  atomic.Int32
}

func (f *fakeOCR) NewEngine(dataPath, lang string, mode ocr.Mode) (ocr.Engine, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	f.created.Add(1)

	f.mu.Lock()
	f.langs = append(f.langs, lang)
	f.paths = append(f.paths, dataPath)
	f.modes = append(f.modes, mode)
	f.mu.Unlock()

	return &fakeOCREngine{owner: f}, nil
}

type fakeOCREngine struct {
	owner *fakeOCR
}

func (e *fakeOCREngine) Process(imagePath string) (ocr.Page, error) {
	if e.owner.processErr != nil {
		return ocr.Page{}, e.owner.processErr
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return ocr.Page{}, err
	}

	e.owner.mu.Lock()
	e.owner.images = append(e.owner.images, imagePath)
	e.owner.mu.Unlock()

	return ocr.Page{Text: fmt.Sprintf("ocr(%s)", data), MeanConfidence: 91.5}, nil
}

func (e *fakeOCREngine) Close() error {
	e.owner.closed.Add(1)
	return nil
}

// testAsset is an in-memory media asset
type testAsset struct {
	id        string
	name      string
	ext       string
	hasExt    bool
	lang      string
	content   []byte
	openErr   error
	nilStream bool
	readErr   error
}

func newAsset(name, ext, content string) *testAsset {
	return &testAsset{id: name + "." + ext, name: name, ext: ext, hasExt: true, lang: "en", content: []byte(content)}
}

func (a *testAsset) ID() string                { return a.id }
func (a *testAsset) Name() string              { return a.name }
func (a *testAsset) Extension() (string, bool) { return a.ext, a.hasExt }
func (a *testAsset) MimeType() (string, bool)  { return "", false }
func (a *testAsset) Language() string          { return a.lang }

func (a *testAsset) Open() (io.ReadCloser, error) {
	if a.openErr != nil {
		return nil, a.openErr
	}
	if a.nilStream {
		return nil, nil
	}
	var r io.Reader = bytes.NewReader(a.content)
	if a.readErr != nil {
		r = io.MultiReader(r, &failingReader{err: a.readErr})
	}
	return io.NopCloser(r), nil
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

var errBoom = errors.New("boom")

type engineFixture struct {
	engine  *Engine
	lib     *fakeLibrary
	ocr     *fakeOCR
	catalog *config.Catalog
	staging string
}

func newFixture(t *testing.T, catalogYAML string) *engineFixture {
	t.Helper()

	catalog := config.NewCatalog()
	if catalogYAML != "" {
		var err error
		catalog, err = config.ParseCatalog([]byte(catalogYAML))
		require.NoError(t, err)
	}
	stagingDir := t.TempDir() + "/media-indexing"
	catalog.SetDefault(config.SettingMediaIndexingFolder, stagingDir)
	catalog.SetDefault(config.SettingTessdataFolder, "/opt/tessdata")

	logger := logging.NewDiscard()
	lib := &fakeLibrary{}
	recognizer := &fakeOCR{}

	engine, err := NewEngine(Deps{
		Settings:  catalog,
		Languages: language.NewResolver(catalog, logger),
		PDF:       lib,
		OCR:       recognizer,
		Logger:    logger,
	})
	require.NoError(t, err)

	return &engineFixture{engine: engine, lib: lib, ocr: recognizer, catalog: catalog, staging: stagingDir}
}

// requireStagingEmpty asserts that no staged file survived the call
func (f *engineFixture) requireStagingEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.staging)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	require.Empty(t, entries)
}

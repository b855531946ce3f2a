package wrapper

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// fitzRenderer owns the MuPDF handle of a document. The handle is opened on
// first use so that documents whose pages all carry text never load MuPDF.
type fitzRenderer struct {
	path string

	mu     sync.Mutex
	doc    *fitz.Document
	closed bool
}

func newFitzRenderer(path string) *fitzRenderer {
	return &fitzRenderer{path: path}
}

func (r *fitzRenderer) document() (doc *fitz.Document, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, &WrapperError{Backend: BackendFitz, Op: "open", Err: ErrDocumentClosed}
	}
	if r.doc != nil {
		return r.doc, nil
	}

	defer recoverInto(&err, BackendFitz, "open")

	d, err := fitz.New(r.path)
	if err != nil {
		return nil, &WrapperError{
			Backend: BackendFitz,
			Op:      "open",
			Err:     fmt.Errorf("failed to open PDF: %w", err),
		}
	}
	r.doc = d
	return d, nil
}

// Save renders the page at index and writes it as PNG to path
func (r *fitzRenderer) Save(index int, path string, opts RenderOptions) (err error) {
	dpi, err := resolveDPI(opts)
	if err != nil {
		return err
	}

	doc, err := r.document()
	if err != nil {
		return err
	}

	defer recoverInto(&err, BackendFitz, "render")

	img, err := doc.ImageDPI(index, dpi)
	if err != nil {
		return &WrapperError{
			Backend: BackendFitz,
			Op:      "render",
			Err:     fmt.Errorf("page %d: %w", index+1, err),
		}
	}

	return writePNG(path, flatten(img, opts.Background))
}

// Close releases the MuPDF handle if it was opened
func (r *fitzRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.doc == nil {
		return nil
	}
	err := r.doc.Close()
	r.doc = nil
	return err
}

// resolveDPI returns the render DPI. MuPDF renders with a single scale factor,
// so differing horizontal and vertical resolutions are rejected.
func resolveDPI(opts RenderOptions) (float64, error) {
	h, v := opts.HorizontalResolution, opts.VerticalResolution
	switch {
	case h == 0 && v == 0:
		return DefaultResolution, nil
	case h < 0 || v < 0:
		return 0, &WrapperError{Backend: BackendFitz, Op: "render", Err: fmt.Errorf("negative resolution %gx%g", h, v)}
	case h == 0:
		return v, nil
	case v == 0 || h == v:
		return h, nil
	default:
		return 0, &WrapperError{Backend: BackendFitz, Op: "render", Err: fmt.Errorf("anisotropic resolution %gx%g not supported", h, v)}
	}
}

// flatten composites img over an opaque background
func flatten(img image.Image, background color.Color) *image.RGBA {
	if background == nil {
		background = color.White
	}
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Over)
	return canvas
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return &WrapperError{Backend: BackendFitz, Op: "save", Err: err}
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return &WrapperError{Backend: BackendFitz, Op: "save", Err: fmt.Errorf("failed to encode PNG: %w", err)}
	}

	if err := f.Close(); err != nil {
		return &WrapperError{Backend: BackendFitz, Op: "save", Err: err}
	}
	return nil
}

// FitzDocument reads both text and images through MuPDF
type FitzDocument struct {
	renderer *fitzRenderer
	doc      *fitz.Document
	pages    int
	closed   bool
}

func openFitzDocument(path string, renderer *fitzRenderer) (*FitzDocument, error) {
	doc, err := renderer.document()
	if err != nil {
		return nil, err
	}

	return &FitzDocument{
		renderer: renderer,
		doc:      doc,
		pages:    doc.NumPage(),
	}, nil
}

// GetPageCount returns the number of pages in the document
func (d *FitzDocument) GetPageCount() int {
	if d.closed {
		return 0
	}
	return d.pages
}

// GetPage returns the page at a zero-based index
func (d *FitzDocument) GetPage(index int) (Page, error) {
	if d.closed {
		return nil, &WrapperError{Backend: BackendFitz, Op: "get_page", Err: ErrDocumentClosed}
	}

	if index < 0 || index >= d.pages {
		return nil, &WrapperError{
			Backend: BackendFitz,
			Op:      "get_page",
			Err:     fmt.Errorf("%w: %d (document has %d pages)", ErrInvalidPage, index+1, d.pages),
		}
	}

	return &FitzPage{doc: d.doc, renderer: d.renderer, index: index}, nil
}

// Close releases the MuPDF handle
func (d *FitzDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.renderer.Close()
}

// FitzPage is a page read through MuPDF
type FitzPage struct {
	doc      *fitz.Document
	renderer *fitzRenderer
	index    int
}

// GetIndex returns the zero-based page index
func (p *FitzPage) GetIndex() int {
	return p.index
}

// GetText returns the plain text of the page
func (p *FitzPage) GetText() (text string, err error) {
	defer recoverInto(&err, BackendFitz, "get_text")

	text, err = p.doc.Text(p.index)
	if err != nil {
		return "", &WrapperError{
			Backend: BackendFitz,
			Op:      "get_text",
			Err:     fmt.Errorf("page %d: %w", p.index+1, err),
		}
	}
	return text, nil
}

// Save renders the page through the shared MuPDF handle
func (p *FitzPage) Save(path string, opts RenderOptions) error {
	return p.renderer.Save(p.index, path, opts)
}

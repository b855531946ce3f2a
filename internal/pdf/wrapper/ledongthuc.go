package wrapper

import (
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// LedongthucDocument reads embedded text with ledongthuc/pdf and delegates
// rasterization to MuPDF.
type LedongthucDocument struct {
	file   *os.File
	reader *pdf.Reader
	raster *fitzRenderer
	closed bool
}

func openLedongthucDocument(path string, raster *fitzRenderer) (doc *LedongthucDocument, err error) {
	defer recoverInto(&err, BackendLedongthuc, "open")

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &WrapperError{
			Backend: BackendLedongthuc,
			Op:      "open",
			Err:     fmt.Errorf("failed to open PDF: %w", err),
		}
	}

	return &LedongthucDocument{
		file:   f,
		reader: reader,
		raster: raster,
	}, nil
}

// GetPageCount returns the number of pages in the document
func (d *LedongthucDocument) GetPageCount() int {
	if d.closed {
		return 0
	}
	return d.reader.NumPage()
}

// GetPage returns the page at a zero-based index
func (d *LedongthucDocument) GetPage(index int) (Page, error) {
	if d.closed {
		return nil, &WrapperError{Backend: BackendLedongthuc, Op: "get_page", Err: ErrDocumentClosed}
	}

	if index < 0 || index >= d.reader.NumPage() {
		return nil, &WrapperError{
			Backend: BackendLedongthuc,
			Op:      "get_page",
			Err:     fmt.Errorf("%w: %d (document has %d pages)", ErrInvalidPage, index+1, d.reader.NumPage()),
		}
	}

	return &LedongthucPage{
		page:   d.reader.Page(index + 1),
		index:  index,
		raster: d.raster,
	}, nil
}

// Close closes the underlying file and the renderer
func (d *LedongthucDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var fileErr error
	rasterErr := d.raster.Close()
	if d.file != nil {
		fileErr = d.file.Close()
	}
	if err := errors.Join(rasterErr, fileErr); err != nil {
		return &WrapperError{Backend: BackendLedongthuc, Op: "close", Err: err}
	}
	return nil
}

// LedongthucPage is a page read through ledongthuc/pdf
type LedongthucPage struct {
	page   pdf.Page
	index  int
	raster *fitzRenderer
}

// GetIndex returns the zero-based page index
func (p *LedongthucPage) GetIndex() int {
	return p.index
}

// GetText returns the plain text of the page
func (p *LedongthucPage) GetText() (text string, err error) {
	defer recoverInto(&err, BackendLedongthuc, "get_text")

	if p.page.V.IsNull() {
		return "", nil
	}

	text, err = p.page.GetPlainText(nil)
	if err != nil {
		return "", &WrapperError{
			Backend: BackendLedongthuc,
			Op:      "get_text",
			Err:     fmt.Errorf("page %d: %w", p.index+1, err),
		}
	}
	return text, nil
}

// Save rasterizes the page through MuPDF
func (p *LedongthucPage) Save(path string, opts RenderOptions) error {
	return p.raster.Save(p.index, path, opts)
}

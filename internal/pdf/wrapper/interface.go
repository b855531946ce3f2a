package wrapper

import (
	"fmt"
	"image/color"
)

// Library opens PDF documents for page-wise text extraction and rendering
type Library interface {
	Open(path string) (Document, error)
	GetTextBackend() TextBackend
}

// Document is an open PDF. Close releases every resource acquired through it,
// including the renderer opened by Page.Save.
type Document interface {
	GetPageCount() int
	// GetPage returns the page at a zero-based index
	GetPage(index int) (Page, error)
	Close() error
}

// Page is a single page of an open Document
type Page interface {
	GetIndex() int
	// GetText returns the page's embedded text, "" for image-only pages
	GetText() (string, error)
	// Save rasterizes the page to a PNG file at path
	Save(path string, opts RenderOptions) error
}

// RenderOptions controls page rasterization
type RenderOptions struct {
	Background           color.Color
	HorizontalResolution float64 // DPI
	VerticalResolution   float64 // DPI
}

// DefaultResolution is the DPI used for OCR rasterization.
const DefaultResolution = 300

// DefaultRenderOptions returns 300 DPI rendering on a white background
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Background:           color.White,
		HorizontalResolution: DefaultResolution,
		VerticalResolution:   DefaultResolution,
	}
}

// TextBackend names the library used for embedded page text
type TextBackend string

const (
	BackendLedongthuc TextBackend = "ledongthuc"
	BackendFitz       TextBackend = "fitz"
	BackendPDFCPU     TextBackend = "pdfcpu" // validation only
)

// WrapperError is returned by every wrapper operation
type WrapperError struct {
	Backend TextBackend `json:"backend"`
	Op      string      `json:"operation"`
	Err     error       `json:"error"`
}

func (e *WrapperError) Error() string {
	return fmt.Sprintf("PDF %s backend error in %s: %v", e.Backend, e.Op, e.Err)
}

func (e *WrapperError) Unwrap() error {
	return e.Err
}

// Common error variables
var (
	ErrDocumentClosed = fmt.Errorf("document is closed")
	ErrInvalidPage    = fmt.Errorf("invalid page number")
)

// recoverInto converts a panic raised inside a PDF library into a WrapperError.
// Both ledongthuc/pdf and MuPDF bindings panic on some malformed inputs.
func recoverInto(err *error, backend TextBackend, op string) {
	if r := recover(); r != nil {
		*err = &WrapperError{Backend: backend, Op: op, Err: fmt.Errorf("panic: %v", r)}
	}
}

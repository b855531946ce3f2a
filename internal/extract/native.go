package extract

import (
	"context"

	"github.com/a3tai/mcp-media-extract/internal/media"
)

// PDFTextExtractor reads only the embedded text of PDF assets. Scanned pages
// contribute nothing and no OCR engine is ever created.
type PDFTextExtractor struct {
	engine *Engine
}

// NewPDFTextExtractor shares the staging setup of engine
func NewPDFTextExtractor(engine *Engine) *PDFTextExtractor {
	return &PDFTextExtractor{engine: engine}
}

// ComputeFieldValue returns the native text of a PDF asset
func (p *PDFTextExtractor) ComputeFieldValue(ctx context.Context, item media.Indexable) (string, bool) {
	return p.engine.run(ctx, item, false)
}

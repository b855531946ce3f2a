package extract

import (
	"github.com/ternarybob/arbor"

	"github.com/a3tai/mcp-media-extract/internal/rules"
)

// Names of the extractor types available to include entries.
const (
	TypeTesseract = "tesseract"
	TypePDFText   = "pdftext"
	TypePlainText = "plaintext"
)

// RegisterBuiltins adds the extractors of this package to registry
func RegisterBuiltins(registry *rules.Registry, engine *Engine, logger arbor.ILogger) error {
	if err := registry.RegisterExtractor(TypeTesseract, engine); err != nil {
		return err
	}
	if err := registry.RegisterExtractor(TypePDFText, NewPDFTextExtractor(engine)); err != nil {
		return err
	}
	return registry.RegisterExtractor(TypePlainText, NewPlainTextExtractor(0, logger))
}

package extract

import (
	"context"
	"fmt"
	"strings"

	mediaerrors "github.com/a3tai/mcp-media-extract/internal/errors"
	"github.com/a3tai/mcp-media-extract/internal/media"
	"github.com/a3tai/mcp-media-extract/internal/ocr"
	"github.com/a3tai/mcp-media-extract/internal/pdf/wrapper"
	"github.com/a3tai/mcp-media-extract/internal/staging"
)

// pdfExtraction carries the state of one PDF extraction. The OCR engine is
// created for the first page that needs it and shared by the later ones.
type pdfExtraction struct {
	e          *Engine
	asset      media.Asset
	ocrEnabled bool
	engine     ocr.Engine
}

// extractPDF reads every page of the staged document. Pages with native text
// use it; the others are rasterized and recognized.
func (e *Engine) extractPDF(ctx context.Context, asset media.Asset, path string, ocrEnabled bool) (string, error) {
	doc, err := e.pdfs.Open(path)
	if err != nil {
		return "", mediaerrors.Extraction("open_pdf", err)
	}
	defer doc.Close()

	x := &pdfExtraction{e: e, asset: asset, ocrEnabled: ocrEnabled}
	defer x.close()

	var text strings.Builder
	pages := doc.GetPageCount()
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", mediaerrors.Extraction("extract_pdf", err)
		}

		if text.Len() > 0 {
			text.WriteString(PageSeparator)
		}

		page, err := doc.GetPage(i)
		if err != nil {
			return "", mediaerrors.Extraction("get_page", err)
		}

		pageText, err := x.pageText(page)
		if err != nil {
			return "", err
		}
		text.WriteString(pageText)
	}

	e.logger.Debug().
		Str("asset", asset.ID()).
		Int("pages", pages).
		Int("characters", text.Len()).
		Msg("PDF text extracted")

	return text.String(), nil
}

func (x *pdfExtraction) pageText(page wrapper.Page) (string, error) {
	native, err := page.GetText()
	if err != nil {
		x.e.logger.Warn().Err(err).
			Str("asset", x.asset.ID()).
			Int("page", page.GetIndex()+1).
			Msg("Native text extraction failed, treating page as scanned")
		native = ""
	}
	if strings.TrimSpace(native) != "" {
		return native, nil
	}

	if !x.ocrEnabled {
		return "", nil
	}
	return x.recognizePage(page)
}

// recognizePage rasterizes the page to its own staged PNG and runs OCR on it.
// The image is removed before returning.
func (x *pdfExtraction) recognizePage(page wrapper.Page) (string, error) {
	// The name is shortened first so the page suffix survives the stem cap.
	name := staging.Truncate(x.asset.Name(), staging.MaxStemBytes-16)
	stem := fmt.Sprintf("%s-page_%d", name, page.GetIndex())
	imagePath, err := x.e.staging.Path(stem, "png")
	if err != nil {
		return "", mediaerrors.Extraction("rasterize", err)
	}
	defer x.e.staging.Remove(imagePath)

	if err := page.Save(imagePath, wrapper.DefaultRenderOptions()); err != nil {
		return "", mediaerrors.Extraction("rasterize", err)
	}

	if x.engine == nil {
		engine, err := x.e.newOCREngine(x.asset)
		if err != nil {
			return "", err
		}
		x.engine = engine
	}

	return x.e.recognize(x.engine, x.asset, imagePath)
}

func (x *pdfExtraction) close() {
	if x.engine == nil {
		return
	}
	if err := x.engine.Close(); err != nil {
		x.e.logger.Warn().Err(err).Str("asset", x.asset.ID()).Msg("Failed to close OCR engine")
	}
}

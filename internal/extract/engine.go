// Package extract turns media assets into searchable text. PDF pages that
// carry text are read natively, everything else goes through OCR.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/a3tai/mcp-media-extract/internal/config"
	mediaerrors "github.com/a3tai/mcp-media-extract/internal/errors"
	"github.com/a3tai/mcp-media-extract/internal/language"
	"github.com/a3tai/mcp-media-extract/internal/logging"
	"github.com/a3tai/mcp-media-extract/internal/media"
	"github.com/a3tai/mcp-media-extract/internal/ocr"
	"github.com/a3tai/mcp-media-extract/internal/pdf/wrapper"
	"github.com/a3tai/mcp-media-extract/internal/staging"
)

const (
	// CopyBufferSize is the chunk size used to stage asset streams.
	CopyBufferSize = 8 * 1024

	// PageSeparator is written between the texts of consecutive PDF pages.
	PageSeparator = "\n\n"

	pdfExtension = "pdf"
)

// Deps are the collaborators of an Engine
type Deps struct {
	Settings  config.Provider
	Languages *language.Resolver
	PDF       wrapper.Library
	OCR       ocr.Factory
	Logger    arbor.ILogger
}

// Engine is the default extractor. It stages each asset to a uniquely named
// file, extracts its text, and removes every file it created before
// returning. An Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	staging   *staging.Area
	languages *language.Resolver
	pdfs      wrapper.Library
	ocr       ocr.Factory
	tessdata  string
	mode      ocr.Mode
	logger    arbor.ILogger
}

// NewEngine creates an engine from the staging, tessdata and OCR mode
// settings of deps.Settings
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Settings == nil {
		return nil, mediaerrors.Configuration("new_engine", "settings provider is required")
	}
	if deps.PDF == nil || deps.OCR == nil {
		return nil, mediaerrors.Configuration("new_engine", "PDF library and OCR factory are required")
	}
	deps.Logger = logging.OrDiscard(deps.Logger)
	if deps.Languages == nil {
		deps.Languages = language.NewResolver(deps.Settings, deps.Logger)
	}

	folder := deps.Settings.Setting(config.SettingMediaIndexingFolder)
	if folder == "" {
		return nil, mediaerrors.Configuration("new_engine", "setting %s is not set", config.SettingMediaIndexingFolder)
	}
	area, err := staging.NewArea(folder, deps.Logger)
	if err != nil {
		return nil, mediaerrors.Configuration("new_engine", "invalid staging folder: %v", err)
	}

	mode, err := ocr.ParseMode(deps.Settings.Setting(config.SettingOCRMode))
	if err != nil {
		deps.Logger.Warn().Err(err).Msg("Invalid OCR mode, using auto")
		mode = ocr.ModeAuto
	}

	return &Engine{
		staging:   area,
		languages: deps.Languages,
		pdfs:      deps.PDF,
		ocr:       deps.OCR,
		tessdata:  deps.Settings.Setting(config.SettingTessdataFolder),
		mode:      mode,
		logger:    deps.Logger,
	}, nil
}

// StagingDir returns the directory assets are staged to
func (e *Engine) StagingDir() string {
	return e.staging.Dir()
}

// ComputeFieldValue extracts the text of item. Failures are logged and
// reported as absent.
func (e *Engine) ComputeFieldValue(ctx context.Context, item media.Indexable) (string, bool) {
	return e.run(ctx, item, true)
}

// run stages the asset and extracts it. With ocrEnabled false, PDF pages
// without native text contribute nothing and non-PDF assets are absent.
func (e *Engine) run(ctx context.Context, item media.Indexable, ocrEnabled bool) (string, bool) {
	asset, ok := item.(media.Asset)
	if !ok {
		e.logger.Warn().Msg("Item to index is not a media asset")
		return "", false
	}

	ext, ok := asset.Extension()
	if !ok {
		e.logger.Warn().Str("asset", asset.ID()).Msg("Asset has no extension field")
		return "", false
	}
	isPDF := strings.EqualFold(strings.TrimSpace(ext), pdfExtension)
	if !ocrEnabled && !isPDF {
		e.logger.Debug().Str("asset", asset.ID()).Str("extension", ext).Msg("Native extraction only supports PDF")
		return "", false
	}

	stagedPath, err := e.staging.Path(asset.Name(), ext)
	if err != nil {
		e.logger.Warn().Err(err).Str("asset", asset.ID()).Msg("Failed to allocate staging path")
		return "", false
	}
	defer e.staging.Remove(stagedPath)

	if err := e.stage(asset, stagedPath); err != nil {
		e.logger.Warn().Err(err).Str("asset", asset.ID()).Msg("Failed to stage asset")
		return "", false
	}

	var text string
	if isPDF {
		text, err = e.extractPDF(ctx, asset, stagedPath, ocrEnabled)
	} else {
		text, err = e.recognizeFile(asset, stagedPath)
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("asset", asset.ID()).Msg("Failed to extract text")
		return "", false
	}

	return text, true
}

// stage copies the asset stream to path
func (e *Engine) stage(asset media.Asset, path string) error {
	if err := e.staging.Ensure(); err != nil {
		return mediaerrors.Extraction("stage", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return mediaerrors.Extraction("stage", err)
	}
	defer file.Close()

	stream, err := asset.Open()
	if err != nil {
		return mediaerrors.Extraction("stage", fmt.Errorf("failed to open content stream: %w", err))
	}
	if stream == nil {
		return mediaerrors.AssetValidation("stage", "asset %s has no content stream", asset.ID())
	}
	defer stream.Close()

	buf := make([]byte, CopyBufferSize)
	if _, err := io.CopyBuffer(file, stream, buf); err != nil {
		return mediaerrors.Extraction("stage", fmt.Errorf("failed to copy content stream: %w", err))
	}

	if err := file.Sync(); err != nil {
		return mediaerrors.Extraction("stage", err)
	}
	return nil
}

// recognizeFile runs OCR over a staged image
func (e *Engine) recognizeFile(asset media.Asset, path string) (string, error) {
	engine, err := e.newOCREngine(asset)
	if err != nil {
		return "", err
	}
	defer engine.Close()

	return e.recognize(engine, asset, path)
}

func (e *Engine) newOCREngine(asset media.Asset) (ocr.Engine, error) {
	lang := e.languages.Resolve(asset.Language())

	engine, err := e.ocr.NewEngine(e.tessdata, lang, e.mode)
	if err != nil {
		return nil, mediaerrors.Extraction("new_ocr_engine", err)
	}
	return engine, nil
}

func (e *Engine) recognize(engine ocr.Engine, asset media.Asset, imagePath string) (string, error) {
	page, err := engine.Process(imagePath)
	if err != nil {
		return "", mediaerrors.Extraction("ocr", err)
	}

	e.logger.Debug().
		Str("asset", asset.ID()).
		Int("characters", len(page.Text)).
		Msgf("Mean confidence: %.2f", page.MeanConfidence)

	return page.Text, nil
}

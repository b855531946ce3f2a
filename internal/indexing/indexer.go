// Package indexing runs the extraction pipeline over files on disk.
package indexing

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-media-extract/internal/logging"
	"github.com/a3tai/mcp-media-extract/internal/media"
)

// DefaultWorkers bounds concurrent extractions when Options.Workers is unset.
const DefaultWorkers = 4

// Options configures an Indexer
type Options struct {
	Workers     int
	MaxFileSize int64
}

// Result is the outcome for one file
type Result struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Extension  string `json:"extension,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	Language   string `json:"language"`
	Indexed    bool   `json:"indexed"`
	Text       string `json:"text,omitempty"`
	Characters int    `json:"characters"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Report summarizes a directory run
type Report struct {
	Directory string   `json:"directory"`
	Total     int      `json:"total"`
	Indexed   int      `json:"indexed"`
	Absent    int      `json:"absent"`
	Results   []Result `json:"results"`
}

// Indexer feeds file assets to an extractor, usually the rule dispatcher
type Indexer struct {
	extractor media.Extractor
	options   Options
	logger    arbor.ILogger
}

// NewIndexer creates an indexer around extractor
func NewIndexer(extractor media.Extractor, options Options, logger arbor.ILogger) *Indexer {
	if options.Workers <= 0 {
		options.Workers = DefaultWorkers
	}
	return &Indexer{
		extractor: extractor,
		options:   options,
		logger:    logging.OrDiscard(logger),
	}
}

// IndexFile extracts the text of a single file
func (ix *Indexer) IndexFile(ctx context.Context, path string, opts ...media.FileOption) (Result, error) {
	asset, err := media.NewFileAsset(path, opts...)
	if err != nil {
		return Result{Path: path}, err
	}
	return ix.index(ctx, asset), nil
}

// IndexDirectory discovers files under dir and extracts them concurrently.
// Results are in walk order. A file that yields no text never affects the
// others; only context cancellation ends the run early.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string, limit int) (*Report, error) {
	files, err := Discover(dir, limit, ix.options.MaxFileSize)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Directory: dir,
		Total:     len(files),
		Results:   make([]Result, len(files)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.options.Workers)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				report.Results[i] = Result{Path: file.Path, Name: file.Name, Error: err.Error()}
				return err
			}

			asset, err := media.NewFileAsset(file.Path)
			if err != nil {
				ix.logger.Warn().Err(err).Str("path", file.Path).Msg("Skipping file")
				report.Results[i] = Result{Path: file.Path, Name: file.Name, Error: err.Error()}
				return nil
			}

			report.Results[i] = ix.index(gctx, asset)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("indexing of %s interrupted: %w", dir, err)
	}

	for _, r := range report.Results {
		if r.Indexed {
			report.Indexed++
		} else {
			report.Absent++
		}
	}

	ix.logger.Info().
		Str("directory", dir).
		Int("files", report.Total).
		Int("indexed", report.Indexed).
		Msg("Directory indexed")

	return report, nil
}

func (ix *Indexer) index(ctx context.Context, asset *media.FileAsset) Result {
	start := time.Now()

	result := Result{
		Path:     asset.ID(),
		Name:     asset.Name(),
		Language: asset.Language(),
	}
	result.Extension, _ = asset.Extension()
	result.MimeType, _ = asset.MimeType()

	text, ok := ix.extractor.ComputeFieldValue(ctx, asset)
	result.Indexed = ok
	if ok {
		result.Text = text
		result.Characters = len([]rune(text))
	}
	result.DurationMS = time.Since(start).Milliseconds()

	ix.logger.Debug().
		Str("path", result.Path).
		Str("mime_type", result.MimeType).
		Bool("indexed", ok).
		Msg("Asset processed")

	return result
}

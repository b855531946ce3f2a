package rules

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/a3tai/mcp-media-extract/internal/logging"
	"github.com/a3tai/mcp-media-extract/internal/media"
)

// Dispatcher routes an asset to the extractor selected by a Table. It is
// itself a media.Extractor and is safe for concurrent use.
type Dispatcher struct {
	table  *Table
	logger arbor.ILogger
}

// NewDispatcher creates a dispatcher over table. A nil table routes nothing.
func NewDispatcher(table *Table, logger arbor.ILogger) *Dispatcher {
	if table == nil {
		table = NewTable()
	}
	return &Dispatcher{
		table:  table,
		logger: logging.OrDiscard(logger),
	}
}

// Table returns the routing table
func (d *Dispatcher) Table() *Table {
	return d.table
}

// ComputeFieldValue selects an extractor by MIME type, then by extension, then
// walks the fallback chain. The selected extractor's result is returned as is.
func (d *Dispatcher) ComputeFieldValue(ctx context.Context, item media.Indexable) (string, bool) {
	asset, ok := item.(media.Asset)
	if !ok {
		return "", false
	}

	mimeType, hasMime := asset.MimeType()
	ext, hasExt := asset.Extension()

	if strings.TrimSpace(mimeType) != "" {
		if extractor, found := d.table.ByMimeType(mimeType); found {
			return extractor.ComputeFieldValue(ctx, item)
		}
	}

	if strings.TrimSpace(ext) != "" {
		if extractor, found := d.table.ByExtension(ext); found {
			return extractor.ComputeFieldValue(ctx, item)
		}
	}

	excludes := d.table.Excludes()
	for _, extractor := range d.table.Fallback() {
		if hasMime && hasExt && (excludes.HasExtension(ext) || excludes.HasMimeType(mimeType)) {
			d.logger.Warn().
				Str("asset", asset.ID()).
				Str("extension", ext).
				Str("mime_type", mimeType).
				Msg("Asset is excluded, fallback extractors skipped")
			return "", false
		}

		if value, ok := extractor.ComputeFieldValue(ctx, item); ok {
			return value, true
		}
	}

	return "", false
}

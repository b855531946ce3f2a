package extract

import (
	"context"
	"io"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/a3tai/mcp-media-extract/internal/logging"
	"github.com/a3tai/mcp-media-extract/internal/media"
)

// DefaultPlainTextLimit caps how much of a text asset is indexed.
const DefaultPlainTextLimit = 10 * 1024 * 1024

// PlainTextExtractor indexes the content stream of text assets as is
type PlainTextExtractor struct {
	limit  int64
	logger arbor.ILogger
}

// NewPlainTextExtractor creates an extractor reading at most limit bytes. A
// non-positive limit selects DefaultPlainTextLimit.
func NewPlainTextExtractor(limit int64, logger arbor.ILogger) *PlainTextExtractor {
	if limit <= 0 {
		limit = DefaultPlainTextLimit
	}
	return &PlainTextExtractor{limit: limit, logger: logging.OrDiscard(logger)}
}

// ComputeFieldValue returns the asset content when it is valid UTF-8
func (p *PlainTextExtractor) ComputeFieldValue(ctx context.Context, item media.Indexable) (string, bool) {
	asset, ok := item.(media.Asset)
	if !ok {
		return "", false
	}

	stream, err := asset.Open()
	if err != nil {
		p.logger.Warn().Err(err).Str("asset", asset.ID()).Msg("Failed to open content stream")
		return "", false
	}
	if stream == nil {
		p.logger.Warn().Str("asset", asset.ID()).Msg("Asset has no content stream")
		return "", false
	}
	defer stream.Close()

	// One byte past the limit tells a truncated stream from one that fits exactly
	data, err := io.ReadAll(io.LimitReader(stream, p.limit+1))
	if err != nil {
		p.logger.Warn().Err(err).Str("asset", asset.ID()).Msg("Failed to read content stream")
		return "", false
	}
	if int64(len(data)) > p.limit {
		data = trimPartialRune(data[:p.limit])
		p.logger.Warn().
			Str("asset", asset.ID()).
			Int64("limit", p.limit).
			Msg("Content exceeds the plain text limit, indexing the leading part only")
	}

	if !utf8.Valid(data) {
		p.logger.Debug().Str("asset", asset.ID()).Msg("Content is not valid UTF-8")
		return "", false
	}
	return string(data), true
}

// trimPartialRune drops a multi-byte sequence cut off at the end of data
func trimPartialRune(data []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		start := len(data) - i
		if !utf8.RuneStart(data[start]) {
			continue
		}
		if !utf8.FullRune(data[start:]) {
			return data[:start]
		}
		return data
	}
	return data
}

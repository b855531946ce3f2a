// Package media defines the host-facing view of an indexable media record and
// the extractor capability that turns one into searchable text.
package media

import (
	"context"
	"io"
)

// Indexable is any record the host hands to the indexing pipeline.
type Indexable interface {
	ID() string
}

// Asset is the read-only view of a media record. A false second return value
// means the field is absent on the record, which is distinct from present but
// empty.
type Asset interface {
	Indexable

	Name() string
	Extension() (string, bool)
	MimeType() (string, bool)
	Language() string

	// Open returns the asset's content stream. A nil reader with a nil error
	// means the record has no stream attached.
	Open() (io.ReadCloser, error)
}

// Extractor computes the text value of an indexed field. The boolean is false
// when no value could be produced; callers treat that as "absent", not as an
// error.
type Extractor interface {
	ComputeFieldValue(ctx context.Context, item Indexable) (string, bool)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, item Indexable) (string, bool)

// ComputeFieldValue calls f(ctx, item).
func (f ExtractorFunc) ComputeFieldValue(ctx context.Context, item Indexable) (string, bool) {
	return f(ctx, item)
}

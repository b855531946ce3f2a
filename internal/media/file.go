package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultLanguage is used for file assets that do not declare a language.
const DefaultLanguage = "en"

// FileAsset is an Asset backed by a file on disk.
type FileAsset struct {
	path      string
	name      string
	extension string
	mimeType  string
	language  string
}

// FileOption customizes a FileAsset
type FileOption func(*FileAsset)

// WithMimeType overrides MIME type detection
func WithMimeType(mimeType string) FileOption {
	return func(a *FileAsset) {
		a.mimeType = mimeType
	}
}

// WithLanguage sets the content language of the asset
func WithLanguage(language string) FileOption {
	return func(a *FileAsset) {
		if language != "" {
			a.language = language
		}
	}
}

// NewFileAsset creates an asset for the file at path. When no MIME type is
// supplied it is sniffed from the file content.
func NewFileAsset(path string, opts ...FileOption) (*FileAsset, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)

	a := &FileAsset{
		path:      path,
		name:      strings.TrimSuffix(base, ext),
		extension: strings.TrimPrefix(ext, "."),
		language:  DefaultLanguage,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.mimeType == "" {
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to detect MIME type: %w", err)
		}
		// Drop parameters such as "; charset=utf-8" so rule keys stay simple.
		a.mimeType = strings.TrimSpace(strings.SplitN(mt.String(), ";", 2)[0])
	}

	return a, nil
}

// ID returns the file path
func (a *FileAsset) ID() string { return a.path }

// Name returns the file name without extension
func (a *FileAsset) Name() string { return a.name }

// Extension returns the file extension without the leading dot. Files without
// an extension report it as absent.
func (a *FileAsset) Extension() (string, bool) {
	return a.extension, a.extension != ""
}

// MimeType returns the declared or detected MIME type
func (a *FileAsset) MimeType() (string, bool) {
	return a.mimeType, a.mimeType != ""
}

// Language returns the content language
func (a *FileAsset) Language() string { return a.language }

// Open opens the underlying file
func (a *FileAsset) Open() (io.ReadCloser, error) {
	return os.Open(a.path)
}

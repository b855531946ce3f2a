package wrapper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FactoryConfig contains configuration options for the factory
type FactoryConfig struct {
	// TextBackend selects the library used for embedded page text.
	// Rasterization always goes through MuPDF.
	TextBackend TextBackend `json:"text_backend"`

	// ValidateOnOpen runs a relaxed pdfcpu read before opening the document
	ValidateOnOpen bool `json:"validate_on_open"`

	// MaxFileSize limits the size of documents that are opened (in bytes)
	MaxFileSize int64 `json:"max_file_size"`
}

// DefaultFactoryConfig returns ledongthuc text with pdfcpu validation
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		TextBackend:    BackendLedongthuc,
		ValidateOnOpen: true,
		MaxFileSize:    100 * 1024 * 1024, // 100MB
	}
}

// NewLibrary creates a Library for the configured text backend
func NewLibrary(config FactoryConfig) (Library, error) {
	switch config.TextBackend {
	case BackendLedongthuc, BackendFitz:
		return &library{config: config}, nil
	case "":
		config.TextBackend = BackendLedongthuc
		return &library{config: config}, nil
	default:
		return nil, &WrapperError{
			Backend: config.TextBackend,
			Op:      "create",
			Err:     fmt.Errorf("unknown text backend: %s", config.TextBackend),
		}
	}
}

// GetSupportedBackends returns all text backends
func GetSupportedBackends() []TextBackend {
	return []TextBackend{BackendLedongthuc, BackendFitz}
}

type library struct {
	config FactoryConfig
}

// GetTextBackend returns the configured text backend
func (l *library) GetTextBackend() TextBackend {
	return l.config.TextBackend
}

// Open checks the file and opens it with the configured text backend
func (l *library) Open(path string) (Document, error) {
	if err := l.checkFile(path); err != nil {
		return nil, err
	}

	if l.config.ValidateOnOpen {
		if _, err := validateFile(path); err != nil {
			return nil, err
		}
	}

	raster := newFitzRenderer(path)

	switch l.config.TextBackend {
	case BackendFitz:
		return openFitzDocument(path, raster)
	default:
		return openLedongthucDocument(path, raster)
	}
}

// checkFile examines the file before any library touches it
func (l *library) checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &WrapperError{
			Backend: l.config.TextBackend,
			Op:      "open",
			Err:     fmt.Errorf("cannot access file: %w", err),
		}
	}

	if info.IsDir() {
		return &WrapperError{
			Backend: l.config.TextBackend,
			Op:      "open",
			Err:     fmt.Errorf("path is a directory, not a file: %s", path),
		}
	}

	if l.config.MaxFileSize > 0 && info.Size() > l.config.MaxFileSize {
		return &WrapperError{
			Backend: l.config.TextBackend,
			Op:      "open",
			Err:     fmt.Errorf("file size %d exceeds maximum %d", info.Size(), l.config.MaxFileSize),
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return &WrapperError{
			Backend: l.config.TextBackend,
			Op:      "open",
			Err:     fmt.Errorf("file does not have .pdf extension: %s", ext),
		}
	}

	return nil
}

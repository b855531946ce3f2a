// Package ocr wraps the Tesseract OCR engine.
package ocr

import (
	"fmt"
	"strings"
)

// Mode selects how Tesseract segments a page before recognition.
type Mode string

const (
	ModeAuto        Mode = "auto"
	ModeSingleBlock Mode = "single_block"
	ModeSparse      Mode = "sparse"
)

// ParseMode converts a configuration value to a Mode. Empty selects ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeSingleBlock:
		return ModeSingleBlock, nil
	case ModeSparse:
		return ModeSparse, nil
	default:
		return "", fmt.Errorf("unknown OCR mode: %s", s)
	}
}

// Page is the recognition result for one image.
type Page struct {
	Text           string
	MeanConfidence float64 // 0-100, 0 when no words were recognized
}

// Engine recognizes text in image files. An Engine is not safe for concurrent
// use; callers create one per extraction and Close it when done.
type Engine interface {
	// Process loads the image at imagePath and recognizes its text.
	Process(imagePath string) (Page, error)
	Close() error
}

// Factory creates engines for a tessdata folder and language.
type Factory interface {
	NewEngine(dataPath, language string, mode Mode) (Engine, error)
}

// FactoryFunc adapts a function to the Factory interface
type FactoryFunc func(dataPath, language string, mode Mode) (Engine, error)

// NewEngine calls f
func (f FactoryFunc) NewEngine(dataPath, language string, mode Mode) (Engine, error) {
	return f(dataPath, language, mode)
}

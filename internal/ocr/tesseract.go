package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractFactory creates gosseract-backed engines
type TesseractFactory struct{}

// NewTesseractFactory returns the default OCR factory
func NewTesseractFactory() *TesseractFactory {
	return &TesseractFactory{}
}

// NewEngine creates a Tesseract client configured for dataPath and language
func (f *TesseractFactory) NewEngine(dataPath, language string, mode Mode) (Engine, error) {
	client := gosseract.NewClient()

	if dataPath != "" {
		if err := client.SetTessdataPrefix(dataPath); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path %s: %w", dataPath, err)
		}
	}

	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language %s: %w", language, err)
	}

	if err := client.SetPageSegMode(pageSegMode(mode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode %s: %w", mode, err)
	}

	return &tesseractEngine{client: client}, nil
}

func pageSegMode(mode Mode) gosseract.PageSegMode {
	switch mode {
	case ModeSingleBlock:
		return gosseract.PSM_SINGLE_BLOCK
	case ModeSparse:
		return gosseract.PSM_SPARSE_TEXT
	default:
		return gosseract.PSM_AUTO
	}
}

type tesseractEngine struct {
	client *gosseract.Client
}

// Process recognizes the text of the image at imagePath
func (e *tesseractEngine) Process(imagePath string) (Page, error) {
	if err := e.client.SetImage(imagePath); err != nil {
		return Page{}, fmt.Errorf("failed to load image %s: %w", imagePath, err)
	}

	text, err := e.client.Text()
	if err != nil {
		return Page{}, fmt.Errorf("failed to recognize text: %w", err)
	}

	return Page{
		Text:           text,
		MeanConfidence: e.meanConfidence(),
	}, nil
}

// meanConfidence averages word confidences of the last recognized image. It is
// informational only, so failures yield 0.
func (e *tesseractEngine) meanConfidence() float64 {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}

	var total float64
	for _, b := range boxes {
		total += b.Confidence
	}
	return total / float64(len(boxes))
}

// Close releases the Tesseract client
func (e *tesseractEngine) Close() error {
	return e.client.Close()
}

package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine turns an encoded image into text
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

// TesseractEngine recognizes text with a fresh gosseract client per image
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed engine; no languages means "eng"
func NewTesseractEngine(languages ...string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{languages: languages, clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// NoopEngine never finds text; used when OCR is disabled
type NoopEngine struct{}

func (NoopEngine) Name() string { return "none" }

func (NoopEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	return "", nil
}

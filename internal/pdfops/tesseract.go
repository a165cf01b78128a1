package pdfops

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// tesseractClient is the production OCRClient backed by a local tesseract
// installation.
type tesseractClient struct {
	client *gosseract.Client
}

// NewTesseractClient creates an OCR client for the given languages.
// With no languages, tesseract's default applies.
func NewTesseractClient(languages ...string) (OCRClient, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR languages %v: %w", languages, err)
		}
	}
	return &tesseractClient{client: client}, nil
}

func (t *tesseractClient) Recognize(image []byte) (string, error) {
	if err := t.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image for OCR: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR recognition failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (t *tesseractClient) Close() error {
	return t.client.Close()
}

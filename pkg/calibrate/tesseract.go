package calibrate

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// TesseractReader reads single digits with Tesseract.
type TesseractReader struct {
	client *gosseract.Client
}

func NewTesseractReader() (*TesseractReader, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract language: %w", err)
	}
	_ = client.SetWhitelist("0123456789")
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract psm: %w", err)
	}
	return &TesseractReader{client: client}, nil
}

func (r *TesseractReader) ReadDigit(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode glyph: %w", err)
	}
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	return r.client.Text()
}

func (r *TesseractReader) Close() error {
	return r.client.Close()
}

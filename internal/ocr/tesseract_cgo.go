//go:build cgo

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
)

// tesseractEngine runs Tesseract in-process. A fresh client is created for
// every call because gosseract clients are not safe for concurrent use.
type tesseractEngine struct {
	languages []string
	psm       gosseract.PageSegMode
	prefix    string
	version   string
}

func newTesseract(cfg Config) (Engine, error) {
	e := &tesseractEngine{
		languages: strings.Split(cfg.languages(), "+"),
		psm:       gosseract.PageSegMode(cfg.pageSegMode()),
		prefix:    cfg.TessdataPrefix,
	}

	client, err := e.client()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err)
	}
	defer client.Close()

	e.version = client.Version()
	if e.version == "" {
		return nil, fmt.Errorf("%w: tesseract library reports no version", ErrRecognitionUnavailable)
	}
	return e, nil
}

func (e *tesseractEngine) Kind() Kind      { return KindTesseract }
func (e *tesseractEngine) Version() string { return e.version }

func (e *tesseractEngine) client() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if e.prefix != "" {
		if err := client.SetTessdataPrefix(e.prefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(e.languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(e.psm); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return client, nil
}

func (e *tesseractEngine) load(ctx context.Context, img image.Image) (*gosseract.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	client, err := e.client()
	if err != nil {
		return nil, err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return client, nil
}

// ExtractText performs OCR on an entire page image.
func (e *tesseractEngine) ExtractText(ctx context.Context, img image.Image) (string, error) {
	client, err := e.load(ctx, img)
	if err != nil {
		return "", err
	}
	defer client.Close()

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// Words returns word-level boxes using Tesseract's RIL_WORD iterator level.
// Empty words are filtered out.
func (e *tesseractEngine) Words(ctx context.Context, img image.Image) ([]Word, error) {
	client, err := e.load(ctx, img)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds:     boundsOf(box.Box),
		})
	}
	return words, nil
}

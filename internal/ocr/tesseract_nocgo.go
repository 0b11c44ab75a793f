//go:build !cgo

package ocr

import "fmt"

func newTesseract(Config) (Engine, error) {
	return nil, fmt.Errorf("%w: built without cgo, use tesseract-cli", ErrRecognitionUnavailable)
}

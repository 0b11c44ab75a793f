package ocr

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/ironsheep/thai-invoice-ocr/internal/detection"
	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

func boundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Word is one recognized word with its location and confidence.
type Word struct {
	Text string `json:"text"`

	// Confidence is the engine's confidence in the word, 0.0 to 1.0.
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// RegionText is the text recognized inside one detected text region.
type RegionText struct {
	Bounds detection.Bounds `json:"bounds"`
	Text   string           `json:"text"`
	Error  string           `json:"error,omitempty"`
}

// RegionPadding is the margin added around a region before recognition.
const RegionPadding = 4

// ExtractRegion recognizes the text inside r, grown by pad pixels.
//
// Cropping always produces a gray image anchored at the origin, so word
// boxes reported for the crop are offset by the crop origin.
func ExtractRegion(ctx context.Context, engine Engine, img image.Image, r image.Rectangle, pad int) (string, error) {
	cropped, err := imaging.Crop(img, r, pad)
	if err != nil {
		return "", err
	}
	text, err := engine.ExtractText(ctx, cropped)
	if err != nil {
		return "", fmt.Errorf("region %v: %w", r, err)
	}
	return strings.TrimSpace(text), nil
}

// ExtractRegions recognizes every region in order. A failing region is
// reported in its RegionText and does not stop the others; only context
// cancellation aborts the loop.
func ExtractRegions(ctx context.Context, engine Engine, img image.Image, regions []detection.TextRegion) ([]RegionText, error) {
	out := make([]RegionText, 0, len(regions))
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rt := RegionText{Bounds: region.Bounds}
		text, err := ExtractRegion(ctx, engine, img, region.Bounds.Rect(), RegionPadding)
		if err != nil {
			rt.Error = err.Error()
		} else {
			rt.Text = text
		}
		out = append(out, rt)
	}
	return out, nil
}

// OffsetWords shifts word boxes found in a crop back to page coordinates.
//
// For example, if the crop starts at (100, 50) and a word is detected at
// (10, 20) within it, the returned bounds start at (110, 70).
func OffsetWords(words []Word, origin image.Point) []Word {
	out := make([]Word, len(words))
	for i, w := range words {
		w.Bounds.X1 += origin.X
		w.Bounds.Y1 += origin.Y
		w.Bounds.X2 += origin.X
		w.Bounds.Y2 += origin.Y
		out[i] = w
	}
	return out
}

// writeTempPNG saves img to a temporary PNG file for tools that need a path.
// The caller removes the file.
func writeTempPNG(img image.Image, pattern string) (string, error) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write temp image: %w", err)
	}
	return path, nil
}

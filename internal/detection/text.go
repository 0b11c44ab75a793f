package detection

import (
	"image"
	"sort"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
)

// Bounds is an axis-aligned box in pixel coordinates.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the bounds to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

func boundsFromRect(r image.Rectangle) Bounds {
	return Bounds{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// TextRegion is a box that probably holds a line or block of text.
type TextRegion struct {
	Bounds      Bounds  `json:"bounds"`
	AspectRatio float64 `json:"aspect_ratio"`

	// Area is the number of mask pixels in the region, not the box area.
	Area int `json:"area"`
}

// TextRegionConfig holds the region filter settings.
type TextRegionConfig struct {
	// StrokeLength is the length of the directional opening kernels.
	StrokeLength int `toml:"stroke_length" json:"stroke_length"`

	// MinRegionArea is the area in pixels a region must exceed.
	MinRegionArea int `toml:"min_region_area" json:"min_region_area"`

	// MinAspect and MaxAspect bound width/height, both exclusive.
	MinAspect float64 `toml:"min_aspect" json:"min_aspect"`
	MaxAspect float64 `toml:"max_aspect" json:"max_aspect"`
}

// DefaultTextRegionConfig returns the standard region filter.
func DefaultTextRegionConfig() TextRegionConfig {
	return TextRegionConfig{
		StrokeLength:  25,
		MinRegionArea: 500,
		MinAspect:     0.1,
		MaxAspect:     20,
	}
}

// TextRegionDetector proposes text boxes from long horizontal and vertical
// strokes. It is safe for concurrent use.
type TextRegionDetector struct {
	cfg TextRegionConfig
}

// NewTextRegionDetector creates a detector with the given settings.
func NewTextRegionDetector(cfg TextRegionConfig) *TextRegionDetector {
	return &TextRegionDetector{cfg: cfg}
}

// Detect returns the text regions of gray ordered top to bottom, then left
// to right for boxes starting on the same row.
//
// # Algorithm
//
//  1. Inverted Otsu threshold so ink is foreground
//  2. Opening with StrokeLength x 1 to keep horizontal strokes
//  3. Opening with 1 x StrokeLength to keep vertical strokes
//  4. Blend both masks 0.5/0.5; any non-zero pixel is foreground
//  5. 8-connected components filtered by area and aspect ratio
func (d *TextRegionDetector) Detect(gray *image.Gray) []TextRegion {
	ink := imaging.BinaryInv(gray, imaging.Otsu(gray))
	horizontal := imaging.Opening(ink, imaging.Rect(d.cfg.StrokeLength, 1))
	vertical := imaging.Opening(ink, imaging.Rect(1, d.cfg.StrokeLength))
	mask := imaging.AddWeighted(horizontal, 0.5, vertical, 0.5, 0)

	regions := make([]TextRegion, 0)
	for _, c := range imaging.Components(mask, d.cfg.MinRegionArea+1) {
		w, h := c.Bounds.Dx(), c.Bounds.Dy()
		aspect := float64(w) / float64(h)
		if aspect <= d.cfg.MinAspect || aspect >= d.cfg.MaxAspect {
			continue
		}
		regions = append(regions, TextRegion{
			Bounds:      boundsFromRect(c.Bounds),
			AspectRatio: aspect,
			Area:        c.Area(),
		})
	}

	sort.SliceStable(regions, func(i, j int) bool {
		if regions[i].Bounds.Y != regions[j].Bounds.Y {
			return regions[i].Bounds.Y < regions[j].Bounds.Y
		}
		return regions[i].Bounds.X < regions[j].Bounds.X
	})
	return regions
}

// Rects returns the region boxes as image rectangles.
func Rects(regions []TextRegion) []image.Rectangle {
	rects := make([]image.Rectangle, len(regions))
	for i, r := range regions {
		rects[i] = r.Bounds.Rect()
	}
	return rects
}

package imaging

import (
	"errors"
	"image"
)

// ErrLoadFailure reports an image or document that could not be read.
var ErrLoadFailure = errors.New("load failure")

// Meta is the acquisition metadata carried by every page.
type Meta struct {
	// DocumentID identifies the source document the page came from.
	DocumentID string `json:"document_id"`

	// PageIndex is the 0-based position of the page within its document.
	PageIndex int `json:"page_index"`

	// DPI is the resolution the page was rasterized at. Zero when unknown.
	DPI int `json:"dpi"`
}

// PageImage is a single page raster plus its metadata.
//
// A PageImage is treated as immutable. Conditioning stages call Derive to
// produce a successor instead of writing into Image.
type PageImage struct {
	Image image.Image
	Meta  Meta
}

// NewPage wraps img with the given metadata.
func NewPage(img image.Image, meta Meta) PageImage {
	return PageImage{Image: img, Meta: meta}
}

// Derive returns a page sharing this page's metadata with a new raster.
func (p PageImage) Derive(img image.Image) PageImage {
	return PageImage{Image: img, Meta: p.Meta}
}

// Gray returns the page raster as a grayscale buffer anchored at the origin.
func (p PageImage) Gray() *image.Gray {
	return ToGray(p.Image)
}

// Empty reports whether the page has no usable pixels.
func (p PageImage) Empty() bool {
	return p.Image == nil || p.Image.Bounds().Empty()
}

// Size returns the page width and height in pixels.
func (p PageImage) Size() (int, int) {
	if p.Image == nil {
		return 0, 0
	}
	b := p.Image.Bounds()
	return b.Dx(), b.Dy()
}

package conditioning

import (
	"fmt"
	"image"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
)

// BinarizeParams are the threshold settings of one binarization profile.
type BinarizeParams struct {
	Block int     // adaptive neighborhood, odd
	C     float64 // subtracted from the local mean

	// MergeOtsu combines the adaptive result with a global Otsu threshold.
	// Where the two differ by more than MergeDiff the adaptive pixel wins.
	MergeOtsu bool
	MergeDiff int

	CloseSize  int
	MedianSize int
}

// BinarizeParamsFor returns the binarization settings for p.
func BinarizeParamsFor(p Profile) BinarizeParams {
	if p == Aggressive {
		return BinarizeParams{
			Block:      15,
			C:          10,
			MergeOtsu:  true,
			MergeDiff:  30,
			CloseSize:  2,
			MedianSize: 3,
		}
	}
	return BinarizeParams{
		Block:      25,
		C:          8,
		CloseSize:  1,
		MedianSize: 1,
	}
}

// Binarizer reduces a page to pure black (0) and white (255).
type Binarizer struct {
	profile Profile
	params  BinarizeParams
}

// NewBinarizer creates a binarizer for the given profile.
func NewBinarizer(p Profile) *Binarizer {
	return &Binarizer{profile: p, params: BinarizeParamsFor(p)}
}

// Profile returns the binarizer's profile.
func (b *Binarizer) Profile() Profile {
	return b.profile
}

// Binarize returns a binary successor of page. Every output pixel is 0 or
// 255. Running it again on its own output with the same profile leaves a
// gentle result unchanged.
func (b *Binarizer) Binarize(page imaging.PageImage) (imaging.PageImage, error) {
	if page.Empty() {
		return page, fmt.Errorf("%w: page %d has no pixels to binarize", imaging.ErrLoadFailure, page.Meta.PageIndex)
	}
	return page.Derive(b.apply(page.Gray())), nil
}

func (b *Binarizer) apply(gray *image.Gray) *image.Gray {
	p := b.params

	out := imaging.AdaptiveGaussian(gray, p.Block, p.C)
	if p.MergeOtsu {
		otsu := imaging.Binary(gray, imaging.Otsu(gray))
		out = imaging.MergeThresholds(out, otsu, p.MergeDiff)
	}

	out = imaging.Closing(out, imaging.Rect(p.CloseSize, p.CloseSize))
	return imaging.Median(out, p.MedianSize)
}

package conditioning

import (
	"fmt"
	"image"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
)

// EnhanceParams are the filter settings of one enhancement profile.
type EnhanceParams struct {
	MedianSize    int     // gentle denoise aperture
	DenoiseRadius float64 // aggressive denoise radius, 0 to use MedianSize
	ClipLimit     float64
	Tiles         int
	UnsharpSigma  float64 // 0 disables the unsharp mask
	UnsharpGain   float64
	LiftGain      float64 // 0 disables the linear lift
	LiftBias      float64
	Sharpen       bool
}

// ParamsFor returns the enhancement settings for p.
func ParamsFor(p Profile) EnhanceParams {
	if p == Aggressive {
		return EnhanceParams{
			DenoiseRadius: 2,
			ClipLimit:     2.0,
			Tiles:         8,
			Sharpen:       true,
		}
	}
	return EnhanceParams{
		MedianSize:   3,
		ClipLimit:    1.5,
		Tiles:        8,
		UnsharpSigma: 2.0,
		UnsharpGain:  1.5,
		LiftGain:     1.1,
		LiftBias:     5,
	}
}

// Enhancer improves legibility of a page before binarization.
type Enhancer struct {
	profile Profile
	params  EnhanceParams
}

// NewEnhancer creates an enhancer for the given profile.
func NewEnhancer(p Profile) *Enhancer {
	return &Enhancer{profile: p, params: ParamsFor(p)}
}

// Profile returns the enhancer's profile.
func (e *Enhancer) Profile() Profile {
	return e.profile
}

// Enhance returns a grayscale successor of page with the same dimensions.
//
// An empty page yields an error wrapping imaging.ErrLoadFailure.
func (e *Enhancer) Enhance(page imaging.PageImage) (imaging.PageImage, error) {
	if page.Empty() {
		return page, fmt.Errorf("%w: page %d has no pixels to enhance", imaging.ErrLoadFailure, page.Meta.PageIndex)
	}
	return page.Derive(e.apply(page.Gray())), nil
}

func (e *Enhancer) apply(gray *image.Gray) *image.Gray {
	p := e.params

	var out *image.Gray
	if p.DenoiseRadius > 0 {
		out = imaging.Denoise(gray, p.DenoiseRadius)
	} else {
		out = imaging.Median(gray, p.MedianSize)
	}

	out = imaging.CLAHE(out, p.ClipLimit, p.Tiles, p.Tiles)

	if p.UnsharpSigma > 0 {
		out = imaging.UnsharpMask(out, p.UnsharpSigma, p.UnsharpGain)
	}
	if p.Sharpen {
		out = imaging.Sharpen(out, imaging.SharpenKernel)
	}
	if p.LiftGain > 0 {
		out = imaging.ScaleAbs(out, p.LiftGain, p.LiftBias)
	}
	return out
}

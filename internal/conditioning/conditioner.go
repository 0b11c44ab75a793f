package conditioning

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/thai-invoice-ocr/internal/detection"
	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
	"github.com/ironsheep/thai-invoice-ocr/internal/logging"
)

// Options configure a Conditioner.
type Options struct {
	Profile Profile `toml:"profile" json:"profile"`

	// Deskew enables automatic orientation correction.
	Deskew bool `toml:"deskew" json:"deskew"`

	// ManualAngle, when set, replaces skew estimation with a fixed rotation.
	ManualAngle *float64 `toml:"manual_angle" json:"manual_angle,omitempty"`

	Orientation detection.OrientationConfig `toml:"orientation" json:"orientation"`
}

// DefaultOptions returns gentle conditioning with automatic deskew.
func DefaultOptions() Options {
	return Options{
		Profile:     Gentle,
		Deskew:      true,
		Orientation: detection.DefaultOrientationConfig(),
	}
}

// Result is a conditioned page plus what happened to it on the way.
type Result struct {
	// Page is the binarized page handed to recognition.
	Page imaging.PageImage

	// Enhanced is the page after enhancement and orientation correction,
	// before binarization. Engines that prefer gray input use it.
	Enhanced imaging.PageImage

	// EnhanceApplied is false when enhancement failed and the original
	// pixels were used instead.
	EnhanceApplied bool

	Orientation detection.OrientationEstimate
	Profile     Profile
}

// Conditioner runs enhancement, orientation correction and binarization
// with one profile. It is safe for concurrent use across pages.
type Conditioner struct {
	opts      Options
	enhancer  *Enhancer
	binarizer *Binarizer
	corrector *detection.OrientationCorrector
	log       *logrus.Entry
}

// New creates a Conditioner. A nil log discards output.
func New(opts Options, log *logrus.Entry) *Conditioner {
	return &Conditioner{
		opts:      opts,
		enhancer:  NewEnhancer(opts.Profile),
		binarizer: NewBinarizer(opts.Profile),
		corrector: detection.NewOrientationCorrector(opts.Orientation),
		log:       logging.OrNop(log),
	}
}

// Profile returns the profile shared by both stages.
func (c *Conditioner) Profile() Profile {
	return c.opts.Profile
}

// Condition prepares one page for recognition.
//
// The context is only checked before work starts; once a page is under way
// it runs to completion.
func (c *Conditioner) Condition(ctx context.Context, page imaging.PageImage) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := c.log.WithFields(logrus.Fields{
		"page":    page.Meta.PageIndex,
		"profile": c.opts.Profile.String(),
	})

	res := &Result{Profile: c.opts.Profile}

	enhanced, err := c.enhancer.Enhance(page)
	if err != nil {
		log.WithError(err).Warn("Enhancement failed, continuing with original page")
		enhanced = page
	} else {
		res.EnhanceApplied = true
	}

	oriented := enhanced
	switch {
	case c.opts.ManualAngle != nil:
		oriented, res.Orientation = c.corrector.CorrectManual(enhanced, *c.opts.ManualAngle)
	case c.opts.Deskew:
		if !enhanced.Empty() {
			oriented, res.Orientation = c.corrector.Correct(enhanced)
		}
	}
	log.WithFields(logrus.Fields{
		"angle":   res.Orientation.Angle,
		"status":  res.Orientation.Status.String(),
		"applied": res.Orientation.Applied,
	}).Debug("Orientation checked")
	res.Enhanced = oriented

	binary, err := c.binarizer.Binarize(oriented)
	if err != nil {
		return nil, fmt.Errorf("binarize page %d: %w", page.Meta.PageIndex, err)
	}
	res.Page = binary

	log.Debug("Page conditioned")
	return res, nil
}

// DetectTextRegions runs the text region detector over a conditioned page.
func DetectTextRegions(page imaging.PageImage, cfg detection.TextRegionConfig) []detection.TextRegion {
	if page.Empty() {
		return nil
	}
	return detection.NewTextRegionDetector(cfg).Detect(page.Gray())
}

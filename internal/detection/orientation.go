package detection

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
)

// maxSkew bounds the magnitude of any accepted angle sample in degrees.
const maxSkew = 45.0

// histogramBins is the number of 1 degree bins over [-45, 45).
const histogramBins = 90

// Status describes how an orientation estimate was reached.
type Status int

const (
	// NoSignal means neither sampler produced an angle. The estimate is 0
	// and the page is left as is. This is not an error.
	NoSignal Status = iota

	// BelowThreshold means an angle was found but it is too small to be
	// worth resampling the page for.
	BelowThreshold

	// Rotated means the page was rotated by the estimate.
	Rotated
)

var statusNames = map[Status]string{
	NoSignal:       "no_signal",
	BelowThreshold: "below_threshold",
	Rotated:        "rotated",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for st, n := range statusNames {
		if strings.EqualFold(n, name) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown orientation status %q", name)
}

// OrientationEstimate is the outcome of one skew estimation. It is never
// modified after it is returned.
type OrientationEstimate struct {
	// Angle is the estimated skew in degrees, in (-45, 45].
	Angle float64 `json:"angle"`

	// LineAngles are the samples contributed by the Hough line sampler.
	LineAngles []float64 `json:"line_angles"`

	// MorphAngles are the samples contributed by the blob sampler.
	MorphAngles []float64 `json:"morph_angles"`

	Status Status `json:"status"`

	// Applied reports whether the page returned with the estimate was
	// actually rotated.
	Applied bool `json:"applied"`

	// Manual is true when Angle came from the caller rather than the samplers.
	Manual bool `json:"manual,omitempty"`
}

// OrientationConfig holds the tunables of the skew estimator. The zero
// value is not useful; start from DefaultOrientationConfig.
type OrientationConfig struct {
	CannyLow       int `toml:"canny_low" json:"canny_low"`
	CannyHigh      int `toml:"canny_high" json:"canny_high"`
	HoughThreshold int `toml:"hough_threshold" json:"hough_threshold"`
	MaxLines       int `toml:"max_lines" json:"max_lines"`

	// CloseWidth is the width of the horizontal closing that fuses glyphs.
	CloseWidth int `toml:"close_width" json:"close_width"`

	// MinBlobArea is the area in pixels a fused blob must exceed to vote.
	MinBlobArea int `toml:"min_blob_area" json:"min_blob_area"`

	// MinRotation is the smallest |angle| in degrees that triggers rotation.
	MinRotation float64 `toml:"min_rotation" json:"min_rotation"`
}

// DefaultOrientationConfig returns the standard estimator settings.
func DefaultOrientationConfig() OrientationConfig {
	return OrientationConfig{
		CannyLow:       50,
		CannyHigh:      150,
		HoughThreshold: 100,
		MaxLines:       50,
		CloseWidth:     30,
		MinBlobArea:    500,
		MinRotation:    0.1,
	}
}

// OrientationCorrector estimates page skew and rotates pages level.
// It holds no per-page state and is safe for concurrent use.
type OrientationCorrector struct {
	cfg OrientationConfig
}

// NewOrientationCorrector creates a corrector with the given settings.
func NewOrientationCorrector(cfg OrientationConfig) *OrientationCorrector {
	return &OrientationCorrector{cfg: cfg}
}

// Config returns the corrector settings.
func (o *OrientationCorrector) Config() OrientationConfig {
	return o.cfg
}

// Estimate measures the skew of gray without rotating it. The returned
// Status is NoSignal or BelowThreshold/Rotated depending on whether the
// angle would trigger rotation; Applied is always false.
func (o *OrientationCorrector) Estimate(gray *image.Gray) OrientationEstimate {
	lines := LineAngles(gray, o.cfg)
	morph := BlobAngles(gray, o.cfg)

	est := OrientationEstimate{
		LineAngles:  lines,
		MorphAngles: morph,
		Status:      NoSignal,
	}

	pooled := make([]float64, 0, len(lines)+len(morph))
	pooled = append(pooled, lines...)
	pooled = append(pooled, morph...)
	if len(pooled) == 0 {
		return est
	}

	est.Angle = DominantAngle(pooled)
	est.Status = o.statusFor(est.Angle)
	return est
}

// Correct estimates the skew of page and returns a rotated successor when
// the angle is large enough. The input page is never modified.
func (o *OrientationCorrector) Correct(page imaging.PageImage) (imaging.PageImage, OrientationEstimate) {
	gray := page.Gray()
	est := o.Estimate(gray)
	if est.Status != Rotated {
		return page, est
	}
	est.Applied = true
	return page.Derive(imaging.Rotate(gray, est.Angle)), est
}

// CorrectManual rotates page by a caller supplied angle, skipping
// estimation entirely.
func (o *OrientationCorrector) CorrectManual(page imaging.PageImage, angle float64) (imaging.PageImage, OrientationEstimate) {
	est := OrientationEstimate{
		Angle:       angle,
		LineAngles:  []float64{},
		MorphAngles: []float64{},
		Status:      o.statusFor(angle),
		Manual:      true,
	}
	if est.Status != Rotated {
		return page, est
	}
	est.Applied = true
	return page.Derive(imaging.Rotate(page.Gray(), angle)), est
}

func (o *OrientationCorrector) statusFor(angle float64) Status {
	if math.Abs(angle) > o.cfg.MinRotation {
		return Rotated
	}
	return BelowThreshold
}

// DominantAngle pools samples into 1 degree bins over [-45, 45) and returns
// the midpoint of the fullest bin. Ties go to the lowest bin. Samples
// outside the range are ignored; with none left the result is 0.
func DominantAngle(samples []float64) float64 {
	var hist [histogramBins]int
	counted := 0
	for _, a := range samples {
		if a < -maxSkew || a >= maxSkew || math.IsNaN(a) {
			continue
		}
		bin := int(math.Floor(a + maxSkew))
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		hist[bin]++
		counted++
	}
	if counted == 0 {
		return 0
	}

	best := 0
	for i := 1; i < histogramBins; i++ {
		if hist[i] > hist[best] {
			best = i
		}
	}
	return -maxSkew + float64(best) + 0.5
}

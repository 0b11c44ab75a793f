package detection

import (
	"image"
	"math"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
)

// Line is a straight line found by the Hough transform.
type Line struct {
	// Rho is the distance of the line from the image origin in pixels.
	Rho float64 `json:"rho"`

	// AngleDegrees is the line direction relative to horizontal.
	AngleDegrees float64 `json:"angle_degrees"`

	// Votes is the number of edge pixels on the line.
	Votes int `json:"votes"`
}

// DetectLines returns up to cfg.MaxLines Hough lines of gray, strongest
// first.
func DetectLines(gray *image.Gray, cfg OrientationConfig) []Line {
	edges := imaging.Canny(gray, cfg.CannyLow, cfg.CannyHigh)
	peaks := imaging.HoughLines(edges, cfg.HoughThreshold, cfg.MaxLines)

	lines := make([]Line, 0, len(peaks))
	for _, p := range peaks {
		lines = append(lines, Line{
			Rho:          p.Rho,
			AngleDegrees: p.AngleDegrees(),
			Votes:        p.Votes,
		})
	}
	return lines
}

// LineAngles samples page skew from straight lines: ruled table borders,
// underlines and the baselines of long text rows.
func LineAngles(gray *image.Gray, cfg OrientationConfig) []float64 {
	angles := make([]float64, 0)
	for _, l := range DetectLines(gray, cfg) {
		if math.Abs(l.AngleDegrees) < maxSkew {
			angles = append(angles, l.AngleDegrees)
		}
	}
	return angles
}

package detection

import (
	"image"
	"math"

	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
)

// Blob is a fused run of ink and the rotated rectangle that encloses it.
type Blob struct {
	Bounds Bounds              `json:"bounds"`
	Area   int                 `json:"area"`
	Rect   imaging.RotatedRect `json:"rect"`
}

// DetectBlobs fuses characters into line-shaped blobs and returns those
// larger than cfg.MinBlobArea.
//
// Ink is made foreground with an inverted Otsu threshold before closing, so
// the closing joins dark glyphs instead of paper.
func DetectBlobs(gray *image.Gray, cfg OrientationConfig) []Blob {
	ink := imaging.BinaryInv(gray, imaging.Otsu(gray))
	fused := imaging.Closing(ink, imaging.Rect(cfg.CloseWidth, 1))

	blobs := make([]Blob, 0)
	for _, c := range imaging.Components(fused, cfg.MinBlobArea+1) {
		blobs = append(blobs, Blob{
			Bounds: boundsFromRect(c.Bounds),
			Area:   c.Area(),
			Rect:   imaging.MinAreaRect(c.Points),
		})
	}
	return blobs
}

// BlobAngles samples page skew from the orientation of fused text lines.
func BlobAngles(gray *image.Gray, cfg OrientationConfig) []float64 {
	angles := make([]float64, 0)
	for _, b := range DetectBlobs(gray, cfg) {
		a := b.Rect.SkewAngle()
		if math.Abs(a) < maxSkew {
			angles = append(angles, a)
		}
	}
	return angles
}

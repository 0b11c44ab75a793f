package imaging

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate turns src about its center so that a line at angle degrees ends
// up horizontal; a positive angle rotates the content counter-clockwise on
// screen. The canvas grows to hold the whole rotated page and exposed
// corners are filled with white.
//
// Resampling uses the Catmull-Rom cubic kernel.
func Rotate(src *image.Gray, degrees float64) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	absCos, absSin := math.Abs(cos), math.Abs(sin)

	newW := int(float64(h)*absSin + float64(w)*absCos)
	newH := int(float64(h)*absCos + float64(w)*absSin)
	newW, newH = maxInt(newW, 1), maxInt(newH, 1)

	dst := image.NewGray(image.Rect(0, 0, newW, newH))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	// dst = R(-θ)·(src - c) + c', with R(-θ) = [cos sin; -sin cos].
	cx, cy := float64(w)/2, float64(h)/2
	ncx, ncy := float64(newW)/2, float64(newH)/2
	s2d := f64.Aff3{
		cos, sin, ncx - (cos*cx + sin*cy),
		-sin, cos, ncy - (-sin*cx + cos*cy),
	}

	xdraw.CatmullRom.Transform(dst, s2d, src, src.Bounds(), xdraw.Over, nil)
	return dst
}

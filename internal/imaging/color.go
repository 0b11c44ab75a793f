package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ToGray converts any image to an 8-bit grayscale buffer anchored at (0,0).
//
// Gray inputs are copied. Color inputs are mapped through CIE L* lightness
// rather than the BT.601 luma sum: colored stamps and letterheads on Thai
// invoices keep their perceived weight against the paper, which keeps them
// from binarizing into solid black blocks.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
		return dst
	case *image.Gray16:
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
		return dst
	}

	// Lightness lookup keyed by packed RGB; scans repeat a small palette.
	cache := make(map[uint32]uint8, 1024)
	for y := 0; y < bounds.Dy(); y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, a := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			if a == 0 {
				row[x] = 255
				continue
			}
			key := (r>>8)<<16 | (g>>8)<<8 | b>>8
			if v, ok := cache[key]; ok {
				row[x] = v
				continue
			}
			v := lightness(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			cache[key] = v
			row[x] = v
		}
	}
	return dst
}

// lightness returns L* scaled to 0-255.
func lightness(r, g, b uint8) uint8 {
	if r == g && g == b {
		return r
	}
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	l, _, _ := c.Lab()
	return clampByte(l * 255)
}

// Invert returns the photographic negative of src.
func Invert(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		dst.Pix[i] = 255 - v
	}
	return dst
}

// AddWeighted computes alpha*a + beta*b + gamma per pixel with saturation.
// Both inputs must have the same size.
func AddWeighted(a *image.Gray, alpha float64, b *image.Gray, beta, gamma float64) *image.Gray {
	dst := image.NewGray(a.Rect)
	for i := range a.Pix {
		dst.Pix[i] = clampByte(alpha*float64(a.Pix[i]) + beta*float64(b.Pix[i]) + gamma)
	}
	return dst
}

// ScaleAbs applies the linear transform |alpha*v + beta| with saturation.
func ScaleAbs(src *image.Gray, alpha, beta float64) *image.Gray {
	var lut [256]uint8
	for v := range lut {
		lut[v] = clampByte(math.Abs(alpha*float64(v) + beta))
	}
	dst := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		dst.Pix[i] = lut[v]
	}
	return dst
}

// IsBinary reports whether every pixel is either 0 or 255.
func IsBinary(src *image.Gray) bool {
	for _, v := range src.Pix {
		if v != 0 && v != 255 {
			return false
		}
	}
	return true
}

// fromImage converts the RGBA-family outputs of the filter libraries back
// to a gray buffer by taking the red channel; callers only pass gray content.
func fromImage(img image.Image) *image.Gray {
	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < bounds.Dx(); x++ {
				dst.Pix[y*dst.Stride+x] = src.Pix[y*src.Stride+x*4]
			}
		}
	case *image.NRGBA:
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < bounds.Dx(); x++ {
				dst.Pix[y*dst.Stride+x] = src.Pix[y*src.Stride+x*4]
			}
		}
	default:
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < bounds.Dx(); x++ {
				dst.SetGray(x, y, color.GrayModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray))
			}
		}
	}
	return dst
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

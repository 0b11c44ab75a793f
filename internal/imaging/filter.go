package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Median applies a size×size median filter. Sizes below 3 return a copy,
// matching an aperture of 1 being the identity.
func Median(src *image.Gray, size int) *image.Gray {
	if size < 3 {
		return cloneGray(src)
	}
	return fromImage(effect.Median(src, float64(size/2)))
}

// GaussianBlur blurs src with a Gaussian of the given standard deviation.
func GaussianBlur(src *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return cloneGray(src)
	}
	return fromImage(imaging.Blur(src, sigma))
}

// Denoise removes scanner speckle with a wide median followed by a soft
// Gaussian pass. It is much stronger than Median(src, 3) and erodes thin
// strokes, so only the aggressive profile uses it.
func Denoise(src *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return cloneGray(src)
	}
	med := effect.Median(src, radius)
	return fromImage(blur.Gaussian(med, radius/2))
}

// UnsharpMask computes amount*src - (amount-1)*blur(src, sigma).
//
// With amount 1.5 this is the classic 1.5/-0.5 blend of an image and its
// blurred copy.
func UnsharpMask(src *image.Gray, sigma, amount float64) *image.Gray {
	blurred := GaussianBlur(src, sigma)
	return AddWeighted(src, amount, blurred, 1-amount, 0)
}

// SharpenKernel is the 3x3 high-boost kernel used by the aggressive profile.
var SharpenKernel = [9]float64{
	-1, -1, -1,
	-1, 9, -1,
	-1, -1, -1,
}

// Sharpen convolves src with a 3x3 kernel, clamping the result to 0-255.
func Sharpen(src *image.Gray, kernel [9]float64) *image.Gray {
	return fromImage(imaging.Convolve3x3(src, kernel, nil))
}

// CLAHE performs contrast-limited adaptive histogram equalization.
//
// The image is split into a tilesX×tilesY grid. Each tile's histogram is
// clipped at clipLimit times the mean bin height, the excess is spread over
// all bins, and the resulting mappings are bilinearly interpolated between
// tile centers.
func CLAHE(src *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return cloneGray(src)
	}
	tilesX = minInt(maxInt(tilesX, 1), w)
	tilesY = minInt(maxInt(tilesY, 1), h)
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY
	tilesX = (w + tileW - 1) / tileW
	tilesY = (h + tileH - 1) / tileH

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := minInt(x0+tileW, w), minInt(y0+tileH, h)
			luts[ty*tilesX+tx] = tileMapping(src, x0, y0, x1, y1, clipLimit)
		}
	}

	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := int(fy)
		if fy < 0 {
			ty0 = -1
		}
		wy := fy - float64(ty0)
		ty1 := minInt(ty0+1, tilesY-1)
		ty0 = maxInt(ty0, 0)

		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := int(fx)
			if fx < 0 {
				tx0 = -1
			}
			wx := fx - float64(tx0)
			tx1 := minInt(tx0+1, tilesX-1)
			tx0 = maxInt(tx0, 0)

			v := src.Pix[y*src.Stride+x]
			top := (1-wx)*float64(luts[ty0*tilesX+tx0][v]) + wx*float64(luts[ty0*tilesX+tx1][v])
			bottom := (1-wx)*float64(luts[ty1*tilesX+tx0][v]) + wx*float64(luts[ty1*tilesX+tx1][v])
			dst.Pix[y*dst.Stride+x] = clampByte((1-wy)*top + wy*bottom)
		}
	}
	return dst
}

// tileMapping builds the clipped equalization lookup for one tile.
func tileMapping(src *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	area := 0
	for y := y0; y < y1; y++ {
		row := src.Pix[y*src.Stride:]
		for x := x0; x < x1; x++ {
			hist[row[x]]++
			area++
		}
	}

	if clipLimit > 0 {
		limit := maxInt(int(clipLimit*float64(area)/256), 1)
		excess := 0
		for i := range hist {
			if hist[i] > limit {
				excess += hist[i] - limit
				hist[i] = limit
			}
		}
		batch := excess / 256
		residual := excess - batch*256
		for i := range hist {
			hist[i] += batch
		}
		if residual > 0 {
			step := maxInt(256/residual, 1)
			for i := 0; i < 256 && residual > 0; i += step {
				hist[i]++
				residual--
			}
		}
	}

	var lut [256]uint8
	scale := 255.0 / float64(maxInt(area, 1))
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = clampByte(float64(sum) * scale)
	}
	return lut
}

// cloneGray copies src into a fresh buffer anchored at the origin.
func cloneGray(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		off := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[off:off+w])
	}
	return dst
}

// Normalize returns src itself when it is already anchored at the origin
// with a tight stride, and a normalized copy otherwise.
func Normalize(src *image.Gray) *image.Gray {
	if src.Rect.Min == (image.Point{}) && src.Stride == src.Rect.Dx() {
		return src
	}
	return cloneGray(src)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

package imaging

import (
	"image"
	"math"
)

// Otsu returns the global threshold that maximizes between-class variance.
// Pixels strictly above the returned level belong to the bright class.
func Otsu(src *image.Gray) uint8 {
	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}
	total := len(src.Pix)
	if total == 0 {
		return 0
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var sumB, best float64
	weightB := 0
	level := 0
	for t := 0; t < 256; t++ {
		weightB += hist[t]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			level = t
		}
	}
	return uint8(level)
}

// Binary maps pixels above level to 255 and the rest to 0.
func Binary(src *image.Gray, level uint8) *image.Gray {
	var lut [256]uint8
	for v := int(level) + 1; v < 256; v++ {
		lut[v] = 255
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			out[x] = lut[row[x]]
		}
	}
	return dst
}

// BinaryInv maps pixels above level to 0 and the rest to 255.
func BinaryInv(src *image.Gray, level uint8) *image.Gray {
	return Invert(Binary(src, level))
}

// AdaptiveGaussian thresholds each pixel against the Gaussian-weighted mean
// of its block×block neighborhood minus c. Pixels above the local threshold
// become 255. Block must be odd and at least 3; even sizes are rounded up.
//
// The Gaussian sigma follows the usual derivation from the block size,
// 0.3*((block-1)/2 - 1) + 0.8, with replicated borders.
func AdaptiveGaussian(src *image.Gray, block int, c float64) *image.Gray {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	mean := separableGaussian(src, block, 0.3*(float64(block-1)*0.5-1)+0.8)

	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if float64(src.Pix[y*src.Stride+x]) > mean[i]-c {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// MergeThresholds combines two binary images: where they differ by more
// than maxDiff the preferred image wins, elsewhere the fallback is kept.
func MergeThresholds(preferred, fallback *image.Gray, maxDiff int) *image.Gray {
	dst := image.NewGray(preferred.Rect)
	for i := range preferred.Pix {
		a, b := int(preferred.Pix[i]), int(fallback.Pix[i])
		d := a - b
		if d < 0 {
			d = -d
		}
		if d > maxDiff {
			dst.Pix[i] = preferred.Pix[i]
		} else {
			dst.Pix[i] = fallback.Pix[i]
		}
	}
	return dst
}

// separableGaussian returns the Gaussian-smoothed image as floats using a
// size-tap kernel with replicated borders.
func separableGaussian(src *image.Gray, size int, sigma float64) []float64 {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	half := size / 2
	kernel := make([]float64, size)
	var ksum float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		ksum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= ksum
	}

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			var s float64
			for k := -half; k <= half; k++ {
				s += kernel[k+half] * float64(row[clamp(x+k, 0, w-1)])
			}
			tmp[y*w+x] = s
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var s float64
			for k := -half; k <= half; k++ {
				s += kernel[k+half] * tmp[clamp(y+k, 0, h-1)*w+x]
			}
			out[y*w+x] = s
		}
	}
	return out
}

package imaging

import "image"

// Kernel is a rectangular structuring element of Width×Height pixels
// anchored at its center (Width/2, Height/2).
type Kernel struct {
	Width  int
	Height int
}

// Rect returns a w×h rectangular kernel.
func Rect(w, h int) Kernel {
	return Kernel{Width: maxInt(w, 1), Height: maxInt(h, 1)}
}

func (k Kernel) identity() bool {
	return k.Width <= 1 && k.Height <= 1
}

// Erode replaces each pixel with the minimum over the kernel window.
// Pixels outside the image are ignored.
func Erode(src *image.Gray, k Kernel) *image.Gray {
	if k.identity() {
		return cloneGray(src)
	}
	return rankFilter(src, k, false, false)
}

// Dilate replaces each pixel with the maximum over the kernel window.
// Pixels outside the image are ignored.
func Dilate(src *image.Gray, k Kernel) *image.Gray {
	if k.identity() {
		return cloneGray(src)
	}
	return rankFilter(src, k, true, false)
}

// Opening is an erosion followed by a dilation. It removes bright structures
// smaller than the kernel.
//
// The dilation uses the reflected window, so even-sized kernels do not
// shift the image and opening twice equals opening once.
func Opening(src *image.Gray, k Kernel) *image.Gray {
	if k.identity() {
		return cloneGray(src)
	}
	return rankFilter(rankFilter(src, k, false, false), k, true, true)
}

// Closing is a dilation followed by an erosion with the reflected window. It
// fills dark gaps smaller than the kernel and is idempotent.
func Closing(src *image.Gray, k Kernel) *image.Gray {
	if k.identity() {
		return cloneGray(src)
	}
	return rankFilter(rankFilter(src, k, true, false), k, false, true)
}

// rankFilter runs a separable min or max filter, first along rows using the
// kernel width and then along columns using the kernel height. With
// reflected set the window is mirrored through the anchor.
func rankFilter(src *image.Gray, k Kernel, max, reflected bool) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	pick := func(a, b uint8) uint8 {
		if max == (b > a) {
			return b
		}
		return a
	}

	tmp := make([]uint8, w*h)
	left := k.Width / 2
	right := k.Width - 1 - left
	if reflected {
		left, right = right, left
	}
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			v := row[x]
			for dx := -left; dx <= right; dx++ {
				xx := x + dx
				if xx < 0 || xx >= w {
					continue
				}
				v = pick(v, row[xx])
			}
			tmp[y*w+x] = v
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	top := k.Height / 2
	bottom := k.Height - 1 - top
	if reflected {
		top, bottom = bottom, top
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := tmp[y*w+x]
			for dy := -top; dy <= bottom; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				v = pick(v, tmp[yy*w+x])
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

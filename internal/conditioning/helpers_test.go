package conditioning

import (
	"image"
	"image/color"
)

func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

func uniform(width, height int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	fillRect(img, img.Rect, v)
	return img
}

// thinStrokes draws 1-2 pixel strokes on white, like binarized print.
func thinStrokes() *image.Gray {
	img := uniform(120, 90, 255)
	for i := 0; i < 6; i++ {
		x := 10 + i*17
		fillRect(img, image.Rect(x, 10, x+2, 40), 0)
		fillRect(img, image.Rect(x-4, 50+i*5, x+10, 51+i*5), 0)
	}
	return img
}

func diffCount(a, b *image.Gray) int {
	n := 0
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			n++
		}
	}
	return n
}

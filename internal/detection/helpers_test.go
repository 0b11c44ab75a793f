package detection

import (
	"image"
	"image/color"
)

// fillRect paints r on img with v.
func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

// blankPage returns a white page.
func blankPage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	fillRect(img, img.Rect, 255)
	return img
}

// syntheticInvoice draws rows of word-sized ink blocks and a ruled line,
// roughly the layout of a printed invoice body.
func syntheticInvoice() *image.Gray {
	page := blankPage(500, 420)
	widths := []int{46, 62, 38, 70, 54, 44, 66}
	for row := 0; row < 8; row++ {
		y := 50 + row*40
		x := 40 + (row%3)*7
		for i := 0; x < 440; i++ {
			w := widths[(i+row)%len(widths)]
			fillRect(page, image.Rect(x, y, minInt(x+w, 460), y+14), 0)
			x += w + 9
		}
	}
	fillRect(page, image.Rect(40, 385, 460, 388), 0)
	return page
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

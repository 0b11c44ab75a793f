package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Annotate draws numbered box outlines over a copy of img. It is used to
// visualise detected text regions; boxes are numbered from 1 in order.
//
// boxColorHex is a "#RRGGBB" color; an invalid value falls back to red.
func Annotate(img image.Image, boxes []image.Rectangle, boxColorHex string) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	boxColor := color.RGBA{255, 0, 0, 255}
	if c, err := colorful.Hex(boxColorHex); err == nil {
		r, g, b := c.RGB255()
		boxColor = color.RGBA{r, g, b, 255}
	}

	labelColor := color.RGBA{255, 255, 255, 255}
	for i, box := range boxes {
		box = box.Add(bounds.Min).Intersect(bounds)
		if box.Empty() {
			continue
		}
		for x := box.Min.X; x < box.Max.X; x++ {
			result.Set(x, box.Min.Y, boxColor)
			result.Set(x, box.Max.Y-1, boxColor)
		}
		for y := box.Min.Y; y < box.Max.Y; y++ {
			result.Set(box.Min.X, y, boxColor)
			result.Set(box.Max.X-1, y, boxColor)
		}
		drawLabel(result, box.Min.X+2, box.Min.Y+2, strconv.Itoa(i+1), labelColor, boxColor)
	}
	return result
}

// drawLabel draws a small digit label at the given position using a 3x5
// pixel font.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if (image.Point{X: px, Y: py}).In(bounds) {
				img.Set(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if (image.Point{X: px, Y: py}).In(bounds) {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}

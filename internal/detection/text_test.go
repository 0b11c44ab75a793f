package detection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regionTestPage() *image.Gray {
	page := blankPage(500, 420)
	fillRect(page, image.Rect(300, 150, 340, 190), 0) // square block
	fillRect(page, image.Rect(50, 40, 250, 60), 0)    // text line
	fillRect(page, image.Rect(420, 100, 430, 300), 0) // vertical rule, too thin
	fillRect(page, image.Rect(400, 380, 410, 385), 0) // speck
	fillRect(page, image.Rect(20, 350, 480, 353), 0)  // long rule, too wide
	return page
}

func TestTextRegionDetector_Detect(t *testing.T) {
	d := NewTextRegionDetector(DefaultTextRegionConfig())
	regions := d.Detect(regionTestPage())

	require.Len(t, regions, 2)
	assert.Equal(t, Bounds{X: 50, Y: 40, Width: 200, Height: 20}, regions[0].Bounds)
	assert.InDelta(t, 10.0, regions[0].AspectRatio, 1e-9)
	assert.Equal(t, 4000, regions[0].Area)

	assert.Equal(t, Bounds{X: 300, Y: 150, Width: 40, Height: 40}, regions[1].Bounds)
	assert.InDelta(t, 1.0, regions[1].AspectRatio, 1e-9)
}

func TestTextRegionDetector_SortedTopToBottom(t *testing.T) {
	page := blankPage(400, 300)
	fillRect(page, image.Rect(200, 200, 300, 230), 0)
	fillRect(page, image.Rect(20, 50, 120, 80), 0)
	fillRect(page, image.Rect(200, 50, 300, 80), 0)

	regions := NewTextRegionDetector(DefaultTextRegionConfig()).Detect(page)
	require.Len(t, regions, 3)
	assert.Equal(t, 20, regions[0].Bounds.X)
	assert.Equal(t, 200, regions[1].Bounds.X)
	assert.Equal(t, 50, regions[1].Bounds.Y)
	assert.Equal(t, 200, regions[2].Bounds.Y)
}

func TestTextRegionDetector_BlankPage(t *testing.T) {
	regions := NewTextRegionDetector(DefaultTextRegionConfig()).Detect(blankPage(100, 100))
	assert.Empty(t, regions)
}

func TestTextRegionDetector_AreaIsConfigurable(t *testing.T) {
	cfg := DefaultTextRegionConfig()
	cfg.MinRegionArea = 5000
	regions := NewTextRegionDetector(cfg).Detect(regionTestPage())
	assert.Empty(t, regions)
}

func TestRects(t *testing.T) {
	rects := Rects([]TextRegion{{Bounds: Bounds{X: 1, Y: 2, Width: 3, Height: 4}}})
	assert.Equal(t, []image.Rectangle{image.Rect(1, 2, 4, 6)}, rects)
}

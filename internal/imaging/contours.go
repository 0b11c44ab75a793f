package imaging

import (
	"image"
	"math"
	"sort"
)

// Component is an 8-connected group of foreground (non-zero) pixels.
type Component struct {
	// Points lists every pixel of the component.
	Points []image.Point

	// Bounds is the axis-aligned bounding box, Max exclusive.
	Bounds image.Rectangle
}

// Area returns the number of pixels in the component.
func (c Component) Area() int {
	return len(c.Points)
}

// Components finds the 8-connected foreground components of a binary image.
//
// Components smaller than minPixels are discarded. The returned slice is
// ordered by the position of each component's first pixel in raster order.
func Components(bin *image.Gray, minPixels int) []Component {
	width := bin.Rect.Dx()
	height := bin.Rect.Dy()
	visited := make([]bool, width*height)

	components := make([]Component, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if bin.Pix[y*bin.Stride+x] == 0 || visited[y*width+x] {
				continue
			}
			points := floodFill(bin, visited, x, y, width, height)
			if len(points) < minPixels {
				continue
			}
			components = append(components, Component{
				Points: points,
				Bounds: boundsOf(points),
			})
		}
	}
	return components
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large components. Uses 8-connectivity.
func floodFill(bin *image.Gray, visited []bool, startX, startY, width, height int) []image.Point {
	points := make([]image.Point, 0, 64)
	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		points = append(points, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				if visited[ny*width+nx] || bin.Pix[ny*bin.Stride+nx] == 0 {
					continue
				}
				visited[ny*width+nx] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return points
}

func boundsOf(points []image.Point) image.Rectangle {
	r := image.Rect(points[0].X, points[0].Y, points[0].X+1, points[0].Y+1)
	for _, p := range points[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X+1 > r.Max.X {
			r.Max.X = p.X + 1
		}
		if p.Y+1 > r.Max.Y {
			r.Max.Y = p.Y + 1
		}
	}
	return r
}

// RotatedRect is a rectangle of Width×Height centred on (CX, CY) whose
// Width side makes Angle degrees with the x axis.
type RotatedRect struct {
	CX     float64 `json:"cx"`
	CY     float64 `json:"cy"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
}

// Area returns Width*Height.
func (r RotatedRect) Area() float64 {
	return r.Width * r.Height
}

// SkewAngle returns the rectangle orientation folded into (-45, 45].
// Both side directions fold to the same value.
func (r RotatedRect) SkewAngle() float64 {
	return foldAngle(r.Angle)
}

// foldAngle maps an undirected line angle into (-45, 45].
func foldAngle(a float64) float64 {
	a = math.Mod(a, 90)
	if a > 45 {
		a -= 90
	} else if a <= -45 {
		a += 90
	}
	return a
}

// MinAreaRect returns the minimum-area rotated rectangle enclosing points,
// computed with rotating calipers over the convex hull. Pixel points are
// treated as unit squares so a single row of pixels has height 1.
func MinAreaRect(points []image.Point) RotatedRect {
	if len(points) == 0 {
		return RotatedRect{}
	}

	corners := make([]image.Point, 0, len(points)*4)
	for _, p := range points {
		corners = append(corners,
			p, image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1}, image.Point{X: p.X + 1, Y: p.Y + 1})
	}
	hull := convexHull(corners)

	best := RotatedRect{Width: math.Inf(1), Height: 1}
	bestArea := math.Inf(1)
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		ex, ey := float64(b.X-a.X), float64(b.Y-a.Y)
		norm := math.Hypot(ex, ey)
		if norm == 0 {
			continue
		}
		ux, uy := ex/norm, ey/norm

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			u := float64(p.X)*ux + float64(p.Y)*uy
			v := -float64(p.X)*uy + float64(p.Y)*ux
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		w, h := maxU-minU, maxV-minV
		if area := w * h; area < bestArea {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			best = RotatedRect{
				CX:     cu*ux - cv*uy,
				CY:     cu*uy + cv*ux,
				Width:  w,
				Height: h,
				Angle:  math.Atan2(uy, ux) * 180 / math.Pi,
			}
		}
	}
	return best
}

// convexHull returns the hull of pts in counter-clockwise order using the
// monotone chain algorithm. Collinear points are dropped.
func convexHull(pts []image.Point) []image.Point {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return append([]image.Point(nil), uniq...)
	}

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(uniq))
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

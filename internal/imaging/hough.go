package imaging

import (
	"image"
	"math"
	"sort"
)

// HoughLine is a line in normal form: x*cos(Theta) + y*sin(Theta) = Rho.
type HoughLine struct {
	Rho   float64 `json:"rho"`
	Theta float64 `json:"theta"` // radians in [0, π)
	Votes int     `json:"votes"`
}

// AngleDegrees returns the line direction relative to horizontal in
// degrees, in the image frame. A horizontal line has Theta = π/2 and an
// angle of 0.
func (l HoughLine) AngleDegrees() float64 {
	return l.Theta*180/math.Pi - 90
}

// HoughLines runs the standard Hough line transform over a binary edge map
// with 1 pixel rho resolution and 1 degree theta resolution.
//
// Accumulator cells with at least threshold votes that are local maxima in
// their 5x5 neighborhood become lines. Lines are returned strongest first
// and capped at maxLines when maxLines > 0.
func HoughLines(edges *image.Gray, threshold, maxLines int) []HoughLine {
	width := edges.Rect.Dx()
	height := edges.Rect.Dy()

	maxDist := int(math.Sqrt(float64(width*width+height*height))) + 1
	numAngles := 180
	cosTable := make([]float64, numAngles)
	sinTable := make([]float64, numAngles)
	for t := 0; t < numAngles; t++ {
		angle := float64(t) * math.Pi / 180.0
		cosTable[t] = math.Cos(angle)
		sinTable[t] = math.Sin(angle)
	}

	accumulator := make([][]int, maxDist*2)
	for i := range accumulator {
		accumulator[i] = make([]int, numAngles)
	}

	// Vote in Hough space
	for y := 0; y < height; y++ {
		row := edges.Pix[y*edges.Stride:]
		for x := 0; x < width; x++ {
			if row[x] == 0 {
				continue
			}
			for theta := 0; theta < numAngles; theta++ {
				rho := float64(x)*cosTable[theta] + float64(y)*sinTable[theta]
				rhoIdx := int(math.Round(rho)) + maxDist
				if rhoIdx >= 0 && rhoIdx < maxDist*2 {
					accumulator[rhoIdx][theta]++
				}
			}
		}
	}

	lines := make([]HoughLine, 0)
	for rhoIdx := 0; rhoIdx < maxDist*2; rhoIdx++ {
		for theta := 0; theta < numAngles; theta++ {
			votes := accumulator[rhoIdx][theta]
			if votes < threshold || votes == 0 {
				continue
			}
			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nr, nt := rhoIdx+dr, theta+dt
					if nr < 0 || nr >= maxDist*2 || nt < 0 || nt >= numAngles {
						continue
					}
					n := accumulator[nr][nt]
					// Ties go to the earlier cell so plateaus yield one peak.
					if n > votes || (n == votes && (dr < 0 || (dr == 0 && dt < 0))) {
						isMax = false
					}
				}
			}
			if isMax {
				lines = append(lines, HoughLine{
					Rho:   float64(rhoIdx - maxDist),
					Theta: float64(theta) * math.Pi / 180.0,
					Votes: votes,
				})
			}
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Votes > lines[j].Votes
	})

	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

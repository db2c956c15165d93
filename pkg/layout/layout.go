// Package layout places banner text on a canvas: alignment and offset
// math, collision avoidance between fields, the shrinking font ladder,
// and the banner and gradient rectangles behind the text.
package layout

import "math"

// Font size bounds after canvas scaling.
const (
	MinFontSize = 8
	MaxFontSize = 320
)

// Rect is a pixel rectangle with an exclusive right/bottom edge.
type Rect struct {
	Left, Top, Right, Bottom int
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// FontScaleForCanvas scales template font sizes with the canvas, biased
// toward the short edge so portrait and landscape frames get similar
// text weight.
func FontScaleForCanvas(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 1.0
	}
	shortEdge := float64(min(width, height))
	longEdge := float64(max(width, height))
	scale := (shortEdge/900.0)*0.68 + (longEdge/1600.0)*0.32
	return math.Max(0.72, math.Min(2.25, scale))
}

// ScaledFontSize applies the canvas scale to a base size and clamps the
// result to the renderable range.
func ScaledFontSize(base int, scale float64) int {
	size := int(math.Round(float64(base) * scale))
	if size < MinFontSize {
		return MinFontSize
	}
	if size > MaxFontSize {
		return MaxFontSize
	}
	return size
}

// TextGap is the minimum spacing kept between fields.
func TextGap(width, height int) int {
	return max(4, int(math.Round(float64(min(width, height))*0.006)))
}

// ComputePosition resolves a field's anchor into the top-left corner of
// its text box. Offsets are fractions of the canvas dimension, signed
// away from the anchor edge.
func ComputePosition(canvasWidth, canvasHeight, textWidth, textHeight int, alignH, alignV string, xOffset, yOffset float64) (int, int) {
	var x int
	switch alignH {
	case "center":
		anchorX := int(math.Round(float64(canvasWidth)*0.5 + float64(canvasWidth)*xOffset))
		x = anchorX - textWidth/2
	case "right":
		anchorX := int(math.Round(float64(canvasWidth) + float64(canvasWidth)*xOffset))
		x = anchorX - textWidth
	default:
		x = int(math.Round(float64(canvasWidth) * xOffset))
	}
	var y int
	switch alignV {
	case "center":
		anchorY := int(math.Round(float64(canvasHeight)*0.5 + float64(canvasHeight)*yOffset))
		y = anchorY - textHeight/2
	case "bottom":
		anchorY := int(math.Round(float64(canvasHeight) + float64(canvasHeight)*yOffset))
		y = anchorY - textHeight
	default:
		y = int(math.Round(float64(canvasHeight) * yOffset))
	}
	return x, y
}

// RectsOverlap reports whether two text boxes collide when kept gap
// pixels apart.
func RectsOverlap(a, b Rect, gap int) bool {
	return !(a.Right+gap <= b.Left ||
		b.Right+gap <= a.Left ||
		a.Bottom+gap <= b.Top ||
		b.Bottom+gap <= a.Top)
}

// PlaceWithAvoidance nudges a text box away from the already-occupied
// boxes, searching first along the axis pointing into the canvas. The
// returned flag reports whether a collision-free spot was found; when
// none exists the least-bad position wins, scored by collision count
// and then by distance from the requested point.
func PlaceWithAvoidance(baseX, baseY, textWidth, textHeight, canvasWidth, canvasHeight int, alignH, alignV string, occupied []Rect, gap int) (int, int, Rect, bool) {
	maxX := max(0, canvasWidth-textWidth)
	maxY := max(0, canvasHeight-textHeight)
	originX := clampInt(baseX, 0, maxX)
	originY := clampInt(baseY, 0, maxY)

	stepY := max(4, int(math.Round(float64(textHeight)*0.36)))
	stepX := max(6, int(math.Round(float64(textWidth)*0.10)))
	ySteps := max(8, canvasHeight/stepY+3)

	yOffsets := []int{0}
	switch alignV {
	case "bottom":
		for i := 1; i <= ySteps; i++ {
			yOffsets = append(yOffsets, -stepY*i)
		}
		for i := 1; i <= max(3, ySteps/2); i++ {
			yOffsets = append(yOffsets, stepY*i)
		}
	case "top":
		for i := 1; i <= ySteps; i++ {
			yOffsets = append(yOffsets, stepY*i)
		}
		for i := 1; i <= max(3, ySteps/2); i++ {
			yOffsets = append(yOffsets, -stepY*i)
		}
	default:
		for i := 1; i <= ySteps; i++ {
			yOffsets = append(yOffsets, stepY*i, -stepY*i)
		}
	}

	xOffsets := []int{0}
	xSpan := max(2, min(8, canvasWidth/max(1, stepX)))
	switch alignH {
	case "left":
		for i := 1; i <= xSpan; i++ {
			xOffsets = append(xOffsets, stepX*i)
		}
		for i := 1; i <= max(2, xSpan/2); i++ {
			xOffsets = append(xOffsets, -stepX*i)
		}
	case "right":
		for i := 1; i <= xSpan; i++ {
			xOffsets = append(xOffsets, -stepX*i)
		}
		for i := 1; i <= max(2, xSpan/2); i++ {
			xOffsets = append(xOffsets, stepX*i)
		}
	default:
		for i := 1; i <= xSpan; i++ {
			xOffsets = append(xOffsets, stepX*i, -stepX*i)
		}
	}

	bestScore := -1
	var bestX, bestY int
	var bestRect Rect
	for _, dy := range yOffsets {
		for _, dx := range xOffsets {
			x := clampInt(originX+dx, 0, maxX)
			y := clampInt(originY+dy, 0, maxY)
			rect := Rect{x, y, x + textWidth, y + textHeight}
			overlaps := 0
			for _, existing := range occupied {
				if RectsOverlap(rect, existing, gap) {
					overlaps++
				}
			}
			if overlaps == 0 {
				return x, y, rect, true
			}
			score := overlaps*100000 + abs(dx) + abs(dy)
			if bestScore < 0 || score < bestScore {
				bestScore = score
				bestX, bestY, bestRect = x, y, rect
			}
		}
	}
	if bestScore >= 0 {
		return bestX, bestY, bestRect, false
	}
	rect := Rect{originX, originY, originX + textWidth, originY + textHeight}
	return originX, originY, rect, false
}

// FontSizeLadder yields the sizes tried while shrinking a field to make
// it fit, from the base size down to the minimum.
func FontSizeLadder(base int) []int {
	start := max(MinFontSize, base)
	sizes := []int{start}
	if start <= MinFontSize {
		return sizes
	}
	step := max(1, int(math.Round(float64(start)*0.12)))
	for current := start - step; current > MinFontSize; current -= step {
		sizes = append(sizes, current)
	}
	if sizes[len(sizes)-1] != MinFontSize {
		sizes = append(sizes, MinFontSize)
	}
	return sizes
}

// BannerRect spans the full canvas width behind the rendered text, with
// headroom above the topmost box. Nil when there is no text.
func BannerRect(textBoxes []Rect, canvasWidth, canvasHeight, topPadding int) *Rect {
	if len(textBoxes) == 0 || canvasWidth <= 0 || canvasHeight <= 0 {
		return nil
	}
	top := textBoxes[0].Top
	bottom := textBoxes[0].Bottom
	for _, box := range textBoxes[1:] {
		top = min(top, box.Top)
		bottom = max(bottom, box.Bottom)
	}
	top -= max(0, topPadding)
	top = clampInt(top, 0, canvasHeight)
	bottom = clampInt(bottom, 0, canvasHeight)
	if bottom <= top {
		return nil
	}
	return &Rect{0, top, canvasWidth, bottom}
}

// BottomGradientRect anchors a scrim of heightPct percent of the canvas
// to the bottom edge.
func BottomGradientRect(canvasWidth, canvasHeight int, heightPct float64) *Rect {
	if canvasWidth <= 0 || canvasHeight <= 0 {
		return nil
	}
	ratio := math.Max(0, math.Min(1, heightPct/100.0))
	scrimHeight := clampInt(int(math.Round(float64(canvasHeight)*ratio)), 1, canvasHeight)
	return &Rect{0, max(0, canvasHeight - scrimHeight), canvasWidth, canvasHeight}
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

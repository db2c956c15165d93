package geometry

import "math"

// degenerateEps is the minimum normalized span a box must keep after
// clamping; anything thinner is treated as absent.
const degenerateEps = 0.0001

// Box is a rectangle normalized to an image, with edges in [0,1] and
// Left < Right, Top < Bottom once normalized.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// PixelBox is a pixel-space rectangle using the inclusive-left,
// exclusive-right convention with at least 1px per side.
type PixelBox struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Width returns the normalized horizontal span.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height returns the normalized vertical span.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// Width returns the pixel width.
func (p PixelBox) Width() int { return p.Right - p.Left }

// Height returns the pixel height.
func (p PixelBox) Height() int { return p.Bottom - p.Top }

// Clamp01 clamps a value to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FullBox returns the whole-canvas box.
func FullBox() Box {
	return Box{Left: 0, Top: 0, Right: 1, Bottom: 1}
}

// Normalize clamps all four edges to [0,1], swaps inverted edges, and
// returns nil for boxes that end up degenerate. Bad geometry never
// propagates further than this.
func Normalize(box *Box) *Box {
	if box == nil {
		return nil
	}
	left := Clamp01(box.Left)
	top := Clamp01(box.Top)
	right := Clamp01(box.Right)
	bottom := Clamp01(box.Bottom)
	if right < left {
		left, right = right, left
	}
	if bottom < top {
		top, bottom = bottom, top
	}
	if right-left <= degenerateEps || bottom-top <= degenerateEps {
		return nil
	}
	return &Box{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Center returns the midpoint of a box.
func Center(box Box) (float64, float64) {
	return (box.Left + box.Right) * 0.5, (box.Top + box.Bottom) * 0.5
}

// ToPixels converts a normalized box to a pixel box on a width x height
// canvas. A nil or degenerate box yields nil unless fallbackFull is set,
// in which case the full canvas box is returned instead.
func ToPixels(box *Box, width, height int, fallbackFull bool) *PixelBox {
	if width <= 0 || height <= 0 {
		return nil
	}
	normalized := Normalize(box)
	if normalized == nil {
		if !fallbackFull {
			return nil
		}
		full := FullBox()
		normalized = &full
	}
	left := int(math.Round(normalized.Left * float64(width)))
	top := int(math.Round(normalized.Top * float64(height)))
	right := int(math.Round(normalized.Right * float64(width)))
	bottom := int(math.Round(normalized.Bottom * float64(height)))
	left = clampInt(left, 0, width-1)
	top = clampInt(top, 0, height-1)
	right = clampInt(right, left+1, width)
	bottom = clampInt(bottom, top+1, height)
	return &PixelBox{Left: left, Top: top, Right: right, Bottom: bottom}
}

// ExpandToUnclampedPixels converts a normalized box to pixel space and
// grows it outward by the four pixel margins. The result is deliberately
// not clamped so callers can measure overflow beyond the image bounds.
// Collapsed spans are re-centered to a 1px sliver instead of inverting.
func ExpandToUnclampedPixels(box *Box, width, height, top, bottom, left, right int) (l, t, r, b float64, ok bool) {
	normalized := Normalize(box)
	if normalized == nil || width <= 0 || height <= 0 {
		return 0, 0, 0, 0, false
	}
	l = normalized.Left*float64(width) - float64(left)
	t = normalized.Top*float64(height) - float64(top)
	r = normalized.Right*float64(width) + float64(right)
	b = normalized.Bottom*float64(height) + float64(bottom)
	if r <= l {
		centerX := (normalized.Left + normalized.Right) * 0.5 * float64(width)
		l = centerX - 0.5
		r = centerX + 0.5
	}
	if b <= t {
		centerY := (normalized.Top + normalized.Bottom) * 0.5 * float64(height)
		t = centerY - 0.5
		b = centerY + 0.5
	}
	return l, t, r, b, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

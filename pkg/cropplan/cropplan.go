// Package cropplan computes aspect-ratio crop windows that respect an
// anchor point and a keep box, including the padded plan used when the
// keep box cannot fit inside the target ratio.
package cropplan

import (
	"math"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/geometry"
)

// DefaultPaddingPx is the canvas padding applied around auto crops.
const DefaultPaddingPx = 128

const (
	// ratioEps treats near-equal aspect ratios as already matching.
	ratioEps = 0.0001
	// effectEps treats near-full crop boxes as no-ops.
	effectEps = 0.0005
)

// Plan is a crop window over a possibly padded canvas. Pads are applied
// to the original image first; CropBox is normalized over the padded
// dimensions.
type Plan struct {
	CropBox   *geometry.Box
	PadTop    int
	PadBottom int
	PadLeft   int
	PadRight  int
}

// HasPadding reports whether the plan extends the canvas.
func (p Plan) HasPadding() bool {
	return p.PadTop > 0 || p.PadBottom > 0 || p.PadLeft > 0 || p.PadRight > 0
}

// SolveAxisCropStart places a crop span of cropSize inside fullSize so
// the anchor sits as close to the span center as possible. When a keep
// range is given, starts that would cut it off are excluded; if no
// start can contain the whole range, the span centers on its midpoint.
func SolveAxisCropStart(fullSize, cropSize int, anchor float64, keepLow, keepHigh float64, hasKeep bool) int {
	maxStart := fullSize - cropSize
	if maxStart < 0 {
		return 0
	}
	start := int(math.Round(anchor*float64(fullSize) - float64(cropSize)/2))
	start = clampInt(start, 0, maxStart)
	if !hasKeep {
		return start
	}

	feasibleMin := int(math.Ceil(keepHigh - float64(cropSize)))
	if feasibleMin < 0 {
		feasibleMin = 0
	}
	feasibleMax := int(math.Floor(keepLow))
	if feasibleMax > maxStart {
		feasibleMax = maxStart
	}
	if feasibleMin <= feasibleMax {
		return clampInt(start, feasibleMin, feasibleMax)
	}
	// Keep range cannot fit; center on its midpoint.
	centered := int(math.Round((keepLow+keepHigh)/2 - float64(cropSize)/2))
	return clampInt(centered, 0, maxStart)
}

// ComputeRatioCropBox returns the normalized crop box that brings the
// image to the target aspect ratio, anchored at the given point. A nil
// result means the image already matches.
func ComputeRatioCropBox(width, height int, ratio float64, anchorX, anchorY float64, keepBox *geometry.Box) *geometry.Box {
	if width <= 0 || height <= 0 || ratio <= 0 {
		return nil
	}
	current := float64(width) / float64(height)
	if math.Abs(current-ratio) < ratioEps {
		return nil
	}

	cropW, cropH := width, height
	if current > ratio {
		cropW = clampInt(int(math.Round(float64(height)*ratio)), 1, width)
	} else {
		cropH = clampInt(int(math.Round(float64(width)/ratio)), 1, height)
	}

	var keepLowX, keepHighX, keepLowY, keepHighY float64
	hasKeep := keepBox != nil
	if hasKeep {
		keepLowX = keepBox.Left * float64(width)
		keepHighX = keepBox.Right * float64(width)
		keepLowY = keepBox.Top * float64(height)
		keepHighY = keepBox.Bottom * float64(height)
	}

	startX := SolveAxisCropStart(width, cropW, anchorX, keepLowX, keepHighX, hasKeep)
	startY := SolveAxisCropStart(height, cropH, anchorY, keepLowY, keepHighY, hasKeep)

	return geometry.Normalize(&geometry.Box{
		Left:   float64(startX) / float64(width),
		Top:    float64(startY) / float64(height),
		Right:  float64(startX+cropW) / float64(width),
		Bottom: float64(startY+cropH) / float64(height),
	})
}

// CropBoxHasEffect reports whether applying the box would actually
// remove pixels.
func CropBoxHasEffect(box *geometry.Box) bool {
	if box == nil {
		return false
	}
	return box.Left > effectEps || box.Top > effectEps ||
		box.Right < 1-effectEps || box.Bottom < 1-effectEps
}

// AutoBirdCropPlan sizes the crop window around the keep box so the
// whole subject plus per-edge inner padding survives the ratio crop,
// extending the canvas where the window overflows the image. Returns
// false when no plan can be built; callers fall back to the plain ratio
// crop.
func AutoBirdCropPlan(width, height int, ratio float64, keepBox *geometry.Box, padTop, padBottom, padLeft, padRight int) (Plan, bool) {
	if width <= 0 || height <= 0 || ratio <= 0 || keepBox == nil {
		return Plan{}, false
	}
	left, top, right, bottom, ok := geometry.ExpandToUnclampedPixels(keepBox, width, height, padTop, padBottom, padLeft, padRight)
	if !ok {
		return Plan{}, false
	}

	keepW := math.Max(1, right-left)
	keepH := math.Max(1, bottom-top)

	cropW := keepW
	cropH := cropW / ratio
	if cropH < keepH {
		cropH = keepH
		cropW = cropH * ratio
	}

	centerX := (left + right) / 2
	centerY := (top + bottom) / 2
	cropLeft := centerX - cropW/2
	cropTop := centerY - cropH/2
	cropRight := cropLeft + cropW
	cropBottom := cropTop + cropH

	plan := Plan{
		PadLeft:   overflowPad(-cropLeft),
		PadTop:    overflowPad(-cropTop),
		PadRight:  overflowPad(cropRight - float64(width)),
		PadBottom: overflowPad(cropBottom - float64(height)),
	}

	paddedW := float64(width + plan.PadLeft + plan.PadRight)
	paddedH := float64(height + plan.PadTop + plan.PadBottom)
	plan.CropBox = geometry.Normalize(&geometry.Box{
		Left:   (cropLeft + float64(plan.PadLeft)) / paddedW,
		Top:    (cropTop + float64(plan.PadTop)) / paddedH,
		Right:  (cropRight + float64(plan.PadLeft)) / paddedW,
		Bottom: (cropBottom + float64(plan.PadTop)) / paddedH,
	})
	if plan.CropBox == nil {
		return Plan{}, false
	}
	return plan, true
}

// TransformFocusBoxAfterCrop maps a normalized box on the original
// image into the cropped frame. Nil when the box falls entirely outside
// the crop.
func TransformFocusBoxAfterCrop(box *geometry.Box, width, height int, cropPx geometry.PixelBox) *geometry.Box {
	if box == nil || width <= 0 || height <= 0 {
		return nil
	}
	cropW := float64(cropPx.Width())
	cropH := float64(cropPx.Height())
	if cropW <= 0 || cropH <= 0 {
		return nil
	}
	left := box.Left*float64(width) - float64(cropPx.Left)
	top := box.Top*float64(height) - float64(cropPx.Top)
	right := box.Right*float64(width) - float64(cropPx.Left)
	bottom := box.Bottom*float64(height) - float64(cropPx.Top)
	if right <= 0 || bottom <= 0 || left >= cropW || top >= cropH {
		return nil
	}
	return geometry.Normalize(&geometry.Box{
		Left:   left / cropW,
		Top:    top / cropH,
		Right:  right / cropW,
		Bottom: bottom / cropH,
	})
}

// TransformSourceBoxAfterCropPadding maps a normalized box on the
// original image through an optional crop and the canvas padding into
// the padded frame.
func TransformSourceBoxAfterCropPadding(box *geometry.Box, width, height int, cropPx *geometry.PixelBox, padTop, padBottom, padLeft, padRight int) *geometry.Box {
	if box == nil || width <= 0 || height <= 0 {
		return nil
	}
	left := box.Left * float64(width)
	top := box.Top * float64(height)
	right := box.Right * float64(width)
	bottom := box.Bottom * float64(height)

	frameW := float64(width)
	frameH := float64(height)
	if cropPx != nil {
		frameW = float64(cropPx.Width())
		frameH = float64(cropPx.Height())
		if frameW <= 0 || frameH <= 0 {
			return nil
		}
		left -= float64(cropPx.Left)
		top -= float64(cropPx.Top)
		right -= float64(cropPx.Left)
		bottom -= float64(cropPx.Top)
		if right <= 0 || bottom <= 0 || left >= frameW || top >= frameH {
			return nil
		}
		left = math.Max(0, left)
		top = math.Max(0, top)
		right = math.Min(frameW, right)
		bottom = math.Min(frameH, bottom)
	}

	padTop = maxInt(0, padTop)
	padBottom = maxInt(0, padBottom)
	padLeft = maxInt(0, padLeft)
	padRight = maxInt(0, padRight)
	paddedW := frameW + float64(padLeft+padRight)
	paddedH := frameH + float64(padTop+padBottom)

	return geometry.Normalize(&geometry.Box{
		Left:   (left + float64(padLeft)) / paddedW,
		Top:    (top + float64(padTop)) / paddedH,
		Right:  (right + float64(padLeft)) / paddedW,
		Bottom: (bottom + float64(padTop)) / paddedH,
	})
}

func overflowPad(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(math.Ceil(v))
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

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Package subject derives a best-effort anchor point and keep box for a
// photo from EXIF/XMP focus metadata and an optional bird detector.
package subject

import (
	"context"
	"image"
	"math"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/geometry"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/meta"
)

// Center modes select which signal anchors the crop window.
const (
	CenterModeImage = "image"
	CenterModeFocus = "focus"
	CenterModeBird  = "bird"
)

// DefaultFocusBoxShortEdgeRatio sizes the synthesized focus box when the
// metadata carries only a point: side = max(24px, 12% of short edge).
const DefaultFocusBoxShortEdgeRatio = 0.12

const minFocusBoxSidePx = 24.0

// BirdDetector supplies a single best bird bounding box, or nil when no
// bird was found or the detector is unavailable. Implementations never
// surface errors here; they convert failures to nil.
type BirdDetector interface {
	PrimaryBirdBox(ctx context.Context, img image.Image) *geometry.Box
}

// Anchor is a normalized point plus the keep box it was derived from.
type Anchor struct {
	X       float64
	Y       float64
	KeepBox *geometry.Box
}

// Locator resolves anchors by merging focus metadata with detections.
type Locator struct {
	detector BirdDetector
}

// NewLocator creates a locator. A nil detector disables bird lookup.
func NewLocator(detector BirdDetector) *Locator {
	return &Locator{detector: detector}
}

// NormalizeCenterMode maps arbitrary input to a valid center mode.
func NormalizeCenterMode(value string) string {
	switch value {
	case CenterModeFocus, CenterModeBird:
		return value
	}
	return CenterModeImage
}

// Resolve produces the anchor for a center mode. Focus mode prefers the
// metadata focus point and falls back to the bird box center; bird mode
// prefers the bird box and falls back to the focus point; image mode
// keeps the anchor at the canvas center. needKeepBox forces a detector
// query even in image mode, so auto crops can keep the bird in frame
// no matter which signal anchors the window.
func (l *Locator) Resolve(ctx context.Context, img image.Image, raw map[string]any, centerMode string, needKeepBox bool) Anchor {
	anchor := Anchor{X: 0.5, Y: 0.5}
	mode := NormalizeCenterMode(centerMode)
	if img == nil || (mode == CenterModeImage && !needKeepBox) {
		return anchor
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	focusX, focusY, hasFocus := FocusPoint(raw, width, height)
	var birdBox *geometry.Box
	if l.detector != nil {
		birdBox = l.detector.PrimaryBirdBox(ctx, img)
	}
	anchor.KeepBox = birdBox

	switch mode {
	case CenterModeFocus:
		if hasFocus {
			anchor.X, anchor.Y = focusX, focusY
		} else if birdBox != nil {
			anchor.X, anchor.Y = geometry.Center(*birdBox)
		}
	case CenterModeBird:
		if birdBox != nil {
			anchor.X, anchor.Y = geometry.Center(*birdBox)
		} else if hasFocus {
			anchor.X, anchor.Y = focusX, focusY
		}
	}
	return anchor
}

// focusPointKeyPairs are scanned in priority order; the first pair with
// both keys present wins, with no fallback scan across other keys.
var focusPointKeyPairs = [][2]string{
	{"composite:focusx", "composite:focusy"},
	{"focusx", "focusy"},
	{"regioninfo:regionsregionlistregionareax", "regioninfo:regionsregionlistregionareay"},
	{"regionareax", "regionareay"},
}

var focusAreaKeys = []string{"subjectarea", "subjectlocation", "focuslocation", "focuslocation2", "afpoint"}

// FocusPoint extracts a normalized focus point from raw metadata.
// Values above 1.0 are pixel coordinates and are divided by the image
// dimensions.
func FocusPoint(raw map[string]any, width, height int) (float64, float64, bool) {
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	lookup := meta.NormalizeLookup(raw)
	for _, pair := range focusPointKeyPairs {
		xVal, xOK := lookup[pair[0]]
		yVal, yOK := lookup[pair[1]]
		if !xOK || !yOK {
			continue
		}
		xs := meta.ExtractNumbers(xVal)
		ys := meta.ExtractNumbers(yVal)
		if len(xs) == 0 || len(ys) == 0 {
			continue
		}
		x, y := xs[0], ys[0]
		if x > 1.0 || y > 1.0 {
			return geometry.Clamp01(x / float64(width)), geometry.Clamp01(y / float64(height)), true
		}
		return geometry.Clamp01(x), geometry.Clamp01(y), true
	}
	for _, key := range focusAreaKeys {
		value, ok := lookup[key]
		if !ok {
			continue
		}
		numbers := meta.ExtractNumbers(value)
		layout, ok := decodeFocusNumbersLayout(numbers, width, height)
		if !ok {
			continue
		}
		x, y := normalizeFocusCoordinate(layout.centerX, layout.centerY, width, height)
		return x, y, true
	}
	return 0, 0, false
}

// focusBoxKeyGroups pair each x/y key set with its span companions.
var focusBoxKeyGroups = [][4]string{
	{"composite:focusx", "composite:focusy", "composite:focusw", "composite:focush"},
	{"focusx", "focusy", "focusw", "focush"},
	{
		"regioninfo:regionsregionlistregionareax",
		"regioninfo:regionsregionlistregionareay",
		"regioninfo:regionsregionlistregionareaw",
		"regioninfo:regionsregionlistregionareah",
	},
	{"regionareax", "regionareay", "regionareaw", "regionareah"},
}

// FocusBox extracts a normalized focus box. When no explicit span is
// present it synthesizes a square box around the focus point.
func FocusBox(raw map[string]any, width, height int) *geometry.Box {
	if width <= 0 || height <= 0 {
		return nil
	}
	lookup := meta.NormalizeLookup(raw)

	var frameSpanPx *[2]float64
	for _, key := range []string{"focusframesize", "focusframesize2"} {
		value, ok := lookup[key]
		if !ok {
			continue
		}
		numbers := meta.ExtractNumbers(value)
		if len(numbers) >= 2 && numbers[0] > 0 && numbers[1] > 0 {
			frameSpanPx = &[2]float64{numbers[0], numbers[1]}
			break
		}
	}

	if area, ok := lookup["subjectarea"]; ok {
		if box := focusBoxFromNumbers(meta.ExtractNumbers(area), width, height, frameSpanPx); box != nil {
			return box
		}
	}
	for _, group := range focusBoxKeyGroups {
		xVal, xOK := lookup[group[0]]
		yVal, yOK := lookup[group[1]]
		if !xOK || !yOK {
			continue
		}
		xs := meta.ExtractNumbers(xVal)
		ys := meta.ExtractNumbers(yVal)
		if len(xs) == 0 || len(ys) == 0 {
			continue
		}
		numbers := []float64{xs[0], ys[0]}
		ws := meta.ExtractNumbers(lookup[group[2]])
		hs := meta.ExtractNumbers(lookup[group[3]])
		if len(ws) > 0 && len(hs) > 0 {
			numbers = append(numbers, ws[0], hs[0])
		}
		if box := focusBoxFromNumbers(numbers, width, height, frameSpanPx); box != nil {
			return box
		}
	}
	for _, key := range []string{"subjectlocation", "focuslocation", "focuslocation2", "afpoint"} {
		value, ok := lookup[key]
		if !ok {
			continue
		}
		if box := focusBoxFromNumbers(meta.ExtractNumbers(value), width, height, frameSpanPx); box != nil {
			return box
		}
	}

	x, y, ok := FocusPoint(raw, width, height)
	if !ok {
		return nil
	}
	var spanX, spanY float64
	if frameSpanPx != nil {
		spanX = frameSpanPx[0] / float64(width)
		spanY = frameSpanPx[1] / float64(height)
	} else {
		side := defaultFocusSidePx(width, height)
		spanX = side / float64(width)
		spanY = side / float64(height)
	}
	box := focusBoxFromCenter(x, y, spanX, spanY)
	return &box
}

type focusLayout struct {
	centerX float64
	centerY float64
	spanX   float64
	spanY   float64
	hasSpan bool
}

// decodeFocusNumbersLayout handles both "[x,y,...]" and
// "[frameW,frameH,x,y,...]" encodings; the frame form is recognized when
// the first two numbers match the image dimensions within tolerance.
func decodeFocusNumbersLayout(numbers []float64, width, height int) (focusLayout, bool) {
	if len(numbers) < 2 {
		return focusLayout{}, false
	}
	spanStart := 2
	layout := focusLayout{centerX: numbers[0], centerY: numbers[1]}
	if len(numbers) >= 4 && isDimensionLike(numbers[0], width) && isDimensionLike(numbers[1], height) {
		layout.centerX = numbers[2]
		layout.centerY = numbers[3]
		spanStart = 4
	}
	if len(numbers) >= spanStart+2 {
		layout.spanX = numbers[spanStart]
		layout.spanY = numbers[spanStart+1]
		layout.hasSpan = true
	} else if len(numbers) >= spanStart+1 {
		layout.spanX = numbers[spanStart]
		layout.spanY = numbers[spanStart]
		layout.hasSpan = true
	}
	return layout, true
}

func isDimensionLike(value float64, size int) bool {
	if size <= 0 || value <= 1.0 {
		return false
	}
	sizeF := float64(size)
	return math.Abs(value-sizeF) <= 3.0 || math.Abs(value-(sizeF+1.0)) <= 3.0
}

func normalizeFocusCoordinate(x, y float64, width, height int) (float64, float64) {
	if (x > 1.0 || y > 1.0) && width > 0 && height > 0 {
		return geometry.Clamp01(x / float64(width)), geometry.Clamp01(y / float64(height))
	}
	return geometry.Clamp01(x), geometry.Clamp01(y)
}

// normalizeFocusSpan turns a raw span into a fraction of fullSize; spans
// above 1.0 are pixel spans.
func normalizeFocusSpan(value float64, hasValue bool, fullSize int, fallback float64) float64 {
	if fullSize <= 0 || !hasValue || value <= 0 {
		return clampSpan(fallback)
	}
	span := value
	if span > 1.0 {
		span = span / float64(fullSize)
	}
	return clampSpan(span)
}

func clampSpan(span float64) float64 {
	return math.Max(0.01, math.Min(1.0, span))
}

func defaultFocusSidePx(width, height int) float64 {
	short := float64(width)
	if height < width {
		short = float64(height)
	}
	return math.Max(minFocusBoxSidePx, short*DefaultFocusBoxShortEdgeRatio)
}

func focusBoxFromNumbers(numbers []float64, width, height int, frameSpanPx *[2]float64) *geometry.Box {
	if width <= 0 || height <= 0 {
		return nil
	}
	layout, ok := decodeFocusNumbersLayout(numbers, width, height)
	if !ok {
		return nil
	}
	centerX, centerY := normalizeFocusCoordinate(layout.centerX, layout.centerY, width, height)
	var fallbackSpanX, fallbackSpanY float64
	if frameSpanPx != nil && frameSpanPx[0] > 0 && frameSpanPx[1] > 0 {
		fallbackSpanX = frameSpanPx[0] / float64(width)
		fallbackSpanY = frameSpanPx[1] / float64(height)
	} else {
		side := defaultFocusSidePx(width, height)
		fallbackSpanX = side / float64(width)
		fallbackSpanY = side / float64(height)
	}
	spanX := normalizeFocusSpan(layout.spanX, layout.hasSpan, width, fallbackSpanX)
	spanY := normalizeFocusSpan(layout.spanY, layout.hasSpan, height, fallbackSpanY)
	box := focusBoxFromCenter(centerX, centerY, spanX, spanY)
	return &box
}

// focusBoxFromCenter builds a box around a point. Edges that overflow
// [0,1] slide the opposite edge inward by the overflow instead of being
// clamped, so the box keeps its area near the canvas border.
func focusBoxFromCenter(centerX, centerY, spanX, spanY float64) geometry.Box {
	cx := geometry.Clamp01(centerX)
	cy := geometry.Clamp01(centerY)
	halfX := clampSpan(spanX) * 0.5
	halfY := clampSpan(spanY) * 0.5
	left := cx - halfX
	right := cx + halfX
	top := cy - halfY
	bottom := cy + halfY
	if left < 0 {
		right = math.Min(1, right-left)
		left = 0
	}
	if right > 1 {
		left = math.Max(0, left-(right-1))
		right = 1
	}
	if top < 0 {
		bottom = math.Min(1, bottom-top)
		top = 0
	}
	if bottom > 1 {
		top = math.Max(0, top-(bottom-1))
		bottom = 1
	}
	return geometry.Box{Left: left, Top: top, Right: right, Bottom: bottom}
}

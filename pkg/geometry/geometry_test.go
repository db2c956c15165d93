package geometry

import (
	"math"
	"testing"
)

func TestClamp01(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}
	for _, test := range tests {
		if got := Clamp01(test.in); got != test.expected {
			t.Errorf("Clamp01(%v) = %v, expected %v", test.in, got, test.expected)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       *Box
		expected *Box
	}{
		{
			name:     "nil box",
			in:       nil,
			expected: nil,
		},
		{
			name:     "already normalized",
			in:       &Box{Left: 0.1, Top: 0.2, Right: 0.8, Bottom: 0.9},
			expected: &Box{Left: 0.1, Top: 0.2, Right: 0.8, Bottom: 0.9},
		},
		{
			name:     "swapped edges",
			in:       &Box{Left: 0.8, Top: 0.9, Right: 0.1, Bottom: 0.2},
			expected: &Box{Left: 0.1, Top: 0.2, Right: 0.8, Bottom: 0.9},
		},
		{
			name:     "out of range clamps",
			in:       &Box{Left: -0.5, Top: -0.1, Right: 1.5, Bottom: 1.1},
			expected: &Box{Left: 0, Top: 0, Right: 1, Bottom: 1},
		},
		{
			name:     "degenerate width",
			in:       &Box{Left: 0.5, Top: 0.2, Right: 0.5, Bottom: 0.9},
			expected: nil,
		},
		{
			name:     "degenerate height",
			in:       &Box{Left: 0.1, Top: 0.4, Right: 0.9, Bottom: 0.40005},
			expected: nil,
		},
	}
	for _, test := range tests {
		got := Normalize(test.in)
		if (got == nil) != (test.expected == nil) {
			t.Errorf("%s: Normalize = %v, expected %v", test.name, got, test.expected)
			continue
		}
		if got != nil && *got != *test.expected {
			t.Errorf("%s: Normalize = %v, expected %v", test.name, *got, *test.expected)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	boxes := []*Box{
		{Left: 0.8, Top: 0.9, Right: 0.1, Bottom: 0.2},
		{Left: -1, Top: 0.3, Right: 2, Bottom: 0.7},
		{Left: 0.25, Top: 0.25, Right: 0.75, Bottom: 0.75},
	}
	for _, box := range boxes {
		once := Normalize(box)
		twice := Normalize(once)
		if once == nil || twice == nil {
			t.Fatalf("Normalize(%v) unexpectedly degenerate", *box)
		}
		if *once != *twice {
			t.Errorf("Normalize not idempotent: %v != %v", *once, *twice)
		}
	}
}

func TestCenter(t *testing.T) {
	x, y := Center(Box{Left: 0.2, Top: 0.4, Right: 0.6, Bottom: 0.8})
	if math.Abs(x-0.4) > 1e-9 || math.Abs(y-0.6) > 1e-9 {
		t.Errorf("Center = (%v, %v), expected (0.4, 0.6)", x, y)
	}
}

func TestToPixels(t *testing.T) {
	box := &Box{Left: 0.25, Top: 0.25, Right: 0.75, Bottom: 0.75}
	px := ToPixels(box, 400, 200, false)
	if px == nil {
		t.Fatal("ToPixels returned nil for valid box")
	}
	expected := PixelBox{Left: 100, Top: 50, Right: 300, Bottom: 150}
	if *px != expected {
		t.Errorf("ToPixels = %v, expected %v", *px, expected)
	}
}

func TestToPixelsFallbackFull(t *testing.T) {
	if px := ToPixels(nil, 400, 200, false); px != nil {
		t.Errorf("expected nil without fallback, got %v", *px)
	}
	px := ToPixels(nil, 400, 200, true)
	if px == nil {
		t.Fatal("expected full-canvas box with fallback")
	}
	expected := PixelBox{Left: 0, Top: 0, Right: 400, Bottom: 200}
	if *px != expected {
		t.Errorf("fallback ToPixels = %v, expected %v", *px, expected)
	}
}

func TestToPixelsMinimumSize(t *testing.T) {
	// A sliver just above the degenerate threshold still maps to >= 1px.
	box := &Box{Left: 0.5, Top: 0.5, Right: 0.5005, Bottom: 0.5005}
	px := ToPixels(box, 100, 100, false)
	if px == nil {
		t.Fatal("expected a pixel box for a thin but valid box")
	}
	if px.Width() < 1 || px.Height() < 1 {
		t.Errorf("pixel box below 1px: %v", *px)
	}
}

func TestToPixelsInvalidCanvas(t *testing.T) {
	box := &Box{Left: 0.1, Top: 0.1, Right: 0.9, Bottom: 0.9}
	if px := ToPixels(box, 0, 200, true); px != nil {
		t.Errorf("expected nil for zero width, got %v", *px)
	}
}

func TestExpandToUnclampedPixels(t *testing.T) {
	box := &Box{Left: 0.25, Top: 0.25, Right: 0.75, Bottom: 0.75}
	l, tp, r, b, ok := ExpandToUnclampedPixels(box, 400, 400, 10, 20, 30, 40)
	if !ok {
		t.Fatal("expected ok for valid box")
	}
	if l != 70 || tp != 90 || r != 340 || b != 320 {
		t.Errorf("expanded = (%v,%v,%v,%v), expected (70,90,340,320)", l, tp, r, b)
	}
}

func TestExpandToUnclampedPixelsOverflow(t *testing.T) {
	// Margins larger than the available space must produce negative /
	// beyond-bounds values rather than clamping, so callers can detect
	// the overflow.
	box := &Box{Left: 0.0, Top: 0.0, Right: 0.5, Bottom: 0.5}
	l, tp, r, b, ok := ExpandToUnclampedPixels(box, 100, 100, 30, 30, 30, 30)
	if !ok {
		t.Fatal("expected ok")
	}
	if l >= 0 || tp >= 0 {
		t.Errorf("expected negative left/top, got (%v, %v)", l, tp)
	}
	if r <= 50 || b <= 50 {
		t.Errorf("expected expanded right/bottom, got (%v, %v)", r, b)
	}
}

func TestExpandToUnclampedPixelsDegenerate(t *testing.T) {
	if _, _, _, _, ok := ExpandToUnclampedPixels(nil, 100, 100, 0, 0, 0, 0); ok {
		t.Error("expected not ok for nil box")
	}
	box := &Box{Left: 0.1, Top: 0.1, Right: 0.9, Bottom: 0.9}
	if _, _, _, _, ok := ExpandToUnclampedPixels(box, 0, 100, 0, 0, 0, 0); ok {
		t.Error("expected not ok for zero-width canvas")
	}
}

func TestNegativeMarginCollapse(t *testing.T) {
	// Inner (negative) margins that swallow the whole box re-center to a
	// 1px sliver instead of inverting.
	box := &Box{Left: 0.4, Top: 0.4, Right: 0.6, Bottom: 0.6}
	l, tp, r, b, ok := ExpandToUnclampedPixels(box, 100, 100, -50, -50, -50, -50)
	if !ok {
		t.Fatal("expected ok")
	}
	if r-l != 1 || b-tp != 1 {
		t.Errorf("expected 1px sliver, got (%v,%v,%v,%v)", l, tp, r, b)
	}
	if math.Abs((l+r)*0.5-50) > 1e-9 {
		t.Errorf("sliver not centered: %v", (l+r)*0.5)
	}
}

package cropplan

import (
	"math"
	"testing"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/geometry"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) <= eps
}

func boxNear(t *testing.T, got *geometry.Box, left, top, right, bottom float64) {
	t.Helper()
	if got == nil {
		t.Fatal("expected a box, got nil")
	}
	if !near(got.Left, left) || !near(got.Top, top) || !near(got.Right, right) || !near(got.Bottom, bottom) {
		t.Fatalf("box = %+v, expected (%v, %v, %v, %v)", *got, left, top, right, bottom)
	}
}

func TestSolveAxisCropStart(t *testing.T) {
	tests := []struct {
		name     string
		full     int
		crop     int
		anchor   float64
		keepLow  float64
		keepHigh float64
		hasKeep  bool
		expected int
	}{
		{"centered", 1200, 800, 0.5, 0, 0, false, 200},
		{"anchor at right edge", 1200, 800, 1.0, 0, 0, false, 400},
		{"anchor at left edge", 1200, 800, 0.0, 0, 0, false, 0},
		{"keep feasible clamps start", 1200, 800, 0.5, 600, 1000, true, 200},
		{"keep infeasible centers on keep", 1200, 800, 0.5, 0, 900, true, 50},
		{"crop equals full", 800, 800, 0.3, 0, 0, false, 0},
	}
	for _, test := range tests {
		got := SolveAxisCropStart(test.full, test.crop, test.anchor, test.keepLow, test.keepHigh, test.hasKeep)
		if got != test.expected {
			t.Errorf("%s: start = %d, expected %d", test.name, got, test.expected)
		}
	}
}

func TestComputeRatioCropBoxLandscapeToSquare(t *testing.T) {
	box := ComputeRatioCropBox(1200, 800, 1.0, 0.5, 0.5, nil)
	boxNear(t, box, 200.0/1200.0, 0, 1000.0/1200.0, 1)

	pixels := geometry.ToPixels(box, 1200, 800, false)
	if pixels == nil || pixels.Left != 200 || pixels.Top != 0 || pixels.Right != 1000 || pixels.Bottom != 800 {
		t.Errorf("pixels = %+v", pixels)
	}
}

func TestComputeRatioCropBoxAlreadyMatching(t *testing.T) {
	if box := ComputeRatioCropBox(1000, 1000, 1.0, 0.5, 0.5, nil); box != nil {
		t.Errorf("expected nil for matching ratio, got %+v", *box)
	}
	if box := ComputeRatioCropBox(1200, 800, 1.5, 0.5, 0.5, nil); box != nil {
		t.Errorf("expected nil for matching ratio, got %+v", *box)
	}
}

func TestComputeRatioCropBoxPortraitTarget(t *testing.T) {
	// 1200x800 to 2:3 portrait keeps full height, crops width.
	box := ComputeRatioCropBox(1200, 800, 2.0/3.0, 0.5, 0.5, nil)
	pixels := geometry.ToPixels(box, 1200, 800, false)
	if pixels == nil || pixels.Width() != 533 || pixels.Height() != 800 {
		t.Errorf("pixels = %+v", pixels)
	}
}

func TestComputeRatioCropBoxAnchorAtEdge(t *testing.T) {
	box := ComputeRatioCropBox(1200, 800, 1.0, 1.0, 0.5, nil)
	boxNear(t, box, 400.0/1200.0, 0, 1, 1)
}

func TestComputeRatioCropBoxKeepInfeasible(t *testing.T) {
	keep := &geometry.Box{Left: 0, Top: 0, Right: 0.75, Bottom: 1}
	box := ComputeRatioCropBox(1200, 800, 1.0, 0.5, 0.5, keep)
	boxNear(t, box, 50.0/1200.0, 0, 850.0/1200.0, 1)
}

func TestCropBoxHasEffect(t *testing.T) {
	tests := []struct {
		name     string
		box      *geometry.Box
		expected bool
	}{
		{"nil", nil, false},
		{"full", &geometry.Box{Left: 0, Top: 0, Right: 1, Bottom: 1}, false},
		{"within epsilon", &geometry.Box{Left: 0.0004, Top: 0, Right: 1, Bottom: 1}, false},
		{"real crop", &geometry.Box{Left: 0.1, Top: 0, Right: 1, Bottom: 1}, true},
		{"short bottom", &geometry.Box{Left: 0, Top: 0, Right: 1, Bottom: 0.9}, true},
	}
	for _, test := range tests {
		if got := CropBoxHasEffect(test.box); got != test.expected {
			t.Errorf("%s: CropBoxHasEffect = %v", test.name, got)
		}
	}
}

func TestAutoBirdCropPlanFitsWithoutPadding(t *testing.T) {
	keep := &geometry.Box{Left: 0.4, Top: 0.4, Right: 0.6, Bottom: 0.6}
	plan, ok := AutoBirdCropPlan(1200, 800, 1.0, keep, 0, 0, 0, 0)
	if !ok {
		t.Fatal("expected a plan")
	}
	if plan.HasPadding() {
		t.Errorf("pads = %+v, expected none", plan)
	}
	boxNear(t, plan.CropBox, 0.4, 0.35, 0.6, 0.65)
}

func TestAutoBirdCropPlanPadsOverflow(t *testing.T) {
	// Near-full subject on a portrait frame: the square window cannot fit
	// inside, so the canvas gets extended instead of cutting the subject.
	keep := &geometry.Box{Left: 0.05, Top: 0.05, Right: 0.95, Bottom: 0.95}
	plan, ok := AutoBirdCropPlan(800, 1200, 1.0, keep, 128, 128, 128, 128)
	if !ok {
		t.Fatal("expected a plan")
	}
	if plan.PadLeft != 268 || plan.PadRight != 268 || plan.PadTop != 68 || plan.PadBottom != 68 {
		t.Errorf("pads = %+v", plan)
	}
	boxNear(t, plan.CropBox, 0, 0, 1, 1)
	if CropBoxHasEffect(plan.CropBox) {
		t.Error("window covering the padded canvas must be a no-op crop")
	}
}

func TestAutoBirdCropPlanRejectsBadInput(t *testing.T) {
	if _, ok := AutoBirdCropPlan(1200, 800, 1.0, nil, 0, 0, 0, 0); ok {
		t.Error("nil keep box must not plan")
	}
	if _, ok := AutoBirdCropPlan(1200, 800, 0, &geometry.Box{Right: 1, Bottom: 1}, 0, 0, 0, 0); ok {
		t.Error("non-positive ratio must not plan")
	}
}

func TestTransformFocusBoxAfterCrop(t *testing.T) {
	box := &geometry.Box{Left: 0.25, Top: 0.25, Right: 0.75, Bottom: 0.75}
	crop := geometry.PixelBox{Left: 100, Top: 50, Right: 300, Bottom: 150}
	got := TransformFocusBoxAfterCrop(box, 400, 200, crop)
	boxNear(t, got, 0, 0, 1, 1)
}

func TestTransformFocusBoxAfterCropOutside(t *testing.T) {
	box := &geometry.Box{Left: 0, Top: 0, Right: 0.1, Bottom: 0.1}
	crop := geometry.PixelBox{Left: 200, Top: 100, Right: 400, Bottom: 200}
	if got := TransformFocusBoxAfterCrop(box, 400, 200, crop); got != nil {
		t.Errorf("expected nil for box outside crop, got %+v", *got)
	}
}

func TestTransformSourceBoxAfterCropPadding(t *testing.T) {
	box := &geometry.Box{Left: 0.5, Top: 0.5, Right: 1, Bottom: 1}
	got := TransformSourceBoxAfterCropPadding(box, 100, 100, nil, 0, 0, 100, 0)
	boxNear(t, got, 0.75, 0.5, 1, 1)
}

func TestTransformSourceBoxAfterCropPaddingWithCrop(t *testing.T) {
	box := &geometry.Box{Left: 0.25, Top: 0, Right: 0.75, Bottom: 1}
	crop := geometry.PixelBox{Left: 100, Top: 0, Right: 300, Bottom: 200}
	got := TransformSourceBoxAfterCropPadding(box, 400, 200, &crop, 10, 10, 0, 0)
	// Box spans the full crop width; height squeezed by the pads.
	boxNear(t, got, 0, 10.0/220.0, 1, 210.0/220.0)
}

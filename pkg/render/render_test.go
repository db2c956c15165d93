package render

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/geometry"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/template"
)

type stubDetector struct {
	box *geometry.Box
}

func (d *stubDetector) PrimaryBirdBox(ctx context.Context, img image.Image) *geometry.Box {
	return d.box
}

func quietSettings(ratio float64, centerMode string, autoCrop bool) Settings {
	s := SettingsFromPayload(template.DefaultPayload("test"))
	s.Ratio = ratio
	s.CenterMode = centerMode
	s.AutoCropByBird = autoCrop
	s.DrawBanner = false
	s.DrawText = false
	return s
}

func testFrame(width, height int) *image.NRGBA {
	return imaging.New(width, height, color.NRGBA{200, 200, 200, 255})
}

func TestPlanCropWithoutRatio(t *testing.T) {
	pipeline := New(quietSettings(0, "image", false), nil)
	plan := pipeline.PlanCrop(context.Background(), testFrame(1200, 800), nil)
	if plan.CropBox != nil || plan.HasPadding() {
		t.Errorf("plan = %+v, expected no crop", plan)
	}
	if plan.Anchor.X != 0.5 || plan.Anchor.Y != 0.5 {
		t.Errorf("anchor = %+v", plan.Anchor)
	}
}

func TestPlanCropCenterRatio(t *testing.T) {
	pipeline := New(quietSettings(1.0, "image", false), nil)
	plan := pipeline.PlanCrop(context.Background(), testFrame(1200, 800), nil)
	if plan.CropBox == nil {
		t.Fatal("expected a crop box")
	}
	pixels := geometry.ToPixels(plan.CropBox, 1200, 800, false)
	if pixels == nil || pixels.Left != 200 || pixels.Top != 0 || pixels.Right != 1000 || pixels.Bottom != 800 {
		t.Errorf("pixels = %+v", pixels)
	}
}

func TestPlanCropBirdAnchored(t *testing.T) {
	detector := &stubDetector{box: &geometry.Box{Left: 0.6, Top: 0.3, Right: 0.8, Bottom: 0.5}}
	pipeline := New(quietSettings(1.0, "bird", false), detector)
	plan := pipeline.PlanCrop(context.Background(), testFrame(1200, 800), nil)
	if plan.Anchor.X != 0.7 || plan.Anchor.Y != 0.4 {
		t.Errorf("anchor = %+v", plan.Anchor)
	}
	if plan.CropBox == nil {
		t.Fatal("expected a crop box")
	}
	// Square window centered on the bird: 800px wide at x=0.7*1200=840.
	pixels := geometry.ToPixels(plan.CropBox, 1200, 800, false)
	if pixels == nil || pixels.Left != 400 || pixels.Right != 1200 {
		t.Errorf("pixels = %+v", pixels)
	}
}

func TestPlanCropAutoBirdPads(t *testing.T) {
	// Near-full subject on a portrait frame forces outward padding.
	detector := &stubDetector{box: &geometry.Box{Left: 0.05, Top: 0.05, Right: 0.95, Bottom: 0.95}}
	settings := quietSettings(1.0, "bird", true)
	settings.PadTop, settings.PadBottom, settings.PadLeft, settings.PadRight = 128, 128, 128, 128
	pipeline := New(settings, detector)

	plan := pipeline.PlanCrop(context.Background(), testFrame(800, 1200), nil)
	if !plan.HasPadding() {
		t.Fatalf("plan = %+v, expected padding", plan)
	}
	if plan.PadLeft != 268 || plan.PadRight != 268 || plan.PadTop != 68 || plan.PadBottom != 68 {
		t.Errorf("pads = %+v", plan)
	}
}

func TestPlanCropImageModeAutoBirdPads(t *testing.T) {
	// Auto crop keeps the bird even when the anchor is the plain image
	// center, so a near-full subject still forces outward padding.
	detector := &stubDetector{box: &geometry.Box{Left: 0.05, Top: 0.05, Right: 0.95, Bottom: 0.95}}
	settings := quietSettings(1.0, "image", true)
	settings.PadTop, settings.PadBottom, settings.PadLeft, settings.PadRight = 128, 128, 128, 128
	pipeline := New(settings, detector)

	plan := pipeline.PlanCrop(context.Background(), testFrame(800, 1200), nil)
	if plan.Anchor.X != 0.5 || plan.Anchor.Y != 0.5 {
		t.Errorf("anchor = %+v, expected the canvas center", plan.Anchor)
	}
	if plan.Anchor.KeepBox == nil {
		t.Fatal("expected the detection as keep box")
	}
	if !plan.HasPadding() {
		t.Fatalf("plan = %+v, expected padding", plan)
	}
	if plan.PadLeft != 268 || plan.PadRight != 268 || plan.PadTop != 68 || plan.PadBottom != 68 {
		t.Errorf("pads = %+v", plan)
	}
}

func TestBuildImageRatioAndResize(t *testing.T) {
	settings := quietSettings(1.0, "image", false)
	settings.MaxLongEdge = 400
	pipeline := New(settings, nil)

	out, plan, err := pipeline.BuildImage(context.Background(), testFrame(1200, 800), template.PhotoInfo{Path: "/p/a.jpg"})
	if err != nil {
		t.Fatalf("BuildImage: %v", err)
	}
	if plan.CropBox == nil {
		t.Fatal("expected a crop plan")
	}
	width := out.Bounds().Dx()
	height := out.Bounds().Dy()
	if width != 400 || height != 400 {
		t.Errorf("output = %dx%d, expected 400x400", width, height)
	}
}

func TestBuildImagePadsBeforeCrop(t *testing.T) {
	detector := &stubDetector{box: &geometry.Box{Left: 0.05, Top: 0.05, Right: 0.95, Bottom: 0.95}}
	settings := quietSettings(1.0, "bird", true)
	settings.PadTop, settings.PadBottom, settings.PadLeft, settings.PadRight = 128, 128, 128, 128
	settings.PadFill = "#ff0000"
	pipeline := New(settings, detector)

	out, plan, err := pipeline.BuildImage(context.Background(), testFrame(800, 1200), template.PhotoInfo{Path: "/p/a.jpg"})
	if err != nil {
		t.Fatalf("BuildImage: %v", err)
	}
	wantWidth := 800 + plan.PadLeft + plan.PadRight
	wantHeight := 1200 + plan.PadTop + plan.PadBottom
	gotRatio := float64(out.Bounds().Dx()) / float64(out.Bounds().Dy())
	if math.Abs(gotRatio-1.0) > 0.01 {
		t.Errorf("output ratio = %v", gotRatio)
	}
	if out.Bounds().Dx() > wantWidth || out.Bounds().Dy() > wantHeight {
		t.Errorf("output %v exceeds padded frame %dx%d", out.Bounds(), wantWidth, wantHeight)
	}
	// Padding fill shows at the left edge.
	if c := out.NRGBAAt(0, out.Bounds().Dy()/2); c.R != 255 || c.G != 0 {
		t.Errorf("left edge = %+v, expected the pad fill", c)
	}
}

func TestPreviewKeepsFullFrame(t *testing.T) {
	settings := quietSettings(1.0, "image", false)
	pipeline := New(settings, nil)

	out, plan := pipeline.Preview(context.Background(), testFrame(1200, 800), template.PhotoInfo{Path: "/p/a.jpg"})
	if plan.CropBox == nil {
		t.Fatal("expected a crop plan")
	}
	if out.Bounds().Dx() != 1200 || out.Bounds().Dy() != 800 {
		t.Errorf("preview resized the frame: %v", out.Bounds())
	}
}

func TestDebugOverlayMarksAnchor(t *testing.T) {
	pipeline := New(quietSettings(1.0, "image", false), nil)
	out := pipeline.DebugOverlay(context.Background(), testFrame(400, 400), nil)
	if out.Bounds().Dx() != 400 {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	nrgba, ok := out.(*image.NRGBA)
	if !ok {
		t.Fatalf("unexpected image type %T", out)
	}
	// Anchor crosshair paints red at the center.
	if c := nrgba.NRGBAAt(200, 200); c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("center = %+v, expected the anchor marker", c)
	}
}

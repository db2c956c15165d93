package birdstamp

import (
	"context"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/render"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/template"
)

// testFrame builds a gray frame with a darker block standing in for the
// bird.
func testFrame(width, height int) *image.NRGBA {
	img := imaging.New(width, height, color.NRGBA{180, 180, 180, 255})
	for y := height / 3; y < height/2; y++ {
		for x := width / 3; x < width/2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{40, 40, 40, 255})
		}
	}
	return img
}

func TestNew(t *testing.T) {
	stamper := New()
	if stamper == nil {
		t.Fatal("New() returned nil")
	}
	settings := stamper.Settings()
	if !settings.DrawText || !settings.DrawBanner {
		t.Errorf("default settings disable render stages: %+v", settings)
	}
	if len(settings.Payload.Fields) == 0 {
		t.Error("builtin template has no fields")
	}
}

func TestRenderKeepsNativeFrame(t *testing.T) {
	stamper := New()
	img := testFrame(400, 300)

	out, plan, err := stamper.Render(context.Background(), img, template.PhotoInfo{Path: "/photos/白鹭_DSC1024.jpg"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// The builtin template has no target ratio, so the frame survives.
	if plan.CropBox != nil || plan.HasPadding() {
		t.Errorf("plan = %+v, expected no crop", plan)
	}
	if out.Bounds().Dx() != 400 || out.Bounds().Dy() != 300 {
		t.Errorf("output = %v", out.Bounds())
	}
}

func TestRenderWithRatio(t *testing.T) {
	payload := template.DefaultPayload("square")
	payload.Ratio = 1.0
	stamper := NewWithTemplate(payload, nil)
	img := testFrame(400, 300)

	out, plan, err := stamper.Render(context.Background(), img, template.PhotoInfo{Path: "/p/a.jpg"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if plan.CropBox == nil {
		t.Fatal("expected a crop plan")
	}
	ratio := float64(out.Bounds().Dx()) / float64(out.Bounds().Dy())
	if math.Abs(ratio-1.0) > 0.01 {
		t.Errorf("output ratio = %v", ratio)
	}
}

func TestPreviewKeepsFullFrame(t *testing.T) {
	payload := template.DefaultPayload("square")
	payload.Ratio = 1.0
	stamper := NewWithTemplate(payload, nil)
	img := testFrame(400, 300)

	out, plan := stamper.Preview(context.Background(), img, template.PhotoInfo{Path: "/p/a.jpg"})
	if plan.CropBox == nil {
		t.Fatal("expected a crop plan")
	}
	if out.Bounds().Dx() != 400 || out.Bounds().Dy() != 300 {
		t.Errorf("preview resized the frame: %v", out.Bounds())
	}
}

func TestRenderFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "白鹭_DSC1024.png")
	outputPath := filepath.Join(dir, "stamped.jpg")

	stamper := New()
	if err := stamper.SaveImage(testFrame(320, 240), inputPath); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if err := stamper.RenderFile(context.Background(), inputPath, outputPath); err != nil {
		t.Fatalf("RenderFile: %v", err)
	}

	out, err := stamper.LoadImage(outputPath)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if out.Bounds().Dx() != 320 || out.Bounds().Dy() != 240 {
		t.Errorf("output = %v", out.Bounds())
	}
}

func TestRenderFileMissingInput(t *testing.T) {
	stamper := New()
	err := stamper.RenderFile(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"), "out.jpg")
	if err == nil {
		t.Error("expected an error for a missing input")
	}
}

func TestNewWithSettings(t *testing.T) {
	settings := render.SettingsFromPayload(template.DefaultPayload("quiet"))
	settings.DrawText = false
	settings.DrawBanner = false

	stamper := NewWithSettings(settings, nil)
	if stamper.Settings().DrawText {
		t.Error("settings were not kept")
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("GetVersion() = %q", GetVersion())
	}
}

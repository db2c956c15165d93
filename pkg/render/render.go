// Package render composes the full pipeline: locate the subject, plan
// the crop, pad and crop the frame, resize it, and draw the template
// overlay.
package render

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/cropplan"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/geometry"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/overlay"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/processing"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/subject"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/template"
)

// Settings is the immutable parameter set for one render run. Build it
// from a template payload, then override individual fields before
// constructing the pipeline.
type Settings struct {
	Payload    template.Payload
	Ratio      float64
	CenterMode string

	AutoCropByBird bool
	PadTop         int
	PadBottom      int
	PadLeft        int
	PadRight       int
	PadFill        string

	MaxLongEdge int

	AutoScaleFont bool
	DrawBanner    bool
	DrawText      bool
}

// SettingsFromPayload lifts the payload's crop and banner parameters
// into render settings with every stage enabled.
func SettingsFromPayload(payload template.Payload) Settings {
	return Settings{
		Payload:        payload,
		Ratio:          payload.Ratio,
		CenterMode:     payload.CenterMode,
		AutoCropByBird: payload.AutoCropByBird,
		PadTop:         payload.CropPaddingTop,
		PadBottom:      payload.CropPaddingBottom,
		PadLeft:        payload.CropPaddingLeft,
		PadRight:       payload.CropPaddingRight,
		PadFill:        payload.CropPaddingFill,
		MaxLongEdge:    payload.MaxLongEdge,
		AutoScaleFont:  true,
		DrawBanner:     true,
		DrawText:       true,
	}
}

func (s Settings) overlayOptions() overlay.Options {
	return overlay.Options{
		AutoScaleFont: s.AutoScaleFont,
		DrawBanner:    s.DrawBanner,
		DrawText:      s.DrawText,
	}
}

func (s Settings) fillColor() color.Color {
	parsed, err := template.ParseColor(s.PadFill)
	if err != nil {
		return color.NRGBA{255, 255, 255, 255}
	}
	return parsed
}

// Plan describes the geometry of one render: the resolved anchor, the
// crop window over the (possibly padded) canvas, and the outward pads.
type Plan struct {
	Anchor    subject.Anchor
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

// Pipeline renders photos with one settings set.
type Pipeline struct {
	settings Settings
	locator  *subject.Locator
}

// New builds a pipeline. The detector may be nil; bird-centered modes
// then fall back to focus metadata and the image center.
func New(settings Settings, detector subject.BirdDetector) *Pipeline {
	return &Pipeline{settings: settings, locator: subject.NewLocator(detector)}
}

// Settings returns the pipeline's parameter set.
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// PlanCrop resolves the subject anchor and plans the crop window.
// Without a target ratio there is nothing to plan.
func (p *Pipeline) PlanCrop(ctx context.Context, img image.Image, raw map[string]any) Plan {
	s := p.settings
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	needKeepBox := s.AutoCropByBird && s.Ratio > 0
	anchor := p.locator.Resolve(ctx, img, raw, s.CenterMode, needKeepBox)
	plan := Plan{Anchor: anchor}
	if s.Ratio <= 0 || width <= 0 || height <= 0 {
		return plan
	}

	if s.AutoCropByBird && anchor.KeepBox != nil {
		if auto, ok := cropplan.AutoBirdCropPlan(width, height, s.Ratio, anchor.KeepBox,
			s.PadTop, s.PadBottom, s.PadLeft, s.PadRight); ok {
			plan.CropBox = auto.CropBox
			plan.PadTop = auto.PadTop
			plan.PadBottom = auto.PadBottom
			plan.PadLeft = auto.PadLeft
			plan.PadRight = auto.PadRight
			return plan
		}
	}

	cropBox := cropplan.ComputeRatioCropBox(width, height, s.Ratio, anchor.X, anchor.Y, nil)
	if cropplan.CropBoxHasEffect(cropBox) {
		plan.CropBox = cropBox
	}
	return plan
}

// BuildImage runs the full pipeline on one frame: pad, crop, resize,
// then the template overlay.
func (p *Pipeline) BuildImage(ctx context.Context, img image.Image, info template.PhotoInfo) (*image.NRGBA, Plan, error) {
	s := p.settings
	plan := p.PlanCrop(ctx, img, info.Raw)

	var out image.Image = img
	if plan.HasPadding() {
		out = processing.PadImage(out, plan.PadTop, plan.PadBottom, plan.PadLeft, plan.PadRight, s.fillColor())
	}
	if cropplan.CropBoxHasEffect(plan.CropBox) {
		cropped, err := processing.CropByNormalizedBox(out, plan.CropBox)
		if err != nil {
			return nil, plan, err
		}
		out = cropped
	}
	out = processing.ResizeFit(out, s.MaxLongEdge)

	if !s.DrawBanner && !s.DrawText {
		return imaging.Clone(out), plan, nil
	}
	return overlay.Render(out, info, s.Payload, s.overlayOptions()), plan, nil
}

// Preview keeps the full padded frame and draws the overlay inside the
// planned crop window, so the final composition shows in place.
func (p *Pipeline) Preview(ctx context.Context, img image.Image, info template.PhotoInfo) (*image.NRGBA, Plan) {
	s := p.settings
	plan := p.PlanCrop(ctx, img, info.Raw)

	var out image.Image = img
	if plan.HasPadding() {
		out = processing.PadImage(out, plan.PadTop, plan.PadBottom, plan.PadLeft, plan.PadRight, s.fillColor())
	}
	return overlay.RenderInCropRegion(out, info, s.Payload, plan.CropBox, s.overlayOptions()), plan
}

// DebugOverlay draws the focus box, detected bird box, planned crop,
// and anchor crosshair over the source frame.
func (p *Pipeline) DebugOverlay(ctx context.Context, img image.Image, raw map[string]any) image.Image {
	plan := p.PlanCrop(ctx, img, raw)
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	focusBox := subject.FocusBox(raw, width, height)
	return processing.DebugOverlay(img, focusBox, plan.Anchor.KeepBox, plan.CropBox, plan.Anchor.X, plan.Anchor.Y)
}

// Package overlay renders template text and banner backgrounds onto an
// image. Field text is resolved through the template context providers,
// laid out with collision avoidance, and drawn with per-field fonts,
// styles, and colors.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/cropplan"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/geometry"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/layout"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/template"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/typeface"
)

// italicShear is the horizontal shear factor for italic styles.
const italicShear = -0.28

// Options toggles the render stages.
type Options struct {
	AutoScaleFont bool
	DrawBanner    bool
	DrawText      bool
}

// DefaultOptions enables every stage.
func DefaultOptions() Options {
	return Options{AutoScaleFont: true, DrawBanner: true, DrawText: true}
}

type drawCommand struct {
	text   string
	x, y   int
	color  color.NRGBA
	source *typeface.Source
	points float64
	style  string
	rect   layout.Rect
}

// Render draws the template onto a copy of img and returns it.
func Render(img image.Image, info template.PhotoInfo, payload template.Payload, opts Options) *image.NRGBA {
	canvas := imaging.Clone(img)
	width := canvas.Bounds().Dx()
	height := canvas.Bounds().Dy()

	fontScale := 1.0
	if opts.AutoScaleFont {
		fontScale = layout.FontScaleForCanvas(width, height)
	}
	textGap := layout.TextGap(width, height)

	var occupied []layout.Rect
	var commands []drawCommand
	for _, field := range payload.Fields {
		text := template.ResolveFieldText(info, field)
		if text == "" {
			continue
		}
		fieldColor, err := template.ParseColor(template.SafeColor(field.Color, template.DefaultFieldColor))
		if err != nil {
			fieldColor = color.NRGBA{255, 255, 255, 255}
		}
		source := typeface.ForType(field.FontType)
		scaledSize := layout.ScaledFontSize(field.FontSize, fontScale)
		xOffset := field.XOffsetPct / 100.0
		yOffset := field.YOffsetPct / 100.0

		command := drawCommand{
			text:   text,
			color:  fieldColor,
			source: source,
			style:  field.Style,
		}
		// Shrink the font until the text finds a collision-free spot.
		for _, size := range layout.FontSizeLadder(scaledSize) {
			textWidth, textHeight := source.Measure(text, float64(size))
			baseX, baseY := layout.ComputePosition(width, height, textWidth, textHeight,
				field.AlignHorizontal, field.AlignVertical, xOffset, yOffset)
			x, y, rect, clear := layout.PlaceWithAvoidance(baseX, baseY, textWidth, textHeight,
				width, height, field.AlignHorizontal, field.AlignVertical, occupied, textGap)
			command.x, command.y, command.rect, command.points = x, y, rect, float64(size)
			if clear {
				break
			}
		}
		commands = append(commands, command)
		occupied = append(occupied, command.rect)
	}

	if opts.DrawBanner && payload.DrawBannerBackground && len(commands) > 0 {
		if payload.BannerBackgroundStyle == template.BannerStyleGradientBottom {
			if rect := layout.BottomGradientRect(width, height, payload.BannerGradientHeightPct); rect != nil {
				drawVerticalGradient(canvas, *rect,
					payload.BannerGradientTopColor, payload.BannerGradientTopOpacity,
					payload.BannerGradientBottomColor, payload.BannerGradientBottomOpacity)
			}
		} else if fill, ok := template.BannerFillColor(payload.BannerColor); ok {
			boxes := make([]layout.Rect, len(commands))
			for i, command := range commands {
				boxes[i] = command.rect
			}
			if rect := layout.BannerRect(boxes, width, height, template.BannerTopPaddingPx); rect != nil {
				fillColor, err := template.ParseColor(fill)
				if err == nil {
					bounds := image.Rect(rect.Left, rect.Top, rect.Right, rect.Bottom)
					draw.Draw(canvas, bounds, image.NewUniform(fillColor), image.Point{}, draw.Over)
				}
			}
		}
	}

	if opts.DrawText {
		for _, command := range commands {
			drawStyledText(canvas, command)
		}
	}
	return canvas
}

// RenderInCropRegion renders the template inside the crop window only,
// pasting the result back into a copy of the full image. Without an
// effective crop it renders over the whole frame.
func RenderInCropRegion(img image.Image, info template.PhotoInfo, payload template.Payload, cropBox *geometry.Box, opts Options) *image.NRGBA {
	if !cropplan.CropBoxHasEffect(cropBox) {
		return Render(img, info, payload, opts)
	}
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	cropPx := geometry.ToPixels(cropBox, width, height, false)
	if cropPx == nil || cropPx.Width() < 2 || cropPx.Height() < 2 {
		return Render(img, info, payload, opts)
	}
	region := imaging.Crop(img, image.Rect(cropPx.Left, cropPx.Top, cropPx.Right, cropPx.Bottom))
	rendered := Render(region, info, payload, opts)
	merged := imaging.Clone(img)
	return imaging.Paste(merged, rendered, image.Pt(cropPx.Left, cropPx.Top))
}

// drawVerticalGradient composites a per-row color and alpha ramp over
// the rect, top stop to bottom stop.
func drawVerticalGradient(canvas *image.NRGBA, rect layout.Rect, topColor string, topOpacityPct float64, bottomColor string, bottomOpacityPct float64) {
	width := rect.Width()
	height := rect.Height()
	if width <= 0 || height <= 0 {
		return
	}
	top, err := template.ParseColor(topColor)
	if err != nil {
		return
	}
	bottom, err := template.ParseColor(bottomColor)
	if err != nil {
		bottom = top
	}
	topAlpha := int(math.Round(clampPct(topOpacityPct) * 2.55))
	bottomAlpha := int(math.Round(clampPct(bottomOpacityPct) * 2.55))
	if topAlpha <= 0 && bottomAlpha <= 0 {
		return
	}
	scrim := image.NewNRGBA(image.Rect(0, 0, width, height))
	denominator := float64(max(1, height-1))
	for row := 0; row < height; row++ {
		t := float64(row) / denominator
		rowColor := color.NRGBA{
			R: lerpChannel(top.R, bottom.R, t),
			G: lerpChannel(top.G, bottom.G, t),
			B: lerpChannel(top.B, bottom.B, t),
			A: uint8(math.Round(float64(topAlpha) + (float64(bottomAlpha)-float64(topAlpha))*t)),
		}
		for x := 0; x < width; x++ {
			scrim.SetNRGBA(x, row, rowColor)
		}
	}
	bounds := image.Rect(rect.Left, rect.Top, rect.Right, rect.Bottom)
	draw.Draw(canvas, bounds, scrim, image.Point{}, draw.Over)
}

// drawStyledText rasterizes one command onto a padded layer, applies
// bold and italic styling, and composites the layer onto the canvas.
func drawStyledText(canvas *image.NRGBA, command drawCommand) {
	textWidth, textHeight := command.source.Measure(command.text, command.points)
	const pad = 5
	layer := gg.NewContext(textWidth+2*pad, textHeight+2*pad)
	face := command.source.Face(command.points)
	layer.SetFontFace(face)
	layer.SetColor(command.color)

	ascent := face.Metrics().Ascent.Ceil()
	baselineY := float64(pad + ascent)
	if command.style == "bold" || command.style == "bold_italic" {
		// Poor man's bold: three slightly offset passes.
		for _, offset := range [][2]float64{{0, 0}, {1, 0}, {0, 1}} {
			layer.DrawString(command.text, pad+offset[0], baselineY+offset[1])
		}
	} else {
		layer.DrawString(command.text, pad, baselineY)
	}

	rendered := layer.Image()
	if command.style == "italic" || command.style == "bold_italic" {
		rendered = shearImage(rendered, italicShear)
	}
	target := image.Rect(command.x-pad, command.y-pad,
		command.x-pad+rendered.Bounds().Dx(), command.y-pad+rendered.Bounds().Dy())
	draw.Draw(canvas, target, rendered, rendered.Bounds().Min, draw.Over)
}

// shearImage slants the glyph layer horizontally, widening the result
// so nothing clips.
func shearImage(img image.Image, shear float64) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	newWidth := int(math.Round(float64(width) + math.Abs(shear)*float64(height)))
	out := image.NewNRGBA(image.Rect(0, 0, newWidth, height))
	matrix := f64.Aff3{
		1, math.Abs(shear), 0,
		0, 1, 0,
	}
	xdraw.CatmullRom.Transform(out, matrix, img, bounds, xdraw.Over, nil)
	return out
}

func clampPct(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func lerpChannel(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// Package birdstamp stamps bird photos: it finds the subject, plans an
// aspect-ratio crop that keeps the bird in frame, and draws a metadata
// overlay (species, capture time, exposure settings, author) from a
// configurable template.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		birdstamp "github.com/OscarKing888/BirdStamp-sub000"
//	)
//
//	func main() {
//		stamper := birdstamp.New()
//		if err := stamper.RenderFile(context.Background(), "白鹭_DSC1024.jpg", "out/白鹭.jpg"); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package composes four layers:
//
// 1. Metadata (pkg/meta): exiftool batch extraction, sidecar XMP, display normalization
// 2. Subject (pkg/subject, pkg/detect): focus-point metadata and vision-model bird detection
// 3. Crop planning (pkg/cropplan): ratio crops that never clip the bird, padding outward when needed
// 4. Overlay (pkg/template, pkg/overlay): placeholder resolution, banner, collision-avoiding text layout
//
// The zero-configuration path uses the builtin template and no detector;
// bird-centered crops then fall back to autofocus metadata and the image
// center. Wire a detector through NewWithSettings for full auto-crop.
package birdstamp

import (
	"context"
	"fmt"
	"image"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/meta"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/processing"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/render"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/subject"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/template"
)

// Version of the birdstamp library
const Version = "1.0.0"

// DefaultQuality is the JPEG/WebP quality used by the convenience
// methods.
const DefaultQuality = 92

// Stamper is the high-level interface: one template, one pipeline.
type Stamper struct {
	settings render.Settings
	pipeline *render.Pipeline
}

// New creates a Stamper with the builtin template and no detector.
func New() *Stamper {
	return NewWithSettings(render.SettingsFromPayload(template.DefaultPayload("default")), nil)
}

// NewWithTemplate creates a Stamper for a specific template payload.
// The detector may be nil.
func NewWithTemplate(payload template.Payload, detector subject.BirdDetector) *Stamper {
	return NewWithSettings(render.SettingsFromPayload(payload), detector)
}

// NewWithSettings creates a Stamper with full control over the render
// settings.
func NewWithSettings(settings render.Settings, detector subject.BirdDetector) *Stamper {
	return &Stamper{
		settings: settings,
		pipeline: render.New(settings, detector),
	}
}

// Settings returns the render settings the Stamper was built with.
func (s *Stamper) Settings() render.Settings {
	return s.settings
}

// LoadImage loads an image from a file path.
func (s *Stamper) LoadImage(path string) (image.Image, error) {
	return processing.LoadImage(path)
}

// SaveImage writes an image; the format follows the path extension.
func (s *Stamper) SaveImage(img image.Image, path string) error {
	return processing.SaveImage(img, path, DefaultQuality)
}

// PhotoInfo gathers the metadata for one photo: exiftool when available,
// plus the sidecar XMP next to the file.
func (s *Stamper) PhotoInfo(path string) (template.PhotoInfo, error) {
	rawByPath, err := meta.ExtractBatch([]string{path}, meta.ExiftoolAuto)
	if err != nil {
		return template.PhotoInfo{}, fmt.Errorf("metadata extraction failed: %w", err)
	}
	return template.NewPhotoInfo(path, rawByPath[path]), nil
}

// Render runs the full pipeline on an already-loaded frame.
func (s *Stamper) Render(ctx context.Context, img image.Image, info template.PhotoInfo) (*image.NRGBA, render.Plan, error) {
	return s.pipeline.BuildImage(ctx, img, info)
}

// Preview keeps the full frame and draws the overlay inside the planned
// crop window.
func (s *Stamper) Preview(ctx context.Context, img image.Image, info template.PhotoInfo) (*image.NRGBA, render.Plan) {
	return s.pipeline.Preview(ctx, img, info)
}

// PlanCrop resolves the subject anchor and crop geometry without
// rendering.
func (s *Stamper) PlanCrop(ctx context.Context, img image.Image, info template.PhotoInfo) render.Plan {
	return s.pipeline.PlanCrop(ctx, img, info.Raw)
}

// RenderFile loads, stamps, and saves one photo.
func (s *Stamper) RenderFile(ctx context.Context, inputPath, outputPath string) error {
	img, err := s.LoadImage(inputPath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	info, err := s.PhotoInfo(inputPath)
	if err != nil {
		return err
	}
	out, _, err := s.Render(ctx, img, info)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if err := s.SaveImage(out, outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

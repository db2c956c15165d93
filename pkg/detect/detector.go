// Package detect finds the primary bird in a photo through a vision
// model backend. Detection is best effort: every failure path degrades
// to "no bird" and leaves a queryable status string.
package detect

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/client"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/geometry"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/processing"
)

// DefaultMinConfidence rejects weak detections.
const DefaultMinConfidence = 0.25

// BirdClassID is the COCO class id for "bird", reported by models that
// return numeric classes instead of labels.
const BirdClassID = 14

// modelInputLongEdge bounds the image sent to the model; full-resolution
// photos only slow inference down.
const modelInputLongEdge = 1024

// DefaultPrompt asks for all birds with normalized boxes.
const DefaultPrompt = `You are a bird detector.

Return JSON only:
{
  "detections": [
    {"label": "bird", "class_id": 14, "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ]
}

HARD RULES
- Report every bird you can see, one entry per bird.
- All box coordinates are normalized to [0,1] (NOT pixels), x/y is the top-left corner.
- confidence is your certainty in [0,1].
- If no bird is visible, return {"detections": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Detector wraps a vision backend for bird localization.
type Detector struct {
	client        client.VisionClient
	model         string
	minConfidence float64

	mu         sync.Mutex
	lastStatus string
}

// New creates a detector for the given backend and model name.
func New(vision client.VisionClient, model string) *Detector {
	return &Detector{
		client:        vision,
		model:         model,
		minConfidence: DefaultMinConfidence,
	}
}

// SetMinConfidence overrides the confidence gate. Non-positive values
// restore the default.
func (d *Detector) SetMinConfidence(v float64) {
	if v <= 0 {
		v = DefaultMinConfidence
	}
	d.minConfidence = v
}

// Status reports why the last PrimaryBirdBox call returned nil, or
// "ok" after a successful detection.
func (d *Detector) Status() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastStatus
}

func (d *Detector) setStatus(status string) {
	d.mu.Lock()
	d.lastStatus = status
	d.mu.Unlock()
}

// PrimaryBirdBox returns the normalized box of the most prominent bird,
// or nil when none was found or the backend failed.
func (d *Detector) PrimaryBirdBox(ctx context.Context, img image.Image) *geometry.Box {
	if d == nil || d.client == nil || img == nil {
		return nil
	}
	imgB64, err := processing.PrepareImageForModel(img, modelInputLongEdge)
	if err != nil {
		d.setStatus(fmt.Sprintf("image encode failed: %v", err))
		return nil
	}

	result, err := d.detectWithRetry(ctx, imgB64)
	if err != nil {
		d.setStatus(fmt.Sprintf("detection failed: %v", err))
		return nil
	}

	best := BestBird(result.Detections, d.minConfidence)
	if best == nil {
		d.setStatus("no bird detected")
		return nil
	}
	box := boxFromDetection(*best)
	if box == nil {
		d.setStatus("detection box degenerate")
		return nil
	}
	d.setStatus("ok")
	return box
}

// detectWithRetry retries a failed inference once before giving up;
// transient backend errors are common with local model servers.
func (d *Detector) detectWithRetry(ctx context.Context, imgB64 string) (*client.DetectionResult, error) {
	result, err := d.client.DetectObjects(ctx, d.model, DefaultPrompt, imgB64)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return d.client.DetectObjects(ctx, d.model, DefaultPrompt, imgB64)
}

// IsBird matches by label or by COCO class id.
func IsBird(det client.Detection) bool {
	if det.ClassID == BirdClassID {
		return true
	}
	return strings.Contains(strings.ToLower(det.Label), "bird")
}

// BestBird picks the bird with the highest area-weighted confidence.
func BestBird(detections []client.Detection, minConfidence float64) *client.Detection {
	var best *client.Detection
	bestScore := 0.0
	for i := range detections {
		det := detections[i]
		if !IsBird(det) || det.Confidence < minConfidence {
			continue
		}
		area := det.Box.W * det.Box.H
		if area <= 0 {
			continue
		}
		score := area * det.Confidence
		if best == nil || score > bestScore {
			best = &detections[i]
			bestScore = score
		}
	}
	return best
}

func boxFromDetection(det client.Detection) *geometry.Box {
	return geometry.Normalize(&geometry.Box{
		Left:   det.Box.X,
		Top:    det.Box.Y,
		Right:  det.Box.X + det.Box.W,
		Bottom: det.Box.Y + det.Box.H,
	})
}

// Shared detector, memoized across renders so the backend client is
// built once per process.
var (
	sharedMu       sync.Mutex
	sharedFactory  func() (*Detector, error)
	sharedDetector *Detector
	sharedErr      error
	sharedLoaded   bool
)

// SetSharedFactory installs the constructor used by Shared. It also
// clears any memoized detector.
func SetSharedFactory(factory func() (*Detector, error)) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedFactory = factory
	sharedDetector = nil
	sharedErr = nil
	sharedLoaded = false
}

// Shared returns the process-wide detector, constructing it on first
// use. A nil factory means detection is disabled.
func Shared() (*Detector, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if !sharedLoaded {
		sharedLoaded = true
		if sharedFactory != nil {
			sharedDetector, sharedErr = sharedFactory()
		}
	}
	return sharedDetector, sharedErr
}

// ResetShared drops the memoized detector and factory.
func ResetShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedFactory = nil
	sharedDetector = nil
	sharedErr = nil
	sharedLoaded = false
}

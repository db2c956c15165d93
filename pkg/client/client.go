// Package client defines the vision backend interface and the wire
// types shared by the ollama and llama.cpp implementations.
package client

import "context"

// Box is a normalized top-left anchored bounding box.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detection is one detected object as reported by the vision model.
type Detection struct {
	Label      string  `json:"label"`
	ClassID    int     `json:"class_id,omitempty"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// DetectionResult is the parsed model response for one image.
type DetectionResult struct {
	Detections  []Detection `json:"detections"`
	Description string      `json:"description,omitempty"`
}

// VisionClient abstracts a vision model backend. Image payloads are
// base64-encoded JPEG bytes.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectObjects(ctx context.Context, model, prompt, imgB64 string) (*DetectionResult, error)
}

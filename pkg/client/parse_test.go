package client

import "testing"

func TestParseDetectionResult(t *testing.T) {
	raw := `{"detections":[{"label":"bird","class_id":14,"confidence":0.91,"box":{"x":0.1,"y":0.2,"w":0.3,"h":0.4}}]}`
	result := ParseDetectionResult(raw)
	if len(result.Detections) != 1 {
		t.Fatalf("detections = %d, expected 1", len(result.Detections))
	}
	d := result.Detections[0]
	if d.Label != "bird" || d.ClassID != 14 || d.Confidence != 0.91 {
		t.Errorf("detection = %+v", d)
	}
	if d.Box.X != 0.1 || d.Box.Y != 0.2 || d.Box.W != 0.3 || d.Box.H != 0.4 {
		t.Errorf("box = %+v", d.Box)
	}
}

func TestParseDetectionResultFencedWithComments(t *testing.T) {
	raw := "```json\n{\n  // the best match\n  \"detections\": [\n    {\"label\": \"bird\", \"confidence\": 0.8, \"box\": {\"x\": 0, \"y\": 0, \"w\": 0.5, \"h\": 0.5},},\n  ]\n}\n```"
	result := ParseDetectionResult(raw)
	if len(result.Detections) != 1 {
		t.Fatalf("detections = %d, expected 1 after sanitizing", len(result.Detections))
	}
}

func TestParseDetectionResultNonJSON(t *testing.T) {
	result := ParseDetectionResult("I see a bird perched on a branch.")
	if len(result.Detections) != 0 {
		t.Errorf("detections = %v, expected none", result.Detections)
	}
	if result.Description == "" {
		t.Error("expected a fallback note")
	}
}

func TestParseDetectionResultEmbeddedJSON(t *testing.T) {
	raw := `Sure! Here is the result: {"detections":[{"label":"bird","confidence":0.5,"box":{"x":0.4,"y":0.4,"w":0.2,"h":0.2}}]} Hope that helps.`
	result := ParseDetectionResult(raw)
	if len(result.Detections) != 1 {
		t.Fatalf("detections = %d, expected embedded object extraction", len(result.Detections))
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"trailing comma", `{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"block comment", "{/* note */\"a\":1}", `{"a":1}`},
		{"surrounding prose", `answer: {"a":1} done`, `{"a":1}`},
	}
	for _, test := range tests {
		if got := SanitizeModelJSON(test.in); got != test.expected {
			t.Errorf("%s: SanitizeModelJSON = %q, expected %q", test.name, got, test.expected)
		}
	}
}

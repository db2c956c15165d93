package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dir returns the template repository under a config directory.
func Dir(configDir string) string {
	return filepath.Join(configDir, "templates")
}

var builtinDefault = map[string]any{
	"name":                    "default",
	"ratio":                   0,
	"banner_color":            "none",
	"draw_banner_background":  true,
	"banner_background_style": "gradient_bottom",
	"fields": []any{
		map[string]any{
			"name":           "鸟种",
			"text_source":    map[string]any{"type": "auto", "key": "{bird}"},
			"align":          "left",
			"align_vertical": "bottom",
			"x_offset_pct":   2.0,
			"y_offset_pct":   -12.0,
			"font_size":      44,
			"style":          "bold",
		},
		map[string]any{
			"name":           "时间",
			"text_source":    map[string]any{"type": "auto", "key": "{capture_text}"},
			"align":          "left",
			"align_vertical": "bottom",
			"x_offset_pct":   2.0,
			"y_offset_pct":   -7.0,
			"font_size":      26,
		},
		map[string]any{
			"name":           "参数",
			"text_source":    map[string]any{"type": "auto", "key": "{settings_text}"},
			"align":          "left",
			"align_vertical": "bottom",
			"x_offset_pct":   2.0,
			"y_offset_pct":   -2.5,
			"font_size":      26,
		},
		map[string]any{
			"name":           "作者",
			"text_source":    map[string]any{"type": "auto", "key": "{author}"},
			"align":          "right",
			"align_vertical": "bottom",
			"x_offset_pct":   -2.0,
			"y_offset_pct":   -2.5,
			"font_size":      26,
		},
	},
}

// DefaultPayload returns the builtin template under the given name.
func DefaultPayload(name string) Payload {
	raw := make(map[string]any, len(builtinDefault))
	for key, value := range builtinDefault {
		raw[key] = value
	}
	if strings.TrimSpace(name) != "" {
		raw["name"] = name
	}
	return NormalizePayload(raw, "default")
}

// LoadPayload reads and normalizes one template file. The extension
// selects the codec: .yaml/.yml decode as YAML, everything else as JSON.
func LoadPayload(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return Payload{}, fmt.Errorf("failed to parse template %s: %v", path, err)
	}
	return NormalizePayload(raw, stem(path)), nil
}

// SavePayload normalizes and writes a template, JSON or YAML by
// extension.
func SavePayload(path string, payload Payload) error {
	normalized := Renormalize(payload, stem(path))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create template directory: %v", err)
	}
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(normalized)
	default:
		data, err = json.MarshalIndent(normalized, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	}
	if err != nil {
		return fmt.Errorf("failed to encode template: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write template %s: %v", path, err)
	}
	return nil
}

// Renormalize runs a payload back through the raw normalization, so
// hand-built payloads get the same clamps as loaded ones.
func Renormalize(payload Payload, fallbackName string) Payload {
	data, err := json.Marshal(payload)
	if err != nil {
		return payload
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return payload
	}
	return NormalizePayload(raw, fallbackName)
}

// EnsureRepository creates the template directory and seeds it with the
// builtin default when it holds no templates yet.
func EnsureRepository(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create template directory %s: %v", dir, err)
	}
	if len(ListNames(dir)) > 0 {
		return nil
	}
	return SavePayload(filepath.Join(dir, "default.json"), DefaultPayload("default"))
}

// ListNames returns the sorted stems of the template files in dir.
func ListNames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, stem(entry.Name()))
		}
	}
	sort.Strings(names)
	return names
}

// Load resolves a template by name from dir, falling back to the
// builtin default when name is empty or the file is missing.
func Load(dir, name string) (Payload, error) {
	if strings.TrimSpace(name) == "" {
		return DefaultPayload("default"), nil
	}
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadPayload(path)
		}
	}
	// A direct path also works, so templates outside the repository
	// can be used.
	if _, err := os.Stat(name); err == nil {
		return LoadPayload(name)
	}
	return Payload{}, fmt.Errorf("template %q not found in %s", name, dir)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

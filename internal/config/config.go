package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Detector  DetectorConfig  `json:"detector"`
	Render    RenderConfig    `json:"render"`
	Metadata  MetadataConfig  `json:"metadata"`
	Output    OutputConfig    `json:"output"`
	Templates TemplatesConfig `json:"templates"`
}

// DetectorConfig holds configuration for the vision detection backend
type DetectorConfig struct {
	Backend       string  `json:"backend"`
	URL           string  `json:"url"`
	Model         string  `json:"model"`
	MinConfidence float64 `json:"min_confidence"`
	TimeoutS      int     `json:"timeout_s"`
}

// RenderConfig holds configuration for crop planning and rendering
type RenderConfig struct {
	Ratio          float64 `json:"ratio"`
	CenterMode     string  `json:"center_mode"`
	AutoCropByBird bool    `json:"auto_crop_by_bird"`
	CropPaddingPx  int     `json:"crop_padding_px"`
	PaddingFill    string  `json:"padding_fill"`
	MaxLongEdge    int     `json:"max_long_edge"`
}

// MetadataConfig holds configuration for metadata extraction
type MetadataConfig struct {
	UseExiftool  string   `json:"use_exiftool"`
	BirdFrom     []string `json:"bird_from"`
	BirdRegex    string   `json:"bird_regex"`
	TimeFormat   string   `json:"time_format"`
	LoadSidecars bool     `json:"load_sidecars"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat string `json:"default_format"`
	Quality       int    `json:"quality"`
	OutputDir     string `json:"output_dir"`
	NameTemplate  string `json:"name_template"`
	SkipExisting  bool   `json:"skip_existing"`
}

// TemplatesConfig holds configuration for the template repository
type TemplatesConfig struct {
	Dir     string `json:"dir"`
	Default string `json:"default"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			Backend:       "ollama",
			URL:           "http://localhost:11434",
			Model:         "minicpm-v",
			MinConfidence: 0.25,
			TimeoutS:      300,
		},
		Render: RenderConfig{
			Ratio:          0,
			CenterMode:     "image",
			AutoCropByBird: true,
			CropPaddingPx:  128,
			PaddingFill:    "#FFFFFF",
			MaxLongEdge:    0,
		},
		Metadata: MetadataConfig{
			UseExiftool:  "auto",
			BirdFrom:     []string{"arg", "meta", "filename"},
			BirdRegex:    `(?P<bird>[^_]+)_`,
			TimeFormat:   "2006-01-02 15:04",
			LoadSidecars: true,
		},
		Output: OutputConfig{
			DefaultFormat: "jpg",
			Quality:       92,
			OutputDir:     "./output",
			NameTemplate:  "{stem}__birdstamp",
			SkipExisting:  false,
		},
		Templates: TemplatesConfig{
			Dir:     "",
			Default: "default",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Detector.Backend {
	case "ollama", "llamacpp", "none":
	default:
		return fmt.Errorf("detector.backend must be one of ollama, llamacpp, none")
	}

	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be between 0 and 1")
	}

	if c.Detector.TimeoutS < 1 {
		return fmt.Errorf("detector.timeout_s must be positive")
	}

	if c.Render.Ratio < 0 {
		return fmt.Errorf("render.ratio cannot be negative")
	}

	switch c.Render.CenterMode {
	case "image", "focus", "bird":
	default:
		return fmt.Errorf("render.center_mode must be one of image, focus, bird")
	}

	if c.Render.MaxLongEdge < 0 {
		return fmt.Errorf("render.max_long_edge cannot be negative")
	}

	switch c.Metadata.UseExiftool {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("metadata.use_exiftool must be one of auto, on, off")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	switch c.Output.DefaultFormat {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.default_format must be one of jpg, jpeg, png, webp")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "birdstamp", "config.json")
}

// TemplateDir resolves the template repository directory, defaulting to
// a templates/ folder next to the config file.
func (c *Config) TemplateDir() string {
	if c.Templates.Dir != "" {
		return c.Templates.Dir
	}
	return filepath.Join(filepath.Dir(GetConfigPath()), "templates")
}

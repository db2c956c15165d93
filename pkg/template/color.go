package template

import (
	"fmt"
	"image/color"
	"strings"
)

// Banner color handling. "none" disables the solid banner fill.
const (
	DefaultBannerColor = "#111111"
	BannerColorNone    = "none"
)

var namedColors = map[string]color.NRGBA{
	"white":   {255, 255, 255, 255},
	"black":   {0, 0, 0, 255},
	"red":     {255, 0, 0, 255},
	"green":   {0, 128, 0, 255},
	"blue":    {0, 0, 255, 255},
	"yellow":  {255, 255, 0, 255},
	"gray":    {128, 128, 128, 255},
	"grey":    {128, 128, 128, 255},
	"orange":  {255, 165, 0, 255},
	"magenta": {255, 0, 255, 255},
	"cyan":    {0, 255, 255, 255},
}

// ParseColor parses #RGB, #RRGGBB, #RRGGBBAA, or a small set of color
// names.
func ParseColor(value string) (color.NRGBA, error) {
	text := strings.TrimSpace(value)
	if named, ok := namedColors[strings.ToLower(text)]; ok {
		return named, nil
	}
	if !strings.HasPrefix(text, "#") {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", value)
	}
	hex := text[1:]
	var r, g, b, a uint8 = 0, 0, 0, 255
	var err error
	switch len(hex) {
	case 3:
		_, err = fmt.Sscanf(hex, "%1x%1x%1x", &r, &g, &b)
		r *= 17
		g *= 17
		b *= 17
	case 6:
		_, err = fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	case 8:
		_, err = fmt.Sscanf(hex, "%02x%02x%02x%02x", &r, &g, &b, &a)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q", value)
	}
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", value, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// SafeColor returns value when it parses as a color, else fallback.
func SafeColor(value, fallback string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return fallback
	}
	if _, err := ParseColor(text); err != nil {
		return fallback
	}
	return text
}

// NormalizeBannerColor maps the banner color to a parsable color or the
// "none" sentinel.
func NormalizeBannerColor(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return DefaultBannerColor
	}
	switch strings.ToLower(text) {
	case "none", "transparent", "off", "false", "0":
		return BannerColorNone
	}
	return SafeColor(text, DefaultBannerColor)
}

// BannerFillColor resolves the solid banner fill; ok is false for
// "none".
func BannerFillColor(value string) (string, bool) {
	normalized := NormalizeBannerColor(value)
	if normalized == BannerColorNone {
		return "", false
	}
	return normalized, true
}

// normalizeGradientColor returns a canonical #rrggbb form, falling back
// when the value does not parse.
func normalizeGradientColor(value, fallback string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return fallback
	}
	parsed, err := ParseColor(text)
	if err != nil {
		return fallback
	}
	return fmt.Sprintf("#%02x%02x%02x", parsed.R, parsed.G, parsed.B)
}

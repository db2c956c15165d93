package template

import (
	"reflect"
	"testing"
)

func TestNormalizeSourceType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"auto", SourceAuto},
		{"EXIF", SourceExif},
		{" from_file ", SourceFromFile},
		{"report_db", SourceReportDB},
		{"metadata", SourceAuto},
		{"", SourceAuto},
		{"bogus", SourceAuto},
	}
	for _, test := range tests {
		if got := NormalizeSourceType(test.input); got != test.expected {
			t.Errorf("NormalizeSourceType(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input   string
		r, g, b uint8
		a       uint8
		wantErr bool
	}{
		{"#fff", 255, 255, 255, 255, false},
		{"#336699", 0x33, 0x66, 0x99, 255, false},
		{"#33669980", 0x33, 0x66, 0x99, 0x80, false},
		{"white", 255, 255, 255, 255, false},
		{"Orange", 255, 165, 0, 255, false},
		{"#12", 0, 0, 0, 0, true},
		{"notacolor", 0, 0, 0, 0, true},
	}
	for _, test := range tests {
		got, err := ParseColor(test.input)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q) expected error", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q) error: %v", test.input, err)
			continue
		}
		if got.R != test.r || got.G != test.g || got.B != test.b || got.A != test.a {
			t.Errorf("ParseColor(%q) = %+v", test.input, got)
		}
	}
}

func TestNormalizeBannerColor(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", DefaultBannerColor},
		{"none", BannerColorNone},
		{"Transparent", BannerColorNone},
		{"off", BannerColorNone},
		{"0", BannerColorNone},
		{"#abcdef", "#abcdef"},
		{"junk", DefaultBannerColor},
	}
	for _, test := range tests {
		if got := NormalizeBannerColor(test.input); got != test.expected {
			t.Errorf("NormalizeBannerColor(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestNormalizePayloadDefaults(t *testing.T) {
	payload := NormalizePayload(map[string]any{}, "fallback")
	if payload.Name != "fallback" {
		t.Errorf("Name = %q", payload.Name)
	}
	if payload.Ratio != 0 {
		t.Errorf("Ratio = %v", payload.Ratio)
	}
	if payload.BannerColor != DefaultBannerColor {
		t.Errorf("BannerColor = %q", payload.BannerColor)
	}
	if !payload.DrawBannerBackground {
		t.Error("DrawBannerBackground should default on")
	}
	if payload.BannerBackgroundStyle != BannerStyleSolid {
		t.Errorf("BannerBackgroundStyle = %q", payload.BannerBackgroundStyle)
	}
	if payload.BannerGradientHeightPct != DefaultGradientHeightPct {
		t.Errorf("BannerGradientHeightPct = %v", payload.BannerGradientHeightPct)
	}
	if payload.BannerGradientBottomOpacity != DefaultGradientBottomOpacity {
		t.Errorf("BannerGradientBottomOpacity = %v", payload.BannerGradientBottomOpacity)
	}
	if payload.BannerGradientTopOpacity != 0 {
		t.Errorf("BannerGradientTopOpacity = %v", payload.BannerGradientTopOpacity)
	}
	// Absent gradient keys inherit the banner color.
	if payload.BannerGradientTopColor != "#111111" || payload.BannerGradientBottomColor != "#111111" {
		t.Errorf("gradient colors = %q / %q", payload.BannerGradientTopColor, payload.BannerGradientBottomColor)
	}
	if !payload.AutoCropByBird {
		t.Error("AutoCropByBird should default on")
	}
	if payload.MaxLongEdge != 0 {
		t.Errorf("MaxLongEdge = %d", payload.MaxLongEdge)
	}
	if payload.CropPaddingTop != 0 || payload.CropPaddingFill != DefaultCropPaddingFill {
		t.Errorf("crop padding = %d fill %q", payload.CropPaddingTop, payload.CropPaddingFill)
	}
	if len(payload.Fields) != 1 {
		t.Fatalf("Fields = %d, expected the default field", len(payload.Fields))
	}
	if payload.Fields[0].TextSource.Key != "{bird}" {
		t.Errorf("default field source = %+v", payload.Fields[0].TextSource)
	}
}

func TestNormalizePayloadGradientColorFallback(t *testing.T) {
	payload := NormalizePayload(map[string]any{"banner_color": "#336699"}, "t")
	if payload.BannerGradientTopColor != "#336699" || payload.BannerGradientBottomColor != "#336699" {
		t.Errorf("absent keys must inherit banner color, got %q / %q",
			payload.BannerGradientTopColor, payload.BannerGradientBottomColor)
	}

	payload = NormalizePayload(map[string]any{
		"banner_color":               "#336699",
		"banner_gradient_top_color":  "",
		"banner_gradient_bottom_color": "#FFEEDD",
	}, "t")
	if payload.BannerGradientTopColor != DefaultGradientColor {
		t.Errorf("present-but-empty key must use the hard default, got %q", payload.BannerGradientTopColor)
	}
	if payload.BannerGradientBottomColor != "#ffeedd" {
		t.Errorf("explicit color must canonicalize, got %q", payload.BannerGradientBottomColor)
	}

	payload = NormalizePayload(map[string]any{"banner_color": "none"}, "t")
	if payload.BannerGradientTopColor != DefaultGradientColor {
		t.Errorf("banner none must not leak into gradient, got %q", payload.BannerGradientTopColor)
	}
}

func TestNormalizePayloadClamps(t *testing.T) {
	payload := NormalizePayload(map[string]any{
		"ratio":                      "3:2",
		"banner_gradient_height_pct": 500.0,
		"banner_gradient_bottom_opacity_pct": -20.0,
		"max_long_edge":              -100.0,
		"crop_padding_left":          99999.0,
		"crop_padding_right":         -99999.0,
	}, "t")
	if payload.Ratio != 1.5 {
		t.Errorf("Ratio = %v", payload.Ratio)
	}
	if payload.BannerGradientHeightPct != GradientHeightPctMax {
		t.Errorf("BannerGradientHeightPct = %v", payload.BannerGradientHeightPct)
	}
	if payload.BannerGradientBottomOpacity != 0 {
		t.Errorf("BannerGradientBottomOpacity = %v", payload.BannerGradientBottomOpacity)
	}
	if payload.MaxLongEdge != 0 {
		t.Errorf("MaxLongEdge = %d", payload.MaxLongEdge)
	}
	if payload.CropPaddingLeft != 9999 || payload.CropPaddingRight != -9999 {
		t.Errorf("crop paddings = %d / %d", payload.CropPaddingLeft, payload.CropPaddingRight)
	}
}

func TestNormalizeFieldDefaults(t *testing.T) {
	field := NormalizeField(map[string]any{}, 2)
	if field.Name != "字段3" {
		t.Errorf("Name = %q", field.Name)
	}
	if field.AlignHorizontal != "left" || field.AlignVertical != "top" {
		t.Errorf("align = %q / %q", field.AlignHorizontal, field.AlignVertical)
	}
	if field.Style != "normal" || field.FontType != "auto" {
		t.Errorf("style = %q font = %q", field.Style, field.FontType)
	}
	if field.YOffsetPct != DefaultFieldYOffsetPct || field.XOffsetPct != 0 {
		t.Errorf("offsets = %v / %v", field.XOffsetPct, field.YOffsetPct)
	}
	if field.FontSize != DefaultFieldFontSize || field.Color != DefaultFieldColor {
		t.Errorf("font size = %d color = %q", field.FontSize, field.Color)
	}
	// Bare fields source the legacy default tag through auto.
	if field.TextSource.Type != SourceAuto || field.TextSource.Key != DefaultFieldTag {
		t.Errorf("TextSource = %+v", field.TextSource)
	}
}

func TestNormalizeFieldOptionsAndClamps(t *testing.T) {
	field := NormalizeField(map[string]any{
		"align":          "Center",
		"align_vertical": "BOTTOM",
		"style":          "Bold_Italic",
		"font_type":      "System",
		"font_size":      9999.0,
		"x_offset_pct":   123.456,
		"y_offset_pct":   -12.344,
		"color":          "notacolor",
	}, 0)
	if field.AlignHorizontal != "center" || field.AlignVertical != "bottom" {
		t.Errorf("align = %q / %q", field.AlignHorizontal, field.AlignVertical)
	}
	if field.Style != "bold_italic" || field.FontType != "auto" {
		t.Errorf("style = %q font = %q", field.Style, field.FontType)
	}
	if field.FontSize != 300 {
		t.Errorf("FontSize = %d", field.FontSize)
	}
	if field.XOffsetPct != 100 || field.YOffsetPct != -12.34 {
		t.Errorf("offsets = %v / %v", field.XOffsetPct, field.YOffsetPct)
	}
	if field.Color != DefaultFieldColor {
		t.Errorf("Color = %q", field.Color)
	}
}

func TestNormalizeTextSourceLegacyChains(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]any
		expected TextSource
	}{
		{
			"explicit auto",
			map[string]any{"text_source": map[string]any{"type": "auto", "key": "{bird}"}},
			TextSource{SourceAuto, "{bird}"},
		},
		{
			"explicit provider collapses to auto",
			map[string]any{"text_source": map[string]any{"type": "report_db", "key": "rating"}},
			TextSource{SourceAuto, "rating"},
		},
		{
			"legacy report_db",
			map[string]any{"data_source": "report_db", "report_field": "bird_species_cn"},
			TextSource{SourceAuto, "bird_species_cn"},
		},
		{
			"legacy exif tag",
			map[string]any{"data_source": "exif", "tag": "EXIF:LensModel"},
			TextSource{SourceAuto, "EXIF:LensModel"},
		},
		{
			"legacy fallback placeholder",
			map[string]any{"fallback": "{capture_text}"},
			TextSource{SourceAuto, "{capture_text}"},
		},
		{
			"bare tag",
			map[string]any{"tag": "XMP-dc:Title"},
			TextSource{SourceAuto, "XMP-dc:Title"},
		},
		{
			"empty tag uses the default tag",
			map[string]any{"tag": ""},
			TextSource{SourceAuto, DefaultFieldTag},
		},
		{
			"provider_id alias",
			map[string]any{"text_source": map[string]any{"provider_id": "from_file", "source_key": "{stem}"}},
			TextSource{SourceAuto, "{stem}"},
		},
	}
	for _, test := range tests {
		if got := normalizeTextSource(test.data); got != test.expected {
			t.Errorf("%s: source = %+v, expected %+v", test.name, got, test.expected)
		}
	}
}

func TestRenormalizeIdempotent(t *testing.T) {
	payload := DefaultPayload("default")
	again := Renormalize(payload, "default")
	if !reflect.DeepEqual(payload, again) {
		t.Errorf("renormalization changed the payload:\n%+v\n%+v", payload, again)
	}
}

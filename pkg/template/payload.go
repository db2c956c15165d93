// Package template defines the banner template payload, its
// normalization rules, the text source providers, and the on-disk
// template repository.
package template

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/OscarKing888/BirdStamp-sub000/internal/utils"
	"github.com/OscarKing888/BirdStamp-sub000/pkg/subject"
)

// Banner background styles.
const (
	BannerStyleSolid          = "solid"
	BannerStyleGradientBottom = "gradient_bottom"
)

// Defaults and bounds applied during payload normalization.
const (
	DefaultGradientHeightPct     = 30.0
	GradientHeightPctMin         = 10.0
	GradientHeightPctMax         = 100.0
	DefaultGradientBottomOpacity = 62.0
	DefaultGradientTopOpacity    = 0.0
	DefaultGradientColor         = "#000000"
	DefaultCropPaddingPx         = 0
	DefaultCropPaddingFill       = "#FFFFFF"
	DefaultFieldColor            = "#FFFFFF"
	DefaultFieldFontSize         = 24
	DefaultFieldYOffsetPct       = 5.0
	DefaultFieldTag              = "EXIF:Model"

	// BannerTopPaddingPx extends the solid banner above the topmost text.
	BannerTopPaddingPx = 16
)

var (
	alignOptionsHorizontal = map[string]bool{"left": true, "center": true, "right": true}
	alignOptionsVertical   = map[string]bool{"top": true, "center": true, "bottom": true}
	styleOptions           = map[string]bool{"normal": true, "bold": true, "italic": true, "bold_italic": true}
)

// Field is one text line of the template.
type Field struct {
	Name string `json:"name" yaml:"name"`

	// Legacy source columns, kept in sync with TextSource on save so old
	// readers keep working.
	Tag         string `json:"tag" yaml:"tag"`
	Fallback    string `json:"fallback" yaml:"fallback"`
	DataSource  string `json:"data_source" yaml:"data_source"`
	ReportField string `json:"report_field" yaml:"report_field"`

	TextSource      TextSource `json:"text_source" yaml:"text_source"`
	AlignHorizontal string     `json:"align_horizontal" yaml:"align_horizontal"`
	AlignVertical   string     `json:"align_vertical" yaml:"align_vertical"`
	XOffsetPct      float64    `json:"x_offset_pct" yaml:"x_offset_pct"`
	YOffsetPct      float64    `json:"y_offset_pct" yaml:"y_offset_pct"`
	Color           string     `json:"color" yaml:"color"`
	FontSize        int        `json:"font_size" yaml:"font_size"`
	FontType        string     `json:"font_type" yaml:"font_type"`
	Style           string     `json:"style" yaml:"style"`
}

// Payload is a fully normalized template.
type Payload struct {
	Name                       string  `json:"name" yaml:"name"`
	Ratio                      float64 `json:"ratio" yaml:"ratio"`
	BannerColor                string  `json:"banner_color" yaml:"banner_color"`
	DrawBannerBackground       bool    `json:"draw_banner_background" yaml:"draw_banner_background"`
	BannerBackgroundStyle      string  `json:"banner_background_style" yaml:"banner_background_style"`
	BannerGradientHeightPct    float64 `json:"banner_gradient_height_pct" yaml:"banner_gradient_height_pct"`
	BannerGradientTopColor     string  `json:"banner_gradient_top_color" yaml:"banner_gradient_top_color"`
	BannerGradientTopOpacity   float64 `json:"banner_gradient_top_opacity_pct" yaml:"banner_gradient_top_opacity_pct"`
	BannerGradientBottomColor  string  `json:"banner_gradient_bottom_color" yaml:"banner_gradient_bottom_color"`
	BannerGradientBottomOpacity float64 `json:"banner_gradient_bottom_opacity_pct" yaml:"banner_gradient_bottom_opacity_pct"`
	CenterMode                 string  `json:"center_mode" yaml:"center_mode"`
	AutoCropByBird             bool    `json:"auto_crop_by_bird" yaml:"auto_crop_by_bird"`
	MaxLongEdge                int     `json:"max_long_edge" yaml:"max_long_edge"`
	CropPaddingTop             int     `json:"crop_padding_top" yaml:"crop_padding_top"`
	CropPaddingBottom          int     `json:"crop_padding_bottom" yaml:"crop_padding_bottom"`
	CropPaddingLeft            int     `json:"crop_padding_left" yaml:"crop_padding_left"`
	CropPaddingRight           int     `json:"crop_padding_right" yaml:"crop_padding_right"`
	CropPaddingFill            string  `json:"crop_padding_fill" yaml:"crop_padding_fill"`
	Fields                     []Field `json:"fields" yaml:"fields"`
}

// NormalizePayload coerces a raw decoded template into a valid Payload.
// Every value is clamped or defaulted; normalization is idempotent.
func NormalizePayload(raw map[string]any, fallbackName string) Payload {
	var fields []Field
	if rawFields, ok := raw["fields"].([]any); ok {
		for index, item := range rawFields {
			if fieldMap, ok := asMap(item); ok {
				fields = append(fields, NormalizeField(fieldMap, index))
			}
		}
	}
	if len(fields) == 0 {
		fields = append(fields, defaultField())
	}

	bannerColor := NormalizeBannerColor(asString(raw["banner_color"]))
	gradientFallback := DefaultGradientColor
	if bannerColor != "" && bannerColor != BannerColorNone {
		gradientFallback = bannerColor
	}

	name := strings.TrimSpace(asString(raw["name"]))
	if name == "" {
		name = fallbackName
	}

	payload := Payload{
		Name:                  name,
		Ratio:                 utils.ParseRatio(raw["ratio"]),
		BannerColor:           bannerColor,
		DrawBannerBackground:  utils.ParseBool(raw["draw_banner_background"], true),
		BannerBackgroundStyle: normalizeBannerStyle(asString(raw["banner_background_style"])),
		BannerGradientHeightPct: round2(clampFloat(
			raw["banner_gradient_height_pct"], GradientHeightPctMin, GradientHeightPctMax, DefaultGradientHeightPct)),
		BannerGradientTopOpacity: round2(clampFloat(
			raw["banner_gradient_top_opacity_pct"], 0, 100, DefaultGradientTopOpacity)),
		BannerGradientBottomOpacity: round2(clampFloat(
			raw["banner_gradient_bottom_opacity_pct"], 0, 100, DefaultGradientBottomOpacity)),
		CenterMode:        subject.NormalizeCenterMode(asString(raw["center_mode"])),
		AutoCropByBird:    utils.ParseBool(raw["auto_crop_by_bird"], true),
		MaxLongEdge:       maxInt(0, clampIntValue(raw["max_long_edge"], 0, 1<<30, 0)),
		CropPaddingTop:    clampIntValue(raw["crop_padding_top"], -9999, 9999, DefaultCropPaddingPx),
		CropPaddingBottom: clampIntValue(raw["crop_padding_bottom"], -9999, 9999, DefaultCropPaddingPx),
		CropPaddingLeft:   clampIntValue(raw["crop_padding_left"], -9999, 9999, DefaultCropPaddingPx),
		CropPaddingRight:  clampIntValue(raw["crop_padding_right"], -9999, 9999, DefaultCropPaddingPx),
		CropPaddingFill:   normalizeGradientColor(asString(raw["crop_padding_fill"]), DefaultCropPaddingFill),
		Fields:            fields,
	}

	// Gradient stop colors fall back to the banner color only when the
	// key is absent, so old single-color templates keep their look.
	payload.BannerGradientTopColor = gradientStopColor(raw, "banner_gradient_top_color", gradientFallback, DefaultGradientColor)
	payload.BannerGradientBottomColor = gradientStopColor(raw, "banner_gradient_bottom_color", gradientFallback, DefaultGradientColor)
	return payload
}

func gradientStopColor(raw map[string]any, key, legacyFallback, hardDefault string) string {
	value, present := raw[key]
	if !present {
		return normalizeGradientColor(legacyFallback, hardDefault)
	}
	return normalizeGradientColor(asString(value), hardDefault)
}

// NormalizeField coerces one raw field; index feeds the default name.
func NormalizeField(data map[string]any, index int) Field {
	alignH := lower(firstString(data, "align_horizontal", "align"))
	if !alignOptionsHorizontal[alignH] {
		alignH = "left"
	}
	alignV := lower(asString(data["align_vertical"]))
	if !alignOptionsVertical[alignV] {
		alignV = "top"
	}
	style := lower(asString(data["style"]))
	if !styleOptions[style] {
		style = "normal"
	}
	fontType := strings.TrimSpace(asString(data["font_type"]))
	switch lower(fontType) {
	case "", "auto", "default", "system", "none":
		fontType = "auto"
	}

	source := normalizeTextSource(data)

	name := strings.TrimSpace(asString(data["name"]))
	if name == "" {
		name = fmt.Sprintf("字段%d", index+1)
	}
	tag := strings.TrimSpace(asString(data["tag"]))
	if tag == "" {
		tag = DefaultFieldTag
	}
	field := Field{
		Name:            name,
		Tag:             tag,
		DataSource:      source.Type,
		TextSource:      source,
		AlignHorizontal: alignH,
		AlignVertical:   alignV,
		XOffsetPct:      round2(clampFloat(data["x_offset_pct"], -100, 100, 0)),
		YOffsetPct:      round2(clampFloat(data["y_offset_pct"], -100, 100, DefaultFieldYOffsetPct)),
		Color:           SafeColor(asString(data["color"]), DefaultFieldColor),
		FontSize:        clampIntValue(data["font_size"], 8, 300, DefaultFieldFontSize),
		FontType:        fontType,
		Style:           style,
	}
	switch source.Type {
	case SourceReportDB:
		field.ReportField = source.Key
	case SourceFromFile:
		field.Fallback = source.Key
	case SourceExif:
		field.Tag = source.Key
	}
	return field
}

// normalizeTextSource resolves the text_source object plus the legacy
// data_source/report_field/fallback/tag columns into one source.
func normalizeTextSource(data map[string]any) TextSource {
	sourceType := ""
	sourceKey := ""
	if sourceRaw, ok := asMap(data["text_source"]); ok {
		sourceType = NormalizeSourceType(firstString(sourceRaw, "type", "provider_id", "data_source"))
		sourceKey = strings.TrimSpace(firstString(sourceRaw, "key", "value", "source_key"))
	}

	legacyDataSource := NormalizeSourceType(asString(data["data_source"]))
	legacyReportField := strings.TrimSpace(asString(data["report_field"]))
	legacyFallback := strings.TrimSpace(asString(data["fallback"]))
	legacyTag := strings.TrimSpace(asString(data["tag"]))
	if legacyTag == "" {
		legacyTag = DefaultFieldTag
	}

	if sourceKey == "" {
		switch {
		case legacyDataSource == SourceReportDB && legacyReportField != "":
			sourceType, sourceKey = SourceAuto, legacyReportField
		case legacyDataSource == SourceExif && legacyTag != "":
			sourceType, sourceKey = SourceAuto, legacyTag
		case legacyFallback != "":
			sourceType, sourceKey = SourceAuto, legacyFallback
		case legacyReportField != "":
			sourceType, sourceKey = SourceAuto, legacyReportField
		case legacyTag != "":
			sourceType, sourceKey = SourceAuto, legacyTag
		}
	}

	sourceType = NormalizeSourceType(sourceType)
	// Explicit provider types collapse to auto; auto probes all
	// providers with the same key anyway.
	if sourceKey != "" && (sourceType == SourceExif || sourceType == SourceFromFile || sourceType == SourceReportDB) {
		sourceType = SourceAuto
	}
	if sourceKey == "" {
		sourceType = SourceAuto
		sourceKey = "{bird}"
	}
	return TextSource{Type: sourceType, Key: sourceKey}
}

func defaultField() Field {
	return NormalizeField(map[string]any{
		"name":        "鸟种",
		"text_source": map[string]any{"type": SourceAuto, "key": "{bird}"},
		"align":       "left",
		"align_vertical": "bottom",
		"y_offset_pct":   -4.0,
		"font_size":      44,
	}, 0)
}

func normalizeBannerStyle(value string) string {
	switch lower(value) {
	case BannerStyleSolid, BannerStyleGradientBottom:
		return lower(value)
	}
	return BannerStyleSolid
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return fmt.Sprint(value)
}

func firstString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if text := strings.TrimSpace(asString(data[key])); text != "" {
			return text
		}
	}
	return ""
}

// asMap tolerates YAML's map[any]any decoding.
func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		converted := make(map[string]any, len(v))
		for key, item := range v {
			converted[asString(key)] = item
		}
		return converted, true
	}
	return nil, false
}

func clampFloat(value any, minimum, maximum, fallback float64) float64 {
	parsed, ok := toFloat(value)
	if !ok {
		parsed = fallback
	}
	return math.Max(minimum, math.Min(maximum, parsed))
}

func clampIntValue(value any, minimum, maximum, fallback int) int {
	parsed, ok := toFloat(value)
	if !ok {
		parsed = float64(fallback)
	}
	result := int(parsed)
	if result < minimum {
		return minimum
	}
	if result > maximum {
		return maximum
	}
	return result
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

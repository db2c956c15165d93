package meta

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultBirdRegex extracts the species name from filenames like
// "白鹭_DSC1024.jpg".
const DefaultBirdRegex = `(?P<bird>[^_]+)_`

// DefaultTimeFormat is the display layout for capture timestamps.
const DefaultTimeFormat = "2006-01-02 15:04"

// Normalized is the flattened, display-ready view of one photo's
// metadata. Zero values mean "unknown".
type Normalized struct {
	Source       string
	Stem         string
	Bird         string
	CaptureAt    time.Time
	CaptureText  string
	Location     string
	GPSText      string
	Camera       string
	Lens         string
	Aperture     float64
	ShutterS     float64
	ISO          int
	FocalMM      float64
	Focal35MM    float64
	SettingsText string
	Author       string
	Raw          map[string]any
}

// Options controls bird-name resolution and timestamp formatting.
type Options struct {
	BirdArg      string
	BirdPriority []string // subset of "arg", "meta", "filename"
	BirdRegex    string
	TimeFormat   string
}

var datetimeLayouts = []string{
	"2006:01:02 15:04:05Z0700",
	"2006:01:02 15:04:05-07:00",
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalize flattens raw metadata for one source file.
func Normalize(source string, raw map[string]any, opts Options) Normalized {
	lookup := NormalizeLookup(raw)
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	captureAt := parseDateTime(Pick(lookup,
		"DateTimeOriginal", "CreateDate", "DateTimeCreated", "DateCreated", "MediaCreateDate"))
	if captureAt.IsZero() {
		if info, err := os.Stat(source); err == nil {
			captureAt = info.ModTime()
		}
	}
	timeFormat := opts.TimeFormat
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}
	captureText := ""
	if !captureAt.IsZero() {
		captureText = captureAt.Format(timeFormat)
	}

	gpsLat, latOK := toFloat(Pick(lookup, "GPSLatitude", "Composite:GPSLatitude"))
	gpsLon, lonOK := toFloat(Pick(lookup, "GPSLongitude", "Composite:GPSLongitude"))
	gpsText := ""
	if latOK && lonOK {
		gpsText = fmt.Sprintf("%.5f, %.5f", gpsLat, gpsLon)
	}

	location := dedupeJoin(
		CleanText(Pick(lookup, "SubLocation", "Location", "Sublocation")),
		CleanText(Pick(lookup, "City")),
		CleanText(Pick(lookup, "State", "Province-State")),
		CleanText(Pick(lookup, "Country", "Country-PrimaryLocationName")),
	)
	if location == "" {
		location = gpsText
	}

	cameraMake := CleanText(Pick(lookup, "Make"))
	model := CleanText(Pick(lookup, "Model", "CameraModelName"))
	camera := ""
	switch {
	case cameraMake != "" && model != "" && strings.HasPrefix(strings.ToLower(model), strings.ToLower(cameraMake)):
		camera = model
	case cameraMake != "" && model != "":
		camera = cameraMake + " " + model
	case cameraMake != "":
		camera = cameraMake
	default:
		camera = model
	}

	lens := CleanText(Pick(lookup, "LensModel", "LensID", "Lens", "LensType", "XMP:Lens"))

	aperture, _ := toFloat(Pick(lookup, "FNumber", "Aperture", "ApertureValue"))
	shutter := parseExposureSeconds(Pick(lookup, "ExposureTime", "ShutterSpeed"))
	iso, _ := toInt(Pick(lookup, "ISO", "PhotographicSensitivity"))
	focal, _ := toFloat(Pick(lookup, "FocalLength"))
	focal35, _ := toFloat(Pick(lookup, "FocalLengthIn35mmFormat", "FocalLength35efl"))

	metaBird := CleanText(Pick(lookup,
		"ImageDescription", "XPTitle", "Title", "ObjectName", "Headline", "Caption-Abstract", "Description"))
	fileBird := birdFromFilename(stem, opts.birdRegex())

	bird := ""
	for _, sourceName := range opts.birdPriority() {
		switch strings.ToLower(strings.TrimSpace(sourceName)) {
		case "arg":
			bird = CleanText(opts.BirdArg)
		case "meta":
			bird = metaBird
		case "filename":
			bird = fileBird
		}
		if bird != "" {
			break
		}
	}

	normalized := Normalized{
		Source:      source,
		Stem:        stem,
		Bird:        bird,
		CaptureAt:   captureAt,
		CaptureText: captureText,
		Location:    location,
		GPSText:     gpsText,
		Camera:      camera,
		Lens:        lens,
		Aperture:    aperture,
		ShutterS:    shutter,
		ISO:         iso,
		FocalMM:     focal,
		Focal35MM:   focal35,
		Author:      ExtractAuthor(lookup),
		Raw:         raw,
	}
	normalized.SettingsText = FormatSettingsLine(normalized, false)
	return normalized
}

func (o Options) birdPriority() []string {
	if len(o.BirdPriority) == 0 {
		return []string{"arg", "meta", "filename"}
	}
	return o.BirdPriority
}

func (o Options) birdRegex() string {
	if o.BirdRegex == "" {
		return DefaultBirdRegex
	}
	return o.BirdRegex
}

// FormatSettingsLine renders the exposure summary, e.g.
// "f/5.6  1/500s  ISO800  400mm".
func FormatSettingsLine(m Normalized, showEqFocal bool) string {
	var parts []string
	if m.Aperture > 0 {
		parts = append(parts, fmt.Sprintf("f/%s", trimFloat(m.Aperture)))
	}
	if m.ShutterS > 0 {
		parts = append(parts, formatShutter(m.ShutterS))
	}
	if m.ISO > 0 {
		parts = append(parts, fmt.Sprintf("ISO%d", m.ISO))
	}
	if m.FocalMM > 0 {
		focal := fmt.Sprintf("%smm", trimFloat(m.FocalMM))
		if showEqFocal && m.Focal35MM > 0 {
			focal = fmt.Sprintf("%s (%smm eq)", focal, trimFloat(m.Focal35MM))
		}
		parts = append(parts, focal)
	}
	return strings.Join(parts, "  ")
}

// ExtractAuthor scans the usual author/creator tags.
func ExtractAuthor(lookup map[string]any) string {
	return CleanText(Pick(lookup,
		"XMP-dc:Creator", "Creator", "Artist", "By-line", "XPAuthor", "Author", "OwnerName"))
}

// TemplateContext exposes the normalized fields under the lowercase names
// the template placeholder syntax uses.
func (m Normalized) TemplateContext() map[string]string {
	context := map[string]string{
		"bird":          m.Bird,
		"bird_latin":    "",
		"capture_date":  "",
		"capture_text":  m.CaptureText,
		"author":        m.Author,
		"location":      m.Location,
		"gps_text":      m.GPSText,
		"camera":        m.Camera,
		"lens":          m.Lens,
		"settings_text": m.SettingsText,
		"stem":          m.Stem,
		"filename":      filepath.Base(m.Source),
	}
	if !m.CaptureAt.IsZero() {
		context["capture_date"] = m.CaptureAt.Format("2006-01-02")
	}
	return context
}

func parseDateTime(value any) time.Time {
	text := CleanText(value)
	if text == "" {
		return time.Time{}
	}
	normalized := strings.TrimSpace(strings.ReplaceAll(text, "T", " "))
	if idx := strings.Index(normalized, "."); idx >= 0 {
		normalized = normalized[:idx]
	}
	for _, layout := range datetimeLayouts {
		if parsed, err := time.Parse(layout, normalized); err == nil {
			return parsed
		}
	}
	if parsed, err := time.Parse(time.RFC3339, text); err == nil {
		return parsed
	}
	return time.Time{}
}

func parseExposureSeconds(value any) float64 {
	if value == nil {
		return 0
	}
	if f, ok := value.(float64); ok {
		if f > 0 {
			return f
		}
		return 0
	}
	text := CleanText(value)
	if text == "" {
		return 0
	}
	text = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(text), "sec", ""), "s", ""))
	if left, right, found := strings.Cut(text, "/"); found {
		numerator, err1 := strconv.ParseFloat(strings.TrimSpace(left), 64)
		denominator, err2 := strconv.ParseFloat(strings.TrimSpace(right), 64)
		if err1 != nil || err2 != nil || denominator == 0 {
			return 0
		}
		if seconds := numerator / denominator; seconds > 0 {
			return seconds
		}
		return 0
	}
	seconds, err := strconv.ParseFloat(text, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return seconds
}

func formatShutter(seconds float64) string {
	if seconds < 1 {
		denominator := math.Round(1 / seconds)
		if denominator > 0 {
			return fmt.Sprintf("1/%ds", int(denominator))
		}
	}
	return fmt.Sprintf("%ss", trimFloat(seconds))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	text := CleanText(value)
	if text == "" {
		return 0, false
	}
	match := numberRe.FindString(text)
	if match == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func toInt(value any) (int, bool) {
	f, ok := toFloat(value)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

func dedupeJoin(parts ...string) string {
	seen := map[string]struct{}{}
	var ordered []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lowered := strings.ToLower(part)
		if _, ok := seen[lowered]; ok {
			continue
		}
		seen[lowered] = struct{}{}
		ordered = append(ordered, part)
	}
	return strings.Join(ordered, ", ")
}

func birdFromFilename(stem, birdRegex string) string {
	pattern, err := regexp.Compile(birdRegex)
	if err != nil {
		return ""
	}
	match := pattern.FindStringSubmatch(stem)
	if match == nil {
		return ""
	}
	for i, name := range pattern.SubexpNames() {
		if name == "bird" && i < len(match) {
			return CleanText(match[i])
		}
	}
	if len(match) > 1 {
		return CleanText(match[1])
	}
	return CleanText(match[0])
}

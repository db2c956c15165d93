package template

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/OscarKing888/BirdStamp-sub000/pkg/meta"
)

// PhotoInfo carries everything the text providers need about one photo.
type PhotoInfo struct {
	Path        string
	SidecarPath string
	Raw         map[string]any
}

// NewPhotoInfo builds a PhotoInfo, locating the sidecar XMP next to the
// file and merging its entries under the keys the raw metadata does not
// already carry.
func NewPhotoInfo(path string, raw map[string]any) PhotoInfo {
	merged := make(map[string]any, len(raw))
	for key, value := range raw {
		merged[key] = value
	}
	info := PhotoInfo{Path: path, Raw: merged}
	info.SidecarPath = meta.FindSidecarXMP(path)
	if info.SidecarPath != "" {
		for key, value := range meta.LoadSidecarXMP(path) {
			if _, exists := merged[key]; !exists {
				merged[key] = value
			}
		}
	}
	return info
}

// RowResolver maps a photo path to its report database row, if any.
type RowResolver func(path string) map[string]any

var (
	rowResolverMu sync.RWMutex
	rowResolver   RowResolver
)

// SetReportRowResolver installs the report database lookup used by the
// report_db text source. Pass nil to disable it.
func SetReportRowResolver(resolver RowResolver) {
	rowResolverMu.Lock()
	rowResolver = resolver
	rowResolverMu.Unlock()
}

func reportRow(info PhotoInfo) map[string]any {
	rowResolverMu.RLock()
	resolver := rowResolver
	rowResolverMu.RUnlock()
	if resolver == nil {
		return nil
	}
	return resolver(info.Path)
}

var (
	metaOptionsMu sync.RWMutex
	metaOptions   meta.Options
)

// SetMetaOptions installs the normalization options used when building
// placeholder contexts: bird-name override, source priority, filename
// regex, and time layout. Zero-value fields keep the defaults.
func SetMetaOptions(opts meta.Options) {
	metaOptionsMu.Lock()
	metaOptions = opts
	metaOptionsMu.Unlock()
}

// Report database columns that hold local paths and never become text.
var reportPathColumns = map[string]bool{
	"original_path":   true,
	"current_path":    true,
	"temp_jpeg_path":  true,
	"debug_crop_path": true,
	"yolo_debug_path": true,
}

var baseContextKeys = []string{
	"bird", "bird_latin", "bird_scientific", "bird_common",
	"bird_family", "bird_order", "bird_class", "bird_phylum", "bird_kingdom",
	"capture_date", "capture_text", "author", "location", "gps_text",
	"camera", "lens", "settings_text", "stem", "filename",
}

// fromFileKeyAliases maps legacy placeholder spellings onto the
// canonical context keys.
var fromFileKeyAliases = map[string]string{
	"capture_time":       "capture_text",
	"capture_datetime":   "capture_text",
	"date_time_original": "capture_text",
	"datetime_original":  "capture_text",
	"date":               "capture_date",
}

var fromFileKeyLabels = map[string]string{
	"bird":          "鸟种名称",
	"bird_latin":    "鸟种拉丁文名称",
	"capture_date":  "拍摄日期",
	"capture_text":  "拍摄日期时间",
	"author":        "作者",
	"location":      "拍摄地点",
	"gps_text":      "GPS 坐标文字",
	"camera":        "相机型号",
	"lens":          "镜头型号",
	"settings_text": "拍摄参数",
	"stem":          "文件名（不含扩展名）",
	"filename":      "完整文件名",
}

var braceKeyPattern = regexp.MustCompile(`^\{([^{}]+)\}$`)
var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// normalizeContextKey strips one level of braces, lowercases, and
// resolves aliases.
func normalizeContextKey(sourceKey string) string {
	text := strings.TrimSpace(sourceKey)
	if match := braceKeyPattern.FindStringSubmatch(text); match != nil {
		text = strings.TrimSpace(match[1])
	}
	lowered := strings.ToLower(text)
	if canonical, ok := fromFileKeyAliases[lowered]; ok {
		return canonical
	}
	return lowered
}

// FormatWithContext expands {key} placeholders; unknown keys expand to
// the empty string.
func FormatWithContext(text string, context map[string]string) string {
	if text == "" {
		return ""
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.TrimSpace(match[1 : len(match)-1])
		return context[strings.ToLower(key)]
	})
}

func normalizedMeta(info PhotoInfo) meta.Normalized {
	metaOptionsMu.RLock()
	opts := metaOptions
	metaOptionsMu.RUnlock()
	if len(opts.BirdPriority) == 0 {
		opts.BirdPriority = []string{"meta", "filename"}
	}
	return meta.Normalize(info.Path, info.Raw, opts)
}

func exifContextEntries(info PhotoInfo) map[string]string {
	m := normalizedMeta(info)
	entries := map[string]string{
		"bird":         m.Bird,
		"capture_text": m.CaptureText,
		"location":     m.Location,
		"gps_text":     m.GPSText,
		"camera":       m.Camera,
		"lens":         m.Lens,
	}
	settings := m.SettingsText
	if settings == "" {
		settings = meta.FormatSettingsLine(m, true)
	}
	if settings != "" {
		entries["settings_text"] = settings
	}
	return entries
}

func fromFileContextEntries(info PhotoInfo) map[string]string {
	m := normalizedMeta(info)
	entries := map[string]string{}
	if m.CaptureText != "" {
		entries["capture_text"] = m.CaptureText
	}
	if !m.CaptureAt.IsZero() {
		entries["capture_date"] = m.CaptureAt.Format("2006-01-02")
	}
	if m.Author != "" {
		entries["author"] = m.Author
	}
	return entries
}

func reportContextEntries(info PhotoInfo) map[string]string {
	row := reportRow(info)
	if row == nil {
		return nil
	}
	entries := map[string]string{}
	if speciesCN := meta.CleanText(row["bird_species_cn"]); speciesCN != "" {
		entries["bird"] = speciesCN
		entries["bird_common"] = speciesCN
	}
	if speciesEN := meta.CleanText(row["bird_species_en"]); speciesEN != "" {
		entries["bird_latin"] = speciesEN
		entries["bird_scientific"] = speciesEN
	}
	columns := make([]string, 0, len(row))
	for column := range row {
		if !reportPathColumns[column] {
			columns = append(columns, column)
		}
	}
	sort.Strings(columns)
	for _, column := range columns {
		entries["report."+column] = meta.CleanText(row[column])
	}
	return entries
}

// BuildContext assembles the placeholder context for one photo. The
// report database row overrides EXIF, which overrides filename-derived
// entries, matching the trust order of the sources.
func BuildContext(info PhotoInfo) map[string]string {
	context := make(map[string]string, len(baseContextKeys))
	for _, key := range baseContextKeys {
		context[key] = ""
	}
	base := filepath.Base(info.Path)
	context["stem"] = strings.TrimSuffix(base, filepath.Ext(base))
	context["filename"] = base
	for key, value := range exifContextEntries(info) {
		context[key] = value
	}
	for key, value := range fromFileContextEntries(info) {
		context[key] = value
	}
	for key, value := range reportContextEntries(info) {
		context[key] = value
	}
	return context
}

func fromFileText(info PhotoInfo, sourceKey string) string {
	context := BuildContext(info)
	if key := normalizeContextKey(sourceKey); key != "" {
		if value := meta.CleanText(context[key]); value != "" {
			return value
		}
	}
	text := strings.TrimSpace(sourceKey)
	if strings.Contains(text, "{") && strings.Contains(text, "}") {
		return meta.CleanText(FormatWithContext(text, context))
	}
	return ""
}

func exifText(info PhotoInfo, sourceKey string) string {
	return meta.LookupTag(sourceKey, meta.NormalizeLookup(info.Raw), exifContextEntries(info))
}

func reportText(info PhotoInfo, sourceKey string) string {
	key := strings.TrimSpace(sourceKey)
	if key == "" {
		return ""
	}
	entries := reportContextEntries(info)
	if entries == nil {
		return ""
	}
	if value, ok := entries[key]; ok {
		return meta.CleanText(value)
	}
	if !strings.HasPrefix(key, "report.") {
		if value, ok := entries["report."+key]; ok {
			return meta.CleanText(value)
		}
	}
	row := reportRow(info)
	if row == nil {
		return ""
	}
	return meta.CleanText(row[strings.TrimPrefix(key, "report.")])
}

type autoRoute struct {
	provider string
	keys     []string
}

// autoRoutes maps logical field keys to per-provider candidate keys.
// Providers absent from a route contribute nothing for that key.
var autoRoutes = map[string][]autoRoute{
	"bird_species_cn": {
		{SourceExif, []string{"XMP-dc:Title", "IFD0:XPTitle", "Title", "XPTitle", "EXIF:ImageDescription", "ImageDescription"}},
		{SourceReportDB, []string{"bird_species_cn", "report.bird_species_cn"}},
	},
	"title": {
		{SourceExif, []string{"XMP-dc:Title", "IFD0:XPTitle", "Title", "XPTitle"}},
		{SourceReportDB, []string{"title", "report.title"}},
	},
	"caption": {
		{SourceExif, []string{"XMP-dc:Description", "IPTC:Caption-Abstract", "Caption-Abstract", "EXIF:ImageDescription", "ImageDescription"}},
		{SourceReportDB, []string{"caption", "report.caption"}},
	},
	"capture_text": {
		{SourceFromFile, []string{"capture_text", "{capture_text}"}},
		{SourceExif, []string{"EXIF:DateTimeOriginal", "DateTimeOriginal", "EXIF:CreateDate", "CreateDate"}},
		{SourceReportDB, []string{"date_time_original", "report.date_time_original"}},
	},
	"camera_model": {
		{SourceFromFile, []string{"camera", "{camera}"}},
		{SourceExif, []string{"EXIF:Model", "IFD0:Model", "Model"}},
		{SourceReportDB, []string{"camera_model", "report.camera_model"}},
	},
	"lens_model": {
		{SourceFromFile, []string{"lens", "{lens}"}},
		{SourceExif, []string{"EXIF:LensModel", "ExifIFD:LensModel", "LensModel"}},
		{SourceReportDB, []string{"lens_model", "report.lens_model"}},
	},
	"rating": {
		{SourceExif, []string{"XMP-xmp:Rating", "Rating", "Sony:Rating"}},
		{SourceReportDB, []string{"rating", "report.rating"}},
	},
}

var autoProviderOrder = []string{SourceFromFile, SourceExif, SourceReportDB}

func providerText(provider string, info PhotoInfo, sourceKey string) string {
	switch provider {
	case SourceFromFile:
		return fromFileText(info, sourceKey)
	case SourceExif:
		return exifText(info, sourceKey)
	case SourceReportDB:
		return reportText(info, sourceKey)
	}
	return ""
}

func autoCandidateKeys(provider, sourceKey string) []string {
	if routes, ok := autoRoutes[normalizeContextKey(sourceKey)]; ok {
		for _, route := range routes {
			if route.provider == provider {
				return route.keys
			}
		}
		return nil
	}
	return []string{sourceKey}
}

// autoText probes the providers in trust order and returns the first
// non-empty candidate.
func autoText(info PhotoInfo, sourceKey string) string {
	for _, provider := range autoProviderOrder {
		for _, key := range autoCandidateKeys(provider, sourceKey) {
			if text := providerText(provider, info, key); text != "" {
				return text
			}
		}
	}
	return ""
}

// ResolveSourceText resolves one text source against a photo.
func ResolveSourceText(info PhotoInfo, source TextSource) string {
	key := strings.TrimSpace(source.Key)
	if key == "" {
		return ""
	}
	switch NormalizeSourceType(source.Type) {
	case SourceFromFile:
		return fromFileText(info, key)
	case SourceExif:
		return exifText(info, key)
	case SourceReportDB:
		return reportText(info, key)
	}
	return autoText(info, key)
}

// FieldCaption is the placeholder text shown when a field resolves to
// nothing: its name, then the label of its source key, then a marker.
func FieldCaption(field Field) string {
	if name := strings.TrimSpace(field.Name); name != "" {
		return name
	}
	if label := fromFileKeyLabels[normalizeContextKey(field.TextSource.Key)]; label != "" {
		return label
	}
	return "未设置"
}

// ResolveFieldText produces the text a field renders: the resolved
// source text, or the field caption when every source comes up empty.
func ResolveFieldText(info PhotoInfo, field Field) string {
	if text := ResolveSourceText(info, field.TextSource); text != "" {
		return text
	}
	return FieldCaption(field)
}

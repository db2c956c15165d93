package template

// Text source types. "auto" probes from-file context, EXIF tags, and
// the report database in order.
const (
	SourceAuto     = "auto"
	SourceExif     = "exif"
	SourceFromFile = "from_file"
	SourceReportDB = "report_db"

	// Old templates used "metadata" for what is now "auto".
	sourceMetadataLegacy = "metadata"
)

// TextSource identifies where a field's text comes from.
type TextSource struct {
	Type string `json:"type" yaml:"type"`
	Key  string `json:"key" yaml:"key"`
}

// NormalizeSourceType maps arbitrary input to a valid source type.
func NormalizeSourceType(value string) string {
	switch lower(value) {
	case sourceMetadataLegacy:
		return SourceAuto
	case SourceAuto, SourceExif, SourceFromFile, SourceReportDB:
		return lower(value)
	}
	return SourceAuto
}

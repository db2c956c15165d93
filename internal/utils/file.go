package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultImageExtensions are the inputs picked up during discovery.
var DefaultImageExtensions = []string{"jpg", "jpeg", "png", "webp"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// FileExtension returns the lowercase file extension without the dot
func FileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// ParseExtensionList splits a comma-separated extension filter,
// tolerating dots and whitespace. Empty input yields the defaults.
func ParseExtensionList(value string) []string {
	var exts []string
	for _, part := range strings.Split(value, ",") {
		ext := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), ".")))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		return append([]string(nil), DefaultImageExtensions...)
	}
	return exts
}

// HasExtension checks a filename against an extension allow-list
func HasExtension(filename string, exts []string) bool {
	ext := FileExtension(filename)
	for _, allowed := range exts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// DiscoverImages lists the image files under a path. A file path
// returns itself; a directory is scanned, recursively when asked.
// Results are sorted for stable batch ordering.
func DiscoverImages(path string, exts []string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	if recursive {
		err = filepath.Walk(path, func(candidate string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && HasExtension(candidate, exts) {
				files = append(files, candidate)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && HasExtension(entry.Name(), exts) {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// ExpandOutputName fills an output name template with per-file values.
// Supported placeholders: {stem}, {ext}, plus whatever the caller adds
// to the values map (date, camera, bird).
func ExpandOutputName(nameTemplate, inputFile string, values map[string]string) string {
	baseName := filepath.Base(inputFile)
	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))

	expanded := nameTemplate
	if expanded == "" {
		expanded = "{stem}"
	}
	replacements := map[string]string{"stem": stem, "ext": FileExtension(inputFile)}
	for key, value := range values {
		replacements[key] = value
	}
	for key, value := range replacements {
		expanded = strings.ReplaceAll(expanded, "{"+key+"}", value)
	}
	return SanitizeFilename(expanded)
}

// OutputPath builds the full output path for one input file
func OutputPath(inputFile, outputDir, nameTemplate, format string, values map[string]string) string {
	if format == "" {
		format = FileExtension(inputFile)
		if format == "" {
			format = "jpg"
		}
	}
	name := ExpandOutputName(nameTemplate, inputFile, values)
	return filepath.Join(outputDir, name+"."+format)
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename

	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Remove leading/trailing spaces and dots
	result = strings.Trim(result, " .")

	return result
}

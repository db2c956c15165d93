package meta

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	numberRe     = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
)

// CleanText flattens a raw metadata value into a single trimmed line.
// Slices are joined with spaces, NUL bytes become spaces, and runs of
// whitespace collapse. Returns "" when nothing usable remains.
func CleanText(value any) string {
	if value == nil {
		return ""
	}
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			part := strings.TrimSpace(fmt.Sprint(item))
			if part != "" {
				parts = append(parts, part)
			}
		}
		text = strings.Join(parts, " ")
	case []string:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			item = strings.TrimSpace(item)
			if item != "" {
				parts = append(parts, item)
			}
		}
		text = strings.Join(parts, " ")
	default:
		text = fmt.Sprint(v)
	}
	text = strings.ReplaceAll(text, "\x00", " ")
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	return text
}

// NormalizeLookup lowercases every key and additionally registers the
// suffix after the last colon, so "Composite:FocusX" answers to both
// "composite:focusx" and "focusx". First writer wins on collisions.
func NormalizeLookup(raw map[string]any) map[string]any {
	lookup := make(map[string]any, len(raw)*2)
	for key, value := range raw {
		keyText := strings.ToLower(strings.TrimSpace(key))
		if keyText == "" {
			continue
		}
		if _, exists := lookup[keyText]; !exists {
			lookup[keyText] = value
		}
		if idx := strings.LastIndex(keyText, ":"); idx >= 0 {
			suffix := keyText[idx+1:]
			if suffix != "" {
				if _, exists := lookup[suffix]; !exists {
					lookup[suffix] = value
				}
			}
		}
	}
	return lookup
}

// ExtractNumbers pulls every numeric token out of a metadata value,
// recursing into slices. Free-form strings like "4095 2697 492 328" are
// common for subject-area tags.
func ExtractNumbers(value any) []float64 {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case float64:
		return []float64{v}
	case float32:
		return []float64{float64(v)}
	case int:
		return []float64{float64(v)}
	case int64:
		return []float64{float64(v)}
	case []any:
		var numbers []float64
		for _, item := range v {
			numbers = append(numbers, ExtractNumbers(item)...)
		}
		return numbers
	}
	var numbers []float64
	for _, token := range numberRe.FindAllString(fmt.Sprint(value), -1) {
		var parsed float64
		if _, err := fmt.Sscanf(token, "%g", &parsed); err == nil {
			numbers = append(numbers, parsed)
		}
	}
	return numbers
}

// LookupTag resolves a tag name against a pre-resolved context map and a
// normalized lookup: context key first, then the direct key, then the
// suffix after the last colon, then any lookup key ending in ":tag".
func LookupTag(tag string, lookup map[string]any, context map[string]string) string {
	token := strings.ToLower(strings.TrimSpace(tag))
	if token == "" {
		return ""
	}
	if context != nil {
		if text := CleanText(context[token]); text != "" {
			return text
		}
	}
	value, ok := lookup[token]
	if !ok && strings.Contains(token, ":") {
		value, ok = lookup[token[strings.LastIndex(token, ":")+1:]]
	}
	if !ok {
		suffix := ":" + token
		for key, candidate := range lookup {
			if strings.HasSuffix(key, suffix) {
				value = candidate
				break
			}
		}
	}
	return CleanText(value)
}

// Pick returns the first non-empty value among the candidate keys.
func Pick(lookup map[string]any, candidates ...string) any {
	for _, key := range candidates {
		value, ok := lookup[strings.ToLower(key)]
		if !ok {
			continue
		}
		if text, isText := value.(string); isText && strings.TrimSpace(text) == "" {
			continue
		}
		if value == nil {
			continue
		}
		return value
	}
	return nil
}

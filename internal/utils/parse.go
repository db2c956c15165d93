package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBool accepts the usual textual spellings plus numbers; anything
// unrecognized yields the fallback.
func ParseBool(value any, fallback bool) bool {
	switch v := value.(type) {
	case nil:
		return fallback
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	switch strings.ToLower(strings.TrimSpace(toString(value))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return fallback
}

// ParseRatio parses an aspect ratio from a number or a "W:H" string.
// Zero means "keep the original ratio"; non-positive input maps to it.
func ParseRatio(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		if v > 0 {
			return v
		}
		return 0
	case int:
		if v > 0 {
			return float64(v)
		}
		return 0
	}
	text := strings.TrimSpace(toString(value))
	if text == "" {
		return 0
	}
	if left, right, found := strings.Cut(text, ":"); found {
		w, err1 := strconv.ParseFloat(strings.TrimSpace(left), 64)
		h, err2 := strconv.ParseFloat(strings.TrimSpace(right), 64)
		if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
			return 0
		}
		return w / h
	}
	ratio, err := strconv.ParseFloat(text, 64)
	if err != nil || ratio <= 0 {
		return 0
	}
	return ratio
}

// ParsePadding parses a per-edge padding in pixels, clamped to a sane
// range. Negative paddings shrink the keep box.
func ParsePadding(value any, fallback int) int {
	const limit = 9999
	parsed := fallback
	switch v := value.(type) {
	case nil:
	case int:
		parsed = v
	case float64:
		parsed = int(v)
	default:
		text := strings.TrimSpace(toString(value))
		if text == "" {
			break
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			parsed = int(f)
		}
	}
	if parsed < -limit {
		return -limit
	}
	if parsed > limit {
		return limit
	}
	return parsed
}

func toString(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

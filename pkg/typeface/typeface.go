// Package typeface resolves and caches the fonts used for banner text.
// Resolution never fails: when no TrueType font can be loaded the fixed
// 7x13 bitmap face stands in, so rendering always produces output.
package typeface

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// PathFromType maps a field font_type to a concrete file path. "auto"
// and friends mean the system default and return the empty string, as
// does a path that does not point at an existing file.
func PathFromType(fontType string) string {
	text := strings.TrimSpace(fontType)
	switch strings.ToLower(text) {
	case "", "auto", "default", "system", "none":
		return ""
	}
	if strings.HasPrefix(text, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			text = filepath.Join(home, strings.TrimPrefix(text, "~"))
		}
	}
	if info, err := os.Stat(text); err == nil && !info.IsDir() {
		return text
	}
	return ""
}

// systemFontCandidates lists fonts with CJK coverage first, since the
// builtin templates label fields in Chinese.
func systemFontCandidates() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Windows\Fonts\msyh.ttc`,
			`C:\Windows\Fonts\simhei.ttf`,
			`C:\Windows\Fonts\simsun.ttc`,
			`C:\Windows\Fonts\arial.ttf`,
		}
	case "darwin":
		return []string{
			"/System/Library/Fonts/PingFang.ttc",
			"/System/Library/Fonts/Hiragino Sans GB.ttc",
			"/Library/Fonts/Arial Unicode.ttf",
		}
	}
	return []string{
		"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
		"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}
}

// Source loads one font file and hands out cached faces per size.
type Source struct {
	path string

	once   sync.Once
	parsed *truetype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewSource builds a source for a font file. An empty path selects the
// first loadable system font.
func NewSource(path string) *Source {
	return &Source{path: path, faces: map[float64]font.Face{}}
}

func (s *Source) load() {
	candidates := systemFontCandidates()
	if s.path != "" {
		candidates = append([]string{s.path}, candidates...)
	}
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		parsed, err := truetype.Parse(data)
		if err != nil {
			continue
		}
		s.parsed = parsed
		return
	}
}

// Face returns a rendering face at the given point size.
func (s *Source) Face(points float64) font.Face {
	if points <= 0 {
		points = 12
	}
	s.once.Do(s.load)
	if s.parsed == nil {
		return basicfont.Face7x13
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if face, ok := s.faces[points]; ok {
		return face
	}
	face := truetype.NewFace(s.parsed, &truetype.Options{Size: points})
	s.faces[points] = face
	return face
}

// Measure reports the pixel box of text at the given size, matching
// what drawing that text would occupy.
func (s *Source) Measure(text string, points float64) (int, int) {
	face := s.Face(points)
	drawer := font.Drawer{Face: face}
	width := drawer.MeasureString(text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

var (
	defaultMu     sync.Mutex
	defaultSource *Source
	pathSources   = map[string]*Source{}
)

// Default returns the process-wide system font source.
func Default() *Source {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSource == nil {
		defaultSource = NewSource("")
	}
	return defaultSource
}

// ForType resolves a field font_type into a source, sharing the default
// source for "auto". Sources are memoized per path so a font file is
// parsed once per process, not once per field.
func ForType(fontType string) *Source {
	path := PathFromType(fontType)
	if path == "" {
		return Default()
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	source, ok := pathSources[path]
	if !ok {
		source = NewSource(path)
		pathSources[path] = source
	}
	return source
}

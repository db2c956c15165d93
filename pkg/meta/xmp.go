package meta

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
)

const (
	rdfNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	xmlNamespace = "http://www.w3.org/XML/1998/namespace"
)

var xmpNamespacePrefixes = map[string]string{
	"http://purl.org/dc/elements/1.1/":            "XMP-dc",
	"http://ns.adobe.com/photoshop/1.0/":          "XMP-photoshop",
	"http://ns.adobe.com/xap/1.0/":                "XMP",
	"http://ns.adobe.com/xmp/1.0/DynamicMedia/":   "XMP-xmpDM",
}

type xmpNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmpNode  `xml:",any"`
	Text     string     `xml:",chardata"`
}

// FindSidecarXMP locates the .xmp sidecar for a source file, matching
// the stem case-insensitively on the suffix.
func FindSidecarXMP(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	base := strings.TrimSuffix(sourcePath, ext)
	for _, candidate := range []string{base + ".xmp", base + ".XMP"} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	stem := filepath.Base(base)
	entries, err := os.ReadDir(filepath.Dir(sourcePath))
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".xmp") {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) == stem {
			return filepath.Join(filepath.Dir(sourcePath), name)
		}
	}
	return ""
}

// LoadSidecarXMP parses the RDF description properties out of a sidecar
// XMP file into exiftool-style "Prefix:Local" keys. Missing or broken
// sidecars yield an empty map.
func LoadSidecarXMP(sourcePath string) map[string]any {
	xmpPath := FindSidecarXMP(sourcePath)
	if xmpPath == "" {
		return map[string]any{}
	}
	payload, err := os.ReadFile(xmpPath)
	if err != nil {
		return map[string]any{}
	}
	var root xmpNode
	if err := xml.Unmarshal(payload, &root); err != nil {
		return map[string]any{}
	}
	parsed := map[string]any{}
	for _, desc := range findNodes(root, rdfNamespace, "Description") {
		for _, child := range desc.Children {
			local := strings.TrimSpace(child.XMLName.Local)
			if local == "" {
				continue
			}
			value := xmpPropertyValue(child)
			if value == nil {
				continue
			}
			prefix, ok := xmpNamespacePrefixes[child.XMLName.Space]
			if !ok {
				prefix = "XMP"
			}
			parsed[prefix+":"+local] = value
			if child.XMLName.Space == "http://purl.org/dc/elements/1.1/" {
				switch strings.ToLower(local) {
				case "title":
					setDefault(parsed, "XMP:Title", value)
					setDefault(parsed, "Title", value)
				case "description":
					setDefault(parsed, "XMP:Description", value)
				}
			}
		}
	}
	if len(parsed) > 0 {
		parsed["XMP:SidecarFile"] = xmpPath
	}
	return parsed
}

// xmpPropertyValue prefers the x-default rdf:li item, then the sole li,
// then rdf:resource, then the node's own text.
func xmpPropertyValue(node xmpNode) any {
	items := findNodes(node, rdfNamespace, "li")
	if len(items) > 0 {
		var defaultText string
		var values []string
		for _, li := range items {
			text := CleanText(li.Text)
			if text == "" {
				continue
			}
			values = append(values, text)
			for _, attr := range li.Attrs {
				if attr.Name.Space == xmlNamespace && attr.Name.Local == "lang" &&
					strings.EqualFold(strings.TrimSpace(attr.Value), "x-default") && defaultText == "" {
					defaultText = text
				}
			}
		}
		if defaultText != "" {
			return defaultText
		}
		if len(values) == 1 {
			return values[0]
		}
		if len(values) > 1 {
			anyValues := make([]any, len(values))
			for i, v := range values {
				anyValues[i] = v
			}
			return anyValues
		}
	}
	for _, attr := range node.Attrs {
		if attr.Name.Space == rdfNamespace && attr.Name.Local == "resource" {
			if text := CleanText(attr.Value); text != "" {
				return text
			}
		}
	}
	if text := CleanText(node.Text); text != "" {
		return text
	}
	if text := CleanText(collectText(node)); text != "" {
		return text
	}
	return nil
}

func findNodes(node xmpNode, space, local string) []xmpNode {
	var found []xmpNode
	for _, child := range node.Children {
		if child.XMLName.Space == space && child.XMLName.Local == local {
			found = append(found, child)
		}
		found = append(found, findNodes(child, space, local)...)
	}
	return found
}

func collectText(node xmpNode) string {
	parts := []string{node.Text}
	for _, child := range node.Children {
		parts = append(parts, collectText(child))
	}
	return strings.Join(parts, " ")
}

func setDefault(m map[string]any, key string, value any) {
	if _, exists := m[key]; !exists {
		m[key] = value
	}
}

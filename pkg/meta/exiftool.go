package meta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
)

// exiftool invocation modes.
const (
	ExiftoolAuto = "auto" // use exiftool when available, else empty metadata
	ExiftoolOn   = "on"   // require exiftool, error when missing
	ExiftoolOff  = "off"  // never invoke exiftool
)

// ExtractBatch runs exiftool once over all paths and returns raw
// metadata keyed by source file. In auto mode a missing binary yields an
// empty map rather than an error; callers fall back to sidecar/decoder
// metadata per file.
func ExtractBatch(paths []string, mode string) (map[string]map[string]any, error) {
	result := make(map[string]map[string]any, len(paths))
	if len(paths) == 0 || mode == ExiftoolOff {
		return result, nil
	}
	binary, err := exec.LookPath("exiftool")
	if err != nil {
		if mode == ExiftoolOn {
			return nil, fmt.Errorf("exiftool not found: %w", err)
		}
		return result, nil
	}

	args := append([]string{"-j", "-n", "-fast2"}, paths...)
	cmd := exec.Command(binary, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	// exiftool exits non-zero when any single file fails; partial JSON
	// output is still usable.
	runErr := cmd.Run()

	var entries []map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		if runErr != nil {
			if mode == ExiftoolOn {
				return nil, fmt.Errorf("exiftool failed: %w", runErr)
			}
			return result, nil
		}
		return nil, fmt.Errorf("exiftool output parse failed: %w", err)
	}
	for _, entry := range entries {
		source, _ := entry["SourceFile"].(string)
		if source == "" {
			continue
		}
		result[source] = entry
	}
	return result, nil
}

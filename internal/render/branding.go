package render

import (
	"os"
	"strings"
)

// LocateLogo returns the first candidate path that exists as a regular file.
func LocateLogo(candidates ...string) (string, bool) {
	for _, candidate := range candidates {
		path := strings.TrimSpace(candidate)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

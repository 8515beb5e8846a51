package export

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// imagePattern matches markdown image references: ![alt](target)
var imagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

// mimeByExt is the fixed fallback table for image MIME detection.
// Unknown extensions default to png.
var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// inlineImages rewrites every local image reference in the markdown to an
// embedded data URI. Network URLs and already-embedded data references pass
// through unchanged. A missing local file becomes a visible placeholder and
// processing continues: per-image failure is non-fatal to the export.
func (e *Exporter) inlineImages(content string) string {
	return imagePattern.ReplaceAllStringFunc(content, func(ref string) string {
		m := imagePattern.FindStringSubmatch(ref)
		alt := m[1]
		target := strings.TrimSpace(m[2])

		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "data:") {
			return ref
		}

		localPath, found := e.locateImage(target)
		if !found {
			log.Printf("Export image not found: %s", target)
			return fmt.Sprintf("![%s](image not found: %s)", alt, target)
		}

		dataURI, err := encodeImage(localPath)
		if err != nil {
			log.Printf("Export image encode failed for %s: %v", localPath, err)
			return fmt.Sprintf("![%s](image not found: %s)", alt, target)
		}
		return fmt.Sprintf("![%s](%s)", alt, dataURI)
	})
}

// locateImage resolves a markdown image target to a file on disk. Rooted
// /static/ paths map into the static directory; bare relative paths are tried
// against the static directory first, then as given.
func (e *Exporter) locateImage(target string) (string, bool) {
	var candidates []string
	if strings.HasPrefix(target, "/static/") {
		candidates = []string{filepath.Join(e.staticDir, strings.TrimPrefix(target, "/static/"))}
	} else {
		candidates = []string{
			filepath.Join(e.staticDir, target),
			target,
		}
	}

	for _, candidate := range candidates {
		candidate = filepath.Clean(candidate)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// encodeImage reads the file and produces a data URI with the MIME type
// determined from its extension.
func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	mimeType, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mimeType = "image/png"
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

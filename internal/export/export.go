package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/medianote/api/internal/client"
)

// supportedFormats is the canonical set reported on dispatch failure
const supportedFormats = "pdf, html, word/docx, image/png"

// UnsupportedFormatError reports an unrecognized export format token.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q, supported: %s", e.Format, supportedFormats)
}

// Renderer converts the prepared markdown into document bytes.
type Renderer interface {
	Render(ctx context.Context, title, content string) ([]byte, error)
	Extension() string
}

// Exporter turns note markdown into a document artifact with all local images
// inlined.
type Exporter struct {
	outputDir string
	staticDir string
	renderers map[string]Renderer
}

// NewExporter wires the renderer set against the document rendering service.
func NewExporter(outputDir, staticDir string, renderer client.DocumentRenderer) *Exporter {
	return &Exporter{
		outputDir: outputDir,
		staticDir: staticDir,
		renderers: map[string]Renderer{
			"pdf":  &pdfRenderer{renderer: renderer},
			"html": &serviceRenderer{renderer: renderer, format: "html", ext: "html"},
			"docx": &serviceRenderer{renderer: renderer, format: "docx", ext: "docx"},
			"png":  &serviceRenderer{renderer: renderer, format: "png", ext: "png"},
		},
	}
}

// canonicalFormat maps an input token (case-insensitive, with aliases) to the
// renderer key.
func canonicalFormat(format string) (string, bool) {
	switch strings.ToLower(format) {
	case "pdf":
		return "pdf", true
	case "html":
		return "html", true
	case "word", "docx":
		return "docx", true
	case "image", "png":
		return "png", true
	default:
		return "", false
	}
}

// sanitizeTitle strips path separators and traversal dots so the title
// cannot name a file outside the output directory.
func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	replacer := strings.NewReplacer("/", "-", "\\", "-", string(os.PathSeparator), "-")
	title = replacer.Replace(title)
	title = strings.Trim(title, ".")
	if title == "" {
		title = "untitled"
	}
	return title
}

// Export trims the content, inlines local images, dispatches to the renderer
// for the requested format and writes the artifact to the output directory as
// <title>.<extension>. The final path only appears after the full write.
func (e *Exporter) Export(ctx context.Context, format, title, content string) (string, error) {
	content = strings.TrimSpace(content)
	content = e.inlineImages(content)

	key, ok := canonicalFormat(format)
	if !ok {
		return "", &UnsupportedFormatError{Format: format}
	}
	renderer := e.renderers[key]

	data, err := renderer.Render(ctx, title, content)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("output dir: %w", err)
	}

	name := sanitizeTitle(title)
	finalPath := filepath.Join(e.outputDir, name+"."+renderer.Extension())
	tmp, err := os.CreateTemp(e.outputDir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("finalize artifact: %w", err)
	}

	log.Printf("Exported %q as %s", title, finalPath)
	return finalPath, nil
}

// serviceRenderer delegates to the rendering service for a single format.
type serviceRenderer struct {
	renderer client.DocumentRenderer
	format   string
	ext      string
}

func (r *serviceRenderer) Extension() string { return r.ext }

func (r *serviceRenderer) Render(ctx context.Context, title, content string) ([]byte, error) {
	return r.renderer.Render(ctx, &client.RenderRequest{
		Format:  r.format,
		Title:   title,
		Content: content,
	})
}

// pdfRenderer retries a failed primary attempt exactly once with minimal
// options before propagating the failure.
type pdfRenderer struct {
	renderer client.DocumentRenderer
}

func (r *pdfRenderer) Extension() string { return "pdf" }

func (r *pdfRenderer) Render(ctx context.Context, title, content string) ([]byte, error) {
	data, err := r.renderer.Render(ctx, &client.RenderRequest{
		Format:  "pdf",
		Title:   title,
		Content: content,
	})
	if err == nil {
		return data, nil
	}
	log.Printf("PDF render failed, retrying with minimal options: %v", err)

	return r.renderer.Render(ctx, &client.RenderRequest{
		Format:  "pdf",
		Title:   title,
		Content: content,
		Minimal: true,
	})
}

package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medianote/api/internal/client"
)

// fakeRenderer records render calls and returns canned document bytes.
type fakeRenderer struct {
	requests []*client.RenderRequest
	failures int // fail this many leading calls
}

func (f *fakeRenderer) Render(ctx context.Context, req *client.RenderRequest) ([]byte, error) {
	f.requests = append(f.requests, req)
	if len(f.requests) <= f.failures {
		return nil, errors.New("render service unavailable")
	}
	return []byte("rendered:" + req.Format), nil
}

func (f *fakeRenderer) HealthCheck(ctx context.Context) error { return nil }

func newTestExporter(t *testing.T, renderer client.DocumentRenderer) (*Exporter, string, string) {
	t.Helper()
	outputDir := filepath.Join(t.TempDir(), "output")
	staticDir := t.TempDir()
	return NewExporter(outputDir, staticDir, renderer), outputDir, staticDir
}

func TestExport_FormatDispatch(t *testing.T) {
	cases := []struct {
		token   string
		wantExt string
	}{
		{"pdf", "pdf"},
		{"PDF", "pdf"},
		{"html", "html"},
		{"word", "docx"},
		{"docx", "docx"},
		{"image", "png"},
		{"png", "png"},
	}

	for _, tc := range cases {
		t.Run(tc.token, func(t *testing.T) {
			f := &fakeRenderer{}
			e, outputDir, _ := newTestExporter(t, f)

			path, err := e.Export(context.Background(), tc.token, "my-note", "# Title")
			if err != nil {
				t.Fatalf("export failed: %v", err)
			}
			want := filepath.Join(outputDir, "my-note."+tc.wantExt)
			if path != want {
				t.Errorf("got path %q, want %q", path, want)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("artifact not written: %v", err)
			}
		})
	}
}

func TestExport_TitleCannotEscapeOutputDir(t *testing.T) {
	cases := []struct {
		title    string
		wantName string
	}{
		{"../escape", "-escape"},
		{"a/b\\c", "a-b-c"},
		{"..", "untitled"},
		{"  notes  ", "notes"},
	}

	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			f := &fakeRenderer{}
			e, outputDir, _ := newTestExporter(t, f)

			path, err := e.Export(context.Background(), "html", tc.title, "# Title")
			if err != nil {
				t.Fatalf("export failed: %v", err)
			}
			want := filepath.Join(outputDir, tc.wantName+".html")
			if path != want {
				t.Errorf("got path %q, want %q", path, want)
			}
			rel, err := filepath.Rel(outputDir, path)
			if err != nil || strings.HasPrefix(rel, "..") {
				t.Errorf("artifact escaped output dir: %q", path)
			}
		})
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	f := &fakeRenderer{}
	e, _, _ := newTestExporter(t, f)

	_, err := e.Export(context.Background(), "ppt", "note", "content")
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if unsupported.Format != "ppt" {
		t.Errorf("unexpected format in error: %q", unsupported.Format)
	}
	if len(f.requests) != 0 {
		t.Error("renderer must not be called for an unknown format")
	}
}

func TestExport_PDFRetriesMinimalOnce(t *testing.T) {
	f := &fakeRenderer{failures: 1}
	e, _, _ := newTestExporter(t, f)

	if _, err := e.Export(context.Background(), "pdf", "note", "content"); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	if len(f.requests) != 2 {
		t.Fatalf("expected 2 render calls, got %d", len(f.requests))
	}
	if f.requests[0].Minimal {
		t.Error("first attempt must use full options")
	}
	if !f.requests[1].Minimal {
		t.Error("retry must use minimal options")
	}
}

func TestExport_PDFTwoFailuresPropagate(t *testing.T) {
	f := &fakeRenderer{failures: 2}
	e, outputDir, _ := newTestExporter(t, f)

	if _, err := e.Export(context.Background(), "pdf", "note", "content"); err == nil {
		t.Fatal("expected error after both attempts fail")
	}
	if len(f.requests) != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", len(f.requests))
	}
	// No partial artifact left behind.
	entries, _ := os.ReadDir(outputDir)
	if len(entries) != 0 {
		t.Errorf("expected empty output dir, found %d entries", len(entries))
	}
}

func TestInlineImages_LocalFile(t *testing.T) {
	f := &fakeRenderer{}
	e, _, staticDir := newTestExporter(t, f)

	imgData := []byte{0x89, 0x50, 0x4e, 0x47}
	if err := os.WriteFile(filepath.Join(staticDir, "pic.png"), imgData, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	out := e.inlineImages("before ![alt text](/static/pic.png) after")

	wantURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imgData)
	want := fmt.Sprintf("before ![alt text](%s) after", wantURI)
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestInlineImages_MimeByExtension(t *testing.T) {
	f := &fakeRenderer{}
	e, _, staticDir := newTestExporter(t, f)

	if err := os.WriteFile(filepath.Join(staticDir, "photo.JPG"), []byte("jpegdata"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	out := e.inlineImages("![p](photo.JPG)")
	if !strings.Contains(out, "data:image/jpeg;base64,") {
		t.Errorf("expected jpeg mime, got %q", out)
	}
}

func TestInlineImages_PassThrough(t *testing.T) {
	f := &fakeRenderer{}
	e, _, _ := newTestExporter(t, f)

	cases := []string{
		"![remote](https://example.com/pic.png)",
		"![remote](http://example.com/pic.png)",
		"![embedded](data:image/png;base64,AAAA)",
	}
	for _, in := range cases {
		if out := e.inlineImages(in); out != in {
			t.Errorf("expected passthrough for %q, got %q", in, out)
		}
	}
}

func TestInlineImages_MissingFile(t *testing.T) {
	f := &fakeRenderer{}
	e, _, _ := newTestExporter(t, f)

	out := e.inlineImages("![gone](missing.png) ![also](https://example.com/ok.png)")

	if !strings.Contains(out, "![gone](image not found: missing.png)") {
		t.Errorf("missing image placeholder absent: %q", out)
	}
	// The failure is per-image: the rest of the document still processes.
	if !strings.Contains(out, "![also](https://example.com/ok.png)") {
		t.Errorf("other references disturbed: %q", out)
	}
}

package transcriber

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/medianote/api/internal/model"
)

// fakeEncoder records re-encode attempts and writes a file of a fixed size.
type fakeEncoder struct {
	calls      int
	outputSize int
	dir        string
	err        error
}

func (e *fakeEncoder) Compress(ctx context.Context, inputPath string) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	out := filepath.Join(e.dir, "compressed.mp3")
	if err := os.WriteFile(out, make([]byte, e.outputSize), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func writeAudioFile(t *testing.T, dir string, size int) string {
	t.Helper()
	path := filepath.Join(dir, "audio.mp3")
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("failed to write audio file: %v", err)
	}
	return path
}

func transcriptionServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("response_format") != "verbose_json" {
			http.Error(w, "wrong response_format", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"language": "en",
			"text": "hello world",
			"segments": [
				{"start": 0.0, "end": 1.5, "text": " hello "},
				{"start": 1.5, "end": 3.0, "text": " world "}
			]
		}`))
	}))
}

func testTranscriber(srv *httptest.Server, ceiling int64, encoder AudioEncoder) *whisperTranscriber {
	p := &model.Provider{
		ID:      "p1",
		Type:    string(model.ProviderTypeGroq),
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Enabled: true,
	}
	return newWhisperTranscriber(p, "whisper-large-v3", ceiling, encoder)
}

func TestTranscript_UnderCeiling_NoCompression(t *testing.T) {
	srv := transcriptionServer(t)
	defer srv.Close()

	dir := t.TempDir()
	enc := &fakeEncoder{dir: dir}
	tr := testTranscriber(srv, 1024, enc)

	path := writeAudioFile(t, dir, 100)
	result, err := tr.Transcript(context.Background(), path)
	if err != nil {
		t.Fatalf("transcript failed: %v", err)
	}

	if enc.calls != 0 {
		t.Errorf("expected no re-encode for file under ceiling, got %d", enc.calls)
	}
	if result.FullText != "hello world" {
		t.Errorf("unexpected full text: %q", result.FullText)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(result.Segments))
	}
	if result.Segments[0].Text != "hello" || result.Segments[1].Text != "world" {
		t.Errorf("segment texts not trimmed: %+v", result.Segments)
	}
	if len(result.Raw) == 0 {
		t.Error("expected raw backend payload retained")
	}
}

func TestTranscript_OverCeiling_SingleReencode(t *testing.T) {
	srv := transcriptionServer(t)
	defer srv.Close()

	dir := t.TempDir()
	enc := &fakeEncoder{dir: dir, outputSize: 50}
	tr := testTranscriber(srv, 1024, enc)

	path := writeAudioFile(t, dir, 2048)
	if _, err := tr.Transcript(context.Background(), path); err != nil {
		t.Fatalf("transcript failed: %v", err)
	}

	if enc.calls != 1 {
		t.Errorf("expected exactly one re-encode, got %d", enc.calls)
	}
	// The temp re-encoded file is removed after upload.
	if _, err := os.Stat(filepath.Join(dir, "compressed.mp3")); !os.IsNotExist(err) {
		t.Error("expected compressed temp file removed")
	}
}

func TestTranscript_StillOversized_Fails(t *testing.T) {
	srv := transcriptionServer(t)
	defer srv.Close()

	dir := t.TempDir()
	enc := &fakeEncoder{dir: dir, outputSize: 2000}
	tr := testTranscriber(srv, 1024, enc)

	path := writeAudioFile(t, dir, 4096)
	_, err := tr.Transcript(context.Background(), path)

	var sizeErr *SizeExceededError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected SizeExceededError, got %v", err)
	}
	if sizeErr.Size != 2000 || sizeErr.Ceiling != 1024 {
		t.Errorf("unexpected error detail: %+v", sizeErr)
	}
	if enc.calls != 1 {
		t.Errorf("expected exactly one re-encode attempt, got %d", enc.calls)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "compressed.mp3")); !os.IsNotExist(statErr) {
		t.Error("expected compressed temp file removed on failure")
	}
}

func TestTranscript_CompressionFailure(t *testing.T) {
	srv := transcriptionServer(t)
	defer srv.Close()

	dir := t.TempDir()
	enc := &fakeEncoder{dir: dir, err: errors.New("ffmpeg exploded")}
	tr := testTranscriber(srv, 10, enc)

	path := writeAudioFile(t, dir, 100)
	if _, err := tr.Transcript(context.Background(), path); err == nil {
		t.Fatal("expected error when compression fails")
	}
	if enc.calls != 1 {
		t.Errorf("expected one compression attempt, got %d", enc.calls)
	}
}

func TestUpload_NoRetryOnClientError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	dir := t.TempDir()
	tr := testTranscriber(srv, 1024, &fakeEncoder{dir: dir})

	path := writeAudioFile(t, dir, 100)
	if _, err := tr.Transcript(context.Background(), path); err == nil {
		t.Fatal("expected error for rejected upload")
	}
	if hits != 1 {
		t.Errorf("expected a single attempt on 401, got %d", hits)
	}
}

func TestUpload_RetriesOnServerError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "backend unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	tr := testTranscriber(srv, 1024, &fakeEncoder{dir: dir})

	path := writeAudioFile(t, dir, 100)
	if _, err := tr.Transcript(context.Background(), path); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if hits != 2 {
		t.Errorf("expected two attempts on 500, got %d", hits)
	}
}

func TestForProvider_Validation(t *testing.T) {
	enc := &fakeEncoder{}

	if _, err := ForProvider(nil, "m", enc); !errors.Is(err, ErrProviderNotConfigured) {
		t.Errorf("nil provider: got %v", err)
	}

	noKey := &model.Provider{ID: "p", Type: "groq", Enabled: true}
	if _, err := ForProvider(noKey, "m", enc); !errors.Is(err, ErrProviderNotConfigured) {
		t.Errorf("empty key: got %v", err)
	}

	disabled := &model.Provider{ID: "p", Type: "groq", APIKey: "k", Enabled: false}
	if _, err := ForProvider(disabled, "m", enc); !errors.Is(err, ErrProviderDisabled) {
		t.Errorf("disabled: got %v", err)
	}

	unknown := &model.Provider{ID: "p", Type: "whatever", APIKey: "k", Enabled: true}
	if _, err := ForProvider(unknown, "m", enc); !errors.Is(err, ErrUnsupportedBackend) {
		t.Errorf("unknown type: got %v", err)
	}

	ok := &model.Provider{ID: "p", Type: "openai", APIKey: "k", Enabled: true}
	if _, err := ForProvider(ok, "m", enc); err != nil {
		t.Errorf("valid provider rejected: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	segments := []model.TranscriptSegment{
		{Start: 5.0, End: 7.0, Text: " third "},
		{Start: 2.0, End: 1.0, Text: "second"}, // reversed range
		{Start: 0.0, End: 1.0, Text: "  first"},
	}

	fullText, normalized := Normalize("en", segments)

	if fullText != "first second third" {
		t.Errorf("unexpected full text: %q", fullText)
	}
	if normalized[1].Start != 1.0 || normalized[1].End != 2.0 {
		t.Errorf("reversed range not repaired: %+v", normalized[1])
	}
	for i := 1; i < len(normalized); i++ {
		if normalized[i].Start < normalized[i-1].Start {
			t.Errorf("segments not ordered at %d: %+v", i, normalized)
		}
	}
}

func TestDefaultModel(t *testing.T) {
	if got := DefaultModel(model.ProviderTypeGroq); got != "whisper-large-v3" {
		t.Errorf("groq default: %q", got)
	}
	if got := DefaultModel(model.ProviderTypeOpenAI); got != "whisper-1" {
		t.Errorf("openai default: %q", got)
	}
}

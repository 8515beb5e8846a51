package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/medianote/api/internal/model"
)

// whisperTranscriber uploads audio to an OpenAI-compatible
// /audio/transcriptions endpoint (Groq and OpenAI share the wire format,
// they differ only in ceiling and endpoint).
type whisperTranscriber struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	modelName  string
	ceiling    int64
	encoder    AudioEncoder
}

// verboseTranscription mirrors the verbose_json response shape
type verboseTranscription struct {
	Language string `json:"language"`
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func newWhisperTranscriber(provider *model.Provider, modelName string, ceiling int64, encoder AudioEncoder) *whisperTranscriber {
	return &whisperTranscriber{
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		baseURL:   provider.BaseURL,
		apiKey:    provider.APIKey,
		modelName: modelName,
		ceiling:   ceiling,
		encoder:   encoder,
	}
}

// Transcript uploads the file and normalizes the backend output. If the file
// exceeds the ceiling it is re-encoded exactly once; a file still oversized
// afterwards fails with SizeExceededError. The temporary re-encoded file is
// removed on every exit path.
func (t *whisperTranscriber) Transcript(ctx context.Context, filePath string) (*model.TranscriptResult, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("stat audio file: %w", err)
	}

	uploadPath := filePath
	if info.Size() > t.ceiling {
		log.Printf("Audio file %s exceeds ceiling (%d > %d bytes), compressing", filePath, info.Size(), t.ceiling)
		compressed, err := t.encoder.Compress(ctx, filePath)
		if err != nil {
			return nil, fmt.Errorf("compression fallback failed: %w", err)
		}
		defer os.Remove(compressed)

		compressedInfo, err := os.Stat(compressed)
		if err != nil {
			return nil, fmt.Errorf("stat compressed file: %w", err)
		}
		if compressedInfo.Size() > t.ceiling {
			return nil, &SizeExceededError{Size: compressedInfo.Size(), Ceiling: t.ceiling}
		}
		uploadPath = compressed
	}

	raw, err := t.upload(ctx, uploadPath)
	if err != nil {
		return nil, err
	}

	var parsed verboseTranscription
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcription: %w", err)
	}

	segments := make([]model.TranscriptSegment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		segments = append(segments, model.TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}
	fullText, normalized := Normalize(parsed.Language, segments)

	return &model.TranscriptResult{
		Language: parsed.Language,
		FullText: fullText,
		Segments: normalized,
		Raw:      raw,
	}, nil
}

// apiStatusError is a non-200 answer from the transcription endpoint.
type apiStatusError struct {
	StatusCode int
	Body       string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("transcription API error (status %d): %s", e.StatusCode, e.Body)
}

// upload sends the multipart transcription request, retrying once with
// backoff on transport failure or a server-side error. Client errors
// (bad key, rejected payload) fail immediately.
func (t *whisperTranscriber) upload(ctx context.Context, filePath string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := t.uploadOnce(ctx, filePath)
		if err == nil {
			return body, nil
		}
		var statusErr *apiStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			return nil, err
		}
		lastErr = err
		log.Printf("Transcription upload failed (attempt %d): %v", attempt+1, err)
	}
	return nil, lastErr
}

func (t *whisperTranscriber) uploadOnce(ctx context.Context, filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}
	if err := writer.WriteField("model", t.modelName); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apiStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

package transcriber

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/medianote/api/internal/model"
)

// Transcriber turns a local audio file into time-ordered transcript segments.
// Implementations own the size-bounded compression fallback: an oversized file
// gets exactly one re-encode pass before upload, never more.
type Transcriber interface {
	Transcript(ctx context.Context, filePath string) (*model.TranscriptResult, error)
}

// AudioEncoder performs the single re-encode pass of the fallback. The
// returned path is a temporary file owned by the caller.
type AudioEncoder interface {
	Compress(ctx context.Context, inputPath string) (string, error)
}

var (
	// ErrProviderNotConfigured reports that the selected backend has no
	// usable provider record.
	ErrProviderNotConfigured = errors.New("transcription provider not configured")

	// ErrProviderDisabled reports that the provider exists but is disabled.
	ErrProviderDisabled = errors.New("transcription provider is disabled")

	// ErrUnsupportedBackend reports an unknown provider type.
	ErrUnsupportedBackend = errors.New("unsupported transcription backend")
)

// SizeExceededError reports a file still over the backend's upload ceiling
// after the one allowed re-encode attempt.
type SizeExceededError struct {
	Size    int64
	Ceiling int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("audio file is %d bytes after compression, backend ceiling is %d bytes", e.Size, e.Ceiling)
}

// Upload size ceilings per backend type
const (
	groqMaxUploadBytes   = 18 * 1024 * 1024
	openaiMaxUploadBytes = 25 * 1024 * 1024
)

// ForProvider selects the transcriber variant for a provider record. The
// provider must come from the enabled set; a disabled record is rejected here
// so no call site can bypass the policy.
func ForProvider(provider *model.Provider, modelName string, encoder AudioEncoder) (Transcriber, error) {
	if provider == nil || provider.APIKey == "" {
		return nil, ErrProviderNotConfigured
	}
	if !provider.Enabled {
		return nil, fmt.Errorf("provider %q: %w", provider.ID, ErrProviderDisabled)
	}

	switch model.ProviderType(provider.Type) {
	case model.ProviderTypeGroq:
		return newWhisperTranscriber(provider, modelName, groqMaxUploadBytes, encoder), nil
	case model.ProviderTypeOpenAI:
		return newWhisperTranscriber(provider, modelName, openaiMaxUploadBytes, encoder), nil
	default:
		return nil, fmt.Errorf("provider type %q: %w", provider.Type, ErrUnsupportedBackend)
	}
}

// DefaultModel returns the transcription model used with a backend type when
// the caller does not name one.
func DefaultModel(t model.ProviderType) string {
	switch t {
	case model.ProviderTypeOpenAI:
		return "whisper-1"
	default:
		return "whisper-large-v3"
	}
}

// Normalize orders segments by start time, repairs reversed ranges, trims
// segment text and joins the trimmed texts into the full transcript.
func Normalize(language string, segments []model.TranscriptSegment) (string, []model.TranscriptSegment) {
	normalized := make([]model.TranscriptSegment, len(segments))
	copy(normalized, segments)

	for i := range normalized {
		if normalized[i].End < normalized[i].Start {
			normalized[i].Start, normalized[i].End = normalized[i].End, normalized[i].Start
		}
		normalized[i].Text = strings.TrimSpace(normalized[i].Text)
	}
	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Start < normalized[j].Start
	})

	var b strings.Builder
	for _, seg := range normalized {
		b.WriteString(seg.Text)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String()), normalized
}

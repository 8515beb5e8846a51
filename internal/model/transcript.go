package model

import "encoding/json"

// TranscriptSegment is a single time-ordered slice of the transcript
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptResult is the normalized output of a transcription backend.
// Raw keeps the verbatim backend payload for diagnostics and is never mutated.
type TranscriptResult struct {
	Language string              `json:"language"`
	FullText string              `json:"full_text"`
	Segments []TranscriptSegment `json:"segments"`
	Raw      json.RawMessage     `json:"-"`
}

// AudioDownloadResult describes a downloaded media artifact. It is owned by
// the pipeline invocation that requested it and must be cleaned up once the
// transcriber has consumed it, or on failure.
type AudioDownloadResult struct {
	FilePath  string          `json:"file_path"`
	VideoPath string          `json:"video_path,omitempty"`
	Title     string          `json:"title"`
	Duration  float64         `json:"duration"`
	Format    string          `json:"format"`
	Quality   DownloadQuality `json:"quality"`
}

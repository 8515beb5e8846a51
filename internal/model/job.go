package model

import "time"

// Job represents a background note-generation job in the system
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Payload     []byte     `json:"payload,omitempty"`
	Result      []byte     `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// Job types
const (
	JobTypeNote = "note"
)

// NoteJobPayload contains the data for a note-generation job
type NoteJobPayload struct {
	TaskID     string          `json:"taskId"`
	VideoID    string          `json:"videoId"`
	VideoURL   string          `json:"videoUrl"`
	Platform   Platform        `json:"platform"`
	Quality    DownloadQuality `json:"quality"`
	NeedVideo  bool            `json:"needVideo"`
	ProviderID string          `json:"providerId"`
	ModelName  string          `json:"modelName"`
}

// NoteResult is the final artifact of a note-generation job
type NoteResult struct {
	TaskID     string            `json:"taskId"`
	VideoID    string            `json:"videoId"`
	Platform   Platform          `json:"platform"`
	Title      string            `json:"title"`
	Markdown   string            `json:"markdown"`
	Transcript *TranscriptResult `json:"transcript,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

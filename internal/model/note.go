package model

import "time"

// NoteGenerateRequest starts the note pipeline for a video URL
type NoteGenerateRequest struct {
	VideoURL   string          `json:"videoUrl" validate:"required,url"`
	Platform   Platform        `json:"platform" validate:"required,oneof=bilibili youtube douyin podcast"`
	Quality    DownloadQuality `json:"quality" validate:"omitempty,oneof=fast medium best"`
	NeedVideo  bool            `json:"needVideo"`
	ProviderID string          `json:"providerId" validate:"required"`
	ModelName  string          `json:"modelName" validate:"required,max=200"`
}

// NoteGenerateResponse returns the durable task token for the video
type NoteGenerateResponse struct {
	TaskID    string    `json:"taskId"`
	VideoID   string    `json:"videoId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// NoteStatusResponse reports pipeline progress for a task
type NoteStatusResponse struct {
	TaskID      string     `json:"taskId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ExportRequest converts note markdown into a document artifact
type ExportRequest struct {
	Format  string `json:"format" validate:"required,max=10"`
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// ExportResponse returns the written artifact path
type ExportResponse struct {
	FilePath string `json:"filePath"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
}

// CookieUpdateRequest stores a per-platform downloader credential
type CookieUpdateRequest struct {
	Platform string `json:"platform" validate:"required,oneof=bilibili youtube douyin podcast"`
	Cookie   string `json:"cookie" validate:"required"`
}

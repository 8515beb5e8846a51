package model

import "time"

// VideoTask links a platform video identity to a unique processing run token.
// Rows are append-only: created once per (video_id, platform) pair, never
// mutated or deleted.
type VideoTask struct {
	ID        int64     `json:"id"`
	VideoID   string    `json:"video_id"`
	Platform  string    `json:"platform"`
	TaskID    string    `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}

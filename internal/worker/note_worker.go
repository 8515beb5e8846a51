package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/medianote/api/internal/client"
	"github.com/medianote/api/internal/downloader"
	"github.com/medianote/api/internal/model"
	"github.com/medianote/api/internal/service"
	"github.com/medianote/api/internal/transcriber"
	"github.com/medianote/api/internal/websocket"
)

const notesSystemPrompt = `You are a note-taking assistant. You receive the transcript of a video or podcast and produce a well-structured markdown note: a title, a short summary, and sections covering the main points in order. Keep the note in the transcript's language.`

// NoteWorker executes the note pipeline: download, transcribe, generate.
// Media artifacts and temp files are owned by the invocation and removed on
// every exit path.
type NoteWorker struct {
	redis       *redis.Client
	providers   *service.ProviderService
	downloaders *downloader.Registry
	encoder     transcriber.AudioEncoder
	hub         *websocket.Hub
	mediaDir    string
}

// NewNoteWorker creates a note pipeline worker.
func NewNoteWorker(redisClient *redis.Client, providers *service.ProviderService, downloaders *downloader.Registry, encoder transcriber.AudioEncoder, hub *websocket.Hub, mediaDir string) *NoteWorker {
	return &NoteWorker{
		redis:       redisClient,
		providers:   providers,
		downloaders: downloaders,
		encoder:     encoder,
		hub:         hub,
		mediaDir:    mediaDir,
	}
}

// ProcessTask handles one note-generation task.
func (w *NoteWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.NoteJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal note payload: %w", err)
	}

	taskID := payload.TaskID
	log.Printf("Starting note job: %s (video %s on %s)", taskID, payload.VideoID, payload.Platform)

	w.updateJobStatus(ctx, taskID, model.JobStatusRunning, 5, "Selecting provider...")
	provider, err := w.providers.Get(ctx, payload.ProviderID)
	if err != nil {
		w.failJob(ctx, taskID, fmt.Sprintf("Provider lookup failed: %v", err))
		return err
	}

	dl, err := w.downloaders.Get(payload.Platform)
	if err != nil {
		w.failJob(ctx, taskID, err.Error())
		return err
	}

	w.updateJobStatus(ctx, taskID, model.JobStatusRunning, 15, "Downloading media...")
	media, err := dl.Download(ctx, payload.VideoURL, w.mediaDir, payload.Quality, payload.NeedVideo)
	if err != nil {
		w.failJob(ctx, taskID, fmt.Sprintf("Download failed: %v", err))
		return err
	}
	defer w.cleanupMedia(media)

	w.updateJobStatus(ctx, taskID, model.JobStatusRunning, 45, "Transcribing audio...")
	tr, err := transcriber.ForProvider(provider, transcriber.DefaultModel(model.ProviderType(provider.Type)), w.encoder)
	if err != nil {
		w.failJob(ctx, taskID, fmt.Sprintf("Transcriber unavailable: %v", err))
		return err
	}
	transcript, err := tr.Transcript(ctx, media.FilePath)
	if err != nil {
		w.failJob(ctx, taskID, fmt.Sprintf("Transcription failed: %v", err))
		return err
	}

	w.updateJobStatus(ctx, taskID, model.JobStatusRunning, 75, "Generating note...")
	chat := client.NewChatClient(provider.BaseURL, provider.APIKey)
	markdown, err := chat.ChatCompletion(ctx, payload.ModelName, notesSystemPrompt, buildNotePrompt(media.Title, transcript))
	if err != nil {
		w.failJob(ctx, taskID, fmt.Sprintf("Note generation failed: %v", err))
		return err
	}

	result := &model.NoteResult{
		TaskID:     taskID,
		VideoID:    payload.VideoID,
		Platform:   payload.Platform,
		Title:      media.Title,
		Markdown:   markdown,
		Transcript: transcript,
		CreatedAt:  time.Now(),
	}
	w.completeJob(ctx, taskID, result)
	w.hub.BroadcastComplete(taskID, result)

	log.Printf("Note job %s completed", taskID)
	return nil
}

// cleanupMedia deletes downloaded artifacts once the pipeline has consumed
// them, success or failure alike.
func (w *NoteWorker) cleanupMedia(media *model.AudioDownloadResult) {
	if media == nil {
		return
	}
	if media.FilePath != "" {
		if err := os.Remove(media.FilePath); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove media file %s: %v", media.FilePath, err)
		}
	}
	if media.VideoPath != "" && media.VideoPath != media.FilePath {
		if err := os.Remove(media.VideoPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove video file %s: %v", media.VideoPath, err)
		}
	}
}

func buildNotePrompt(title string, transcript *model.TranscriptResult) string {
	return fmt.Sprintf("Video title: %s\nTranscript language: %s\n\nTranscript:\n%s", title, transcript.Language, transcript.FullText)
}

func (w *NoteWorker) updateJobStatus(ctx context.Context, taskID string, status model.JobStatus, progress int, step string) {
	job, err := w.getJob(ctx, taskID)
	if err != nil {
		log.Printf("Failed to get job: %v", err)
		return
	}

	job.Status = status
	job.Progress = progress
	job.CurrentStep = step

	if status == model.JobStatusRunning && job.StartedAt == nil {
		now := time.Now()
		job.StartedAt = &now
	}

	w.saveJob(ctx, job)
	w.hub.BroadcastProgress(taskID, progress, status, step)
}

func (w *NoteWorker) completeJob(ctx context.Context, taskID string, result *model.NoteResult) {
	job, err := w.getJob(ctx, taskID)
	if err != nil {
		log.Printf("Failed to get job: %v", err)
		return
	}

	resultBytes, _ := json.Marshal(result)
	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	w.saveJob(ctx, job)
}

func (w *NoteWorker) failJob(ctx context.Context, taskID, errMsg string) {
	job, err := w.getJob(ctx, taskID)
	if err != nil {
		log.Printf("Failed to get job: %v", err)
		return
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	w.saveJob(ctx, job)
	w.hub.BroadcastError(taskID, "NOTE_FAILED", errMsg)
}

func (w *NoteWorker) getJob(ctx context.Context, taskID string) (*model.Job, error) {
	data, err := w.redis.Get(ctx, fmt.Sprintf("job:%s", taskID)).Bytes()
	if err != nil {
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (w *NoteWorker) saveJob(ctx context.Context, job *model.Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Printf("Failed to marshal job: %v", err)
		return
	}
	if err := w.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, 7*24*time.Hour).Err(); err != nil {
		log.Printf("Failed to save job: %v", err)
	}
}

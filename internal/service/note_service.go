package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/medianote/api/internal/model"
	"github.com/medianote/api/internal/resolver"
	"github.com/medianote/api/internal/store"
)

const (
	TaskTypeNote = "note:generate"
)

// ErrVideoUnresolved reports that no video id could be extracted from the
// submitted URL.
var ErrVideoUnresolved = errors.New("could not resolve a video id from the url")

// ErrJobNotFinished reports that a result was requested before the job
// reached a terminal success.
var ErrJobNotFinished = errors.New("job has not completed")

// Enqueuer is the slice of asynq.Client that NoteService needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NoteService owns the front half of the pipeline: resolve the URL, register
// the durable task (deduplicated per video/platform), and queue the
// background job.
type NoteService struct {
	store    *store.Store
	redis    *redis.Client
	enqueuer Enqueuer
	resolver *resolver.Resolver
	quality  model.DownloadQuality
}

func NewNoteService(st *store.Store, redisClient *redis.Client, enqueuer Enqueuer, res *resolver.Resolver, defaultQuality model.DownloadQuality) *NoteService {
	return &NoteService{
		store:    st,
		redis:    redisClient,
		enqueuer: enqueuer,
		resolver: res,
		quality:  defaultQuality,
	}
}

// Generate starts (or re-joins) the note pipeline for a video URL. Repeated
// calls for the same video return the same task token; a new job is enqueued
// only when no live job exists for that token.
func (s *NoteService) Generate(ctx context.Context, req *model.NoteGenerateRequest) (*model.NoteGenerateResponse, error) {
	videoID, err := s.resolver.Resolve(ctx, req.VideoURL, req.Platform)
	if err != nil {
		if errors.Is(err, resolver.ErrUnresolved) {
			return nil, ErrVideoUnresolved
		}
		return nil, fmt.Errorf("resolve url: %w", err)
	}

	task, err := s.store.GetOrCreateTask(ctx, videoID, req.Platform)
	if err != nil {
		return nil, fmt.Errorf("register task: %w", err)
	}

	// Re-joining an existing run: hand back the same token without queuing
	// a second job.
	if existing, err := s.getJob(ctx, task.TaskID); err == nil && existing.Status != model.JobStatusFailed {
		return &model.NoteGenerateResponse{
			TaskID:    task.TaskID,
			VideoID:   videoID,
			Status:    existing.Status,
			CreatedAt: existing.CreatedAt,
		}, nil
	}

	quality := req.Quality
	if quality == "" {
		quality = s.quality
	}

	payload := &model.NoteJobPayload{
		TaskID:     task.TaskID,
		VideoID:    videoID,
		VideoURL:   req.VideoURL,
		Platform:   req.Platform,
		Quality:    quality,
		NeedVideo:  req.NeedVideo,
		ProviderID: req.ProviderID,
		ModelName:  req.ModelName,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now()
	job := &model.Job{
		ID:        task.TaskID,
		Type:      model.JobTypeNote,
		Status:    model.JobStatusQueued,
		Progress:  0,
		Payload:   payloadBytes,
		CreatedAt: now,
	}
	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	// The task id pins one queue entry per token, so two requests racing
	// past the job lookup still produce a single pipeline run.
	asynqTask := asynq.NewTask(TaskTypeNote, payloadBytes)
	_, err = s.enqueuer.Enqueue(asynqTask,
		asynq.TaskID(task.TaskID),
		asynq.Queue("note"),
		asynq.MaxRetry(1),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return &model.NoteGenerateResponse{
			TaskID:    task.TaskID,
			VideoID:   videoID,
			Status:    model.JobStatusQueued,
			CreatedAt: now,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.NoteGenerateResponse{
		TaskID:    task.TaskID,
		VideoID:   videoID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current status of a note job
func (s *NoteService) GetStatus(ctx context.Context, taskID string) (*model.NoteStatusResponse, error) {
	job, err := s.getJob(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return &model.NoteStatusResponse{
		TaskID:      job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// GetResult returns the markdown note of a completed job
func (s *NoteService) GetResult(ctx context.Context, taskID string) (*model.NoteResult, error) {
	job, err := s.getJob(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, ErrJobNotFinished
	}

	var result model.NoteResult
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

func (s *NoteService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, 7*24*time.Hour).Err()
}

func (s *NoteService) getJob(ctx context.Context, taskID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", taskID)).Bytes()
	if err != nil {
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

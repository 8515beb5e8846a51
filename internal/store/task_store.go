package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lithammer/shortuuid/v4"

	"github.com/medianote/api/internal/model"
)

// GetOrCreateTask returns the durable task for a (video_id, platform) pair,
// minting a new token only when none exists. The INSERT OR IGNORE against the
// unique (video_id, platform) index plus the re-select inside one transaction
// keeps concurrent registration of the same video down to a single row.
func (s *Store) GetOrCreateTask(ctx context.Context, videoID string, platform model.Platform) (*model.VideoTask, error) {
	token := shortuuid.New()

	var task *model.VideoTask
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO video_tasks (video_id, platform, task_id, created_at)
             VALUES (?, ?, ?, ?)`,
			videoID, string(platform), token, timestamp(),
		); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		row := tx.QueryRowContext(
			ctx,
			`SELECT id, video_id, platform, task_id, created_at FROM video_tasks
             WHERE video_id = ? AND platform = ?`,
			videoID, string(platform),
		)
		t, err := scanTask(row)
		if err != nil {
			return fmt.Errorf("select task: %w", err)
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetTaskByToken fetches a task by its unique token.
func (s *Store) GetTaskByToken(ctx context.Context, taskID string) (*model.VideoTask, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, video_id, platform, task_id, created_at FROM video_tasks WHERE task_id = ?`,
		taskID,
	)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %q: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func scanTask(row interface{ Scan(dest ...any) error }) (*model.VideoTask, error) {
	var (
		t         model.VideoTask
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.VideoID, &t.Platform, &t.TaskID, &createdAt); err != nil {
		return nil, err
	}
	t.CreatedAt = parseTimestamp(createdAt)
	return &t, nil
}

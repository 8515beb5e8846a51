package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medianote/api/internal/model"
)

// InsertModel registers a model name under a provider. The
// (provider_id, model_name) pair is unique; violations yield ErrDuplicate and
// an unknown provider id yields ErrNotFound via the foreign key.
func (s *Store) InsertModel(ctx context.Context, providerID, modelName string) (*model.ProviderModel, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO models (provider_id, model_name, created_at) VALUES (?, ?, ?)`,
		providerID, modelName, timestamp(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("model %q for provider %q: %w", modelName, providerID, ErrDuplicate)
	}
	if isForeignKeyViolation(err) {
		return nil, fmt.Errorf("provider %q: %w", providerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("insert model: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetModel(ctx, id)
}

// GetModel fetches a model by row id.
func (s *Store) GetModel(ctx context.Context, id int64) (*model.ProviderModel, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, provider_id, model_name, created_at FROM models WHERE id = ?`,
		id,
	)
	m, err := scanModel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return m, nil
}

// GetModelByProviderAndName fetches a model by its unique pair.
func (s *Store) GetModelByProviderAndName(ctx context.Context, providerID, modelName string) (*model.ProviderModel, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, provider_id, model_name, created_at FROM models WHERE provider_id = ? AND model_name = ?`,
		providerID, modelName,
	)
	m, err := scanModel(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("model %q for provider %q: %w", modelName, providerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get model by provider and name: %w", err)
	}
	return m, nil
}

// ListModelsByProvider returns the models registered under a provider.
func (s *Store) ListModelsByProvider(ctx context.Context, providerID string) ([]*model.ProviderModel, error) {
	return s.queryModels(ctx, `SELECT id, provider_id, model_name, created_at FROM models WHERE provider_id = ? ORDER BY id`, providerID)
}

// ListModels returns every registered model.
func (s *Store) ListModels(ctx context.Context) ([]*model.ProviderModel, error) {
	return s.queryModels(ctx, `SELECT id, provider_id, model_name, created_at FROM models ORDER BY id`)
}

// DeleteModel removes a model by row id.
func (s *Store) DeleteModel(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete model rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("model %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanModel(row interface{ Scan(dest ...any) error }) (*model.ProviderModel, error) {
	var (
		m         model.ProviderModel
		createdAt string
	)
	if err := row.Scan(&m.ID, &m.ProviderID, &m.ModelName, &createdAt); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTimestamp(createdAt)
	return &m, nil
}

func (s *Store) queryModels(ctx context.Context, query string, args ...any) ([]*model.ProviderModel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []*model.ProviderModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return models, nil
}

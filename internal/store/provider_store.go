package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/medianote/api/internal/model"
)

const providerColumns = "id, name, logo, type, api_key, base_url, enabled, created_at"

func scanProvider(row interface{ Scan(dest ...any) error }) (*model.Provider, error) {
	var (
		p         model.Provider
		enabled   int
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Logo, &p.Type, &p.APIKey, &p.BaseURL, &enabled, &createdAt); err != nil {
		return nil, err
	}
	p.Enabled = enabled != 0
	p.CreatedAt = parseTimestamp(createdAt)
	return &p, nil
}

// InsertProvider persists a new provider. A duplicate id yields ErrDuplicate.
func (s *Store) InsertProvider(ctx context.Context, p *model.Provider) error {
	enabled := 0
	if p.Enabled {
		enabled = 1
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO providers (id, name, logo, type, api_key, base_url, enabled, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Logo, p.Type, p.APIKey, p.BaseURL, enabled, timestamp(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("provider %q: %w", p.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

// SeedProviders inserts the bundled catalog in a single transaction, only when
// the providers table is empty. A failure leaves no partial state.
func (s *Store) SeedProviders(ctx context.Context, providers []*model.Provider) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM providers`).Scan(&count); err != nil {
			return fmt.Errorf("count providers: %w", err)
		}
		if count > 0 {
			return nil
		}
		for _, p := range providers {
			enabled := 0
			if p.Enabled {
				enabled = 1
			}
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO providers (id, name, logo, type, api_key, base_url, enabled, created_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, p.Name, p.Logo, p.Type, p.APIKey, p.BaseURL, enabled, timestamp(),
			); err != nil {
				return fmt.Errorf("seed provider %q: %w", p.ID, err)
			}
		}
		return nil
	})
}

// GetProvider fetches a provider by id.
func (s *Store) GetProvider(ctx context.Context, id string) (*model.Provider, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = ?`, id)
	p, err := scanProvider(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("provider %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

// GetProviderByName fetches a provider by display name.
func (s *Store) GetProviderByName(ctx context.Context, name string) (*model.Provider, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE name = ?`, name)
	p, err := scanProvider(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("provider %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get provider by name: %w", err)
	}
	return p, nil
}

// ListProviders returns every provider, seed order first.
func (s *Store) ListProviders(ctx context.Context) ([]*model.Provider, error) {
	return s.queryProviders(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY created_at, id`)
}

// ListEnabledProviders returns only providers with enabled == true. This is
// the set the pipeline is allowed to select backends from.
func (s *Store) ListEnabledProviders(ctx context.Context) ([]*model.Provider, error) {
	return s.queryProviders(ctx, `SELECT `+providerColumns+` FROM providers WHERE enabled = 1 ORDER BY created_at, id`)
}

func (s *Store) queryProviders(ctx context.Context, query string) ([]*model.Provider, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var providers []*model.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return providers, nil
}

// providerColumnSet whitelists the attributes a partial update may touch.
// Keys outside this set are ignored, not errors.
var providerColumnSet = map[string]struct{}{
	"name":     {},
	"logo":     {},
	"type":     {},
	"api_key":  {},
	"base_url": {},
	"enabled":  {},
}

// UpdateProvider overwrites only the fields present in fields. Returns
// ErrNotFound when the id does not exist. The single UPDATE statement keeps
// concurrent updates for the same id serialized at the store.
func (s *Store) UpdateProvider(ctx context.Context, id string, fields map[string]any) error {
	setClauses := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for col, val := range fields {
		if _, ok := providerColumnSet[col]; !ok {
			continue
		}
		if col == "enabled" {
			if b, ok := val.(bool); ok {
				if b {
					val = 1
				} else {
					val = 0
				}
			}
		}
		setClauses = append(setClauses, col+" = ?")
		args = append(args, val)
	}
	if len(setClauses) == 0 {
		// Nothing updatable supplied; still report missing rows.
		if _, err := s.GetProvider(ctx, id); err != nil {
			return err
		}
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE providers SET `+strings.Join(setClauses, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update provider: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update provider rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("provider %q: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteProvider removes a provider. Dependent models are removed in the same
// statement through the ON DELETE CASCADE constraint.
func (s *Store) DeleteProvider(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM providers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete provider rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("provider %q: %w", id, ErrNotFound)
	}
	return nil
}

package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medianote/api/internal/model"
	"github.com/medianote/api/internal/store"
)

//go:embed builtin_providers.json
var builtinProvidersJSON []byte

// seedProvider mirrors one entry of the bundled catalog
type seedProvider struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Logo    string `json:"logo"`
	Type    string `json:"type"`
	Enabled *int   `json:"enabled"`
}

// ProviderService is the registry of configured AI backends.
type ProviderService struct {
	store *store.Store
}

// NewProviderService creates a provider service over the registry store.
func NewProviderService(st *store.Store) *ProviderService {
	return &ProviderService{store: st}
}

// MaskKey redacts a secret for display. Secrets shorter than 8 characters are
// replaced entirely; longer ones keep the first 4 and last 4 characters with
// asterisks in between.
func MaskKey(key string) string {
	if len(key) < 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// SeedDefaults loads the bundled catalog into an empty registry. All-or
// nothing: a parse or insert failure leaves no partial state. Idempotent:
// a non-empty registry is left untouched.
func (s *ProviderService) SeedDefaults(ctx context.Context) error {
	var entries []seedProvider
	if err := json.Unmarshal(builtinProvidersJSON, &entries); err != nil {
		return fmt.Errorf("parse builtin providers: %w", err)
	}

	providers := make([]*model.Provider, 0, len(entries))
	for _, e := range entries {
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled != 0
		}
		providers = append(providers, &model.Provider{
			ID:      e.ID,
			Name:    e.Name,
			APIKey:  e.APIKey,
			BaseURL: e.BaseURL,
			Logo:    e.Logo,
			Type:    e.Type,
			Enabled: enabled,
		})
	}

	return s.store.SeedProviders(ctx, providers)
}

// Add registers a user-defined provider. The logo is forced to the custom
// sentinel regardless of input, marking it as user-added.
func (s *ProviderService) Add(ctx context.Context, req *model.ProviderCreateRequest) (string, error) {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	p := &model.Provider{
		ID:      strings.ToLower(uuid.New().String()),
		Name:    req.Name,
		Logo:    model.LogoCustom,
		Type:    req.Type,
		APIKey:  req.APIKey,
		BaseURL: req.BaseURL,
		Enabled: enabled,
	}
	if err := s.store.InsertProvider(ctx, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// Update applies a partial update; nil fields are preserved.
func (s *ProviderService) Update(ctx context.Context, id string, req *model.ProviderUpdateRequest) error {
	fields := make(map[string]any)
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.APIKey != nil {
		fields["api_key"] = *req.APIKey
	}
	if req.BaseURL != nil {
		fields["base_url"] = *req.BaseURL
	}
	if req.Logo != nil {
		fields["logo"] = *req.Logo
	}
	if req.Type != nil {
		fields["type"] = *req.Type
	}
	if req.Enabled != nil {
		fields["enabled"] = *req.Enabled
	}
	return s.store.UpdateProvider(ctx, id, fields)
}

// Delete removes a provider; dependent models cascade away with it.
func (s *ProviderService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteProvider(ctx, id)
}

// Get returns the full provider record including the unmasked secret. Only
// the pipeline stage that authenticates with the backend may use this view.
func (s *ProviderService) Get(ctx context.Context, id string) (*model.Provider, error) {
	return s.store.GetProvider(ctx, id)
}

// GetMasked returns the provider with its secret masked for display.
func (s *ProviderService) GetMasked(ctx context.Context, id string) (*model.Provider, error) {
	p, err := s.store.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	return maskProvider(p), nil
}

// ListAll returns every provider with unmasked secrets.
func (s *ProviderService) ListAll(ctx context.Context) ([]*model.Provider, error) {
	return s.store.ListProviders(ctx)
}

// ListAllMasked returns every provider with masked secrets.
func (s *ProviderService) ListAllMasked(ctx context.Context) ([]*model.Provider, error) {
	providers, err := s.store.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	masked := make([]*model.Provider, len(providers))
	for i, p := range providers {
		masked[i] = maskProvider(p)
	}
	return masked, nil
}

// ListEnabled returns the providers the pipeline may select backends from.
func (s *ProviderService) ListEnabled(ctx context.Context) ([]*model.Provider, error) {
	return s.store.ListEnabledProviders(ctx)
}

// AddModel registers a model name under a provider.
func (s *ProviderService) AddModel(ctx context.Context, req *model.ModelCreateRequest) (*model.ProviderModel, error) {
	return s.store.InsertModel(ctx, req.ProviderID, req.ModelName)
}

// ListModels returns the models registered under a provider.
func (s *ProviderService) ListModels(ctx context.Context, providerID string) ([]*model.ProviderModel, error) {
	return s.store.ListModelsByProvider(ctx, providerID)
}

// DeleteModel removes a registered model.
func (s *ProviderService) DeleteModel(ctx context.Context, id int64) error {
	return s.store.DeleteModel(ctx, id)
}

func maskProvider(p *model.Provider) *model.Provider {
	masked := *p
	masked.APIKey = MaskKey(p.APIKey)
	return &masked
}

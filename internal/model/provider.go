package model

import "time"

// Provider is a configured AI backend (transcription or note generation)
type Provider struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Logo      string    `json:"logo"`
	Type      string    `json:"type"`
	APIKey    string    `json:"api_key"`
	BaseURL   string    `json:"base_url"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// ProviderModel is a named capability offered by a provider
type ProviderModel struct {
	ID         int64     `json:"id"`
	ProviderID string    `json:"provider_id"`
	ModelName  string    `json:"model_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProviderCreateRequest is the payload for adding a user-defined provider
type ProviderCreateRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	APIKey  string `json:"api_key" validate:"required"`
	BaseURL string `json:"base_url" validate:"required,url"`
	Logo    string `json:"logo" validate:"omitempty,max=200"`
	Type    string `json:"type" validate:"required,max=50"`
	Enabled *bool  `json:"enabled"`
}

// ProviderUpdateRequest carries a partial update; nil fields are preserved.
// Keys outside the entity's attribute set are ignored by the store.
type ProviderUpdateRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=100"`
	APIKey  *string `json:"api_key"`
	BaseURL *string `json:"base_url" validate:"omitempty,url"`
	Logo    *string `json:"logo" validate:"omitempty,max=200"`
	Type    *string `json:"type" validate:"omitempty,max=50"`
	Enabled *bool   `json:"enabled"`
}

// ProviderCreateResponse returns the minted provider id
type ProviderCreateResponse struct {
	ID string `json:"id"`
}

// ModelCreateRequest registers a model name under a provider
type ModelCreateRequest struct {
	ProviderID string `json:"provider_id" validate:"required"`
	ModelName  string `json:"model_name" validate:"required,max=200"`
}

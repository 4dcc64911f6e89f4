package models

import "time"

// Rate limit configuration keys
const (
	RatelimitKeyHTTP         = "http"
	RatelimitKeyCollaborator = "collaborator"
)

// RatelimitKeys lists the configurable rate limits
var RatelimitKeys = []string{RatelimitKeyHTTP, RatelimitKeyCollaborator}

// RatelimitConfig holds one rate limit in ulule format (e.g. "5-S", "30-M").
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key" yaml:"config_key"`
	Rate      string    `json:"rate" yaml:"rate"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

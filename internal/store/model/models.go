package model

import "time"

// Attempt is one persisted fallback chain run.
type Attempt struct {
	ID                string    `db:"id" json:"id"`
	PreferredProvider string    `db:"preferred_provider" json:"preferred_provider"`
	PreferredModel    string    `db:"preferred_model" json:"preferred_model"`
	ChosenProvider    string    `db:"chosen_provider" json:"chosen_provider"`
	ChosenModel       string    `db:"chosen_model" json:"chosen_model"`
	IsOriginal        bool      `db:"is_original" json:"is_original"`
	Attempted         string    `db:"attempted" json:"attempted"` // comma-separated, in attempt order
	Error             string    `db:"error" json:"error,omitempty"`
	LatencyMs         int64     `db:"latency_ms" json:"latency_ms"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

package model

import "time"

// LLMCall records one generation attempt for cost monitoring. Only metadata is
// kept: the prompt and the model's answer are never stored.
//   - `db:"column_name"` is used by sqlx to scan rows
//   - `json:"field_name"` is used for the stats endpoint and the CLI
type LLMCall struct {
	ID           int64     `db:"id" json:"id"`
	Provider     string    `db:"provider" json:"provider"`
	Model        string    `db:"model" json:"model"`
	Market       Market    `db:"market" json:"market"`
	Identifier   *string   `db:"identifier" json:"identifier,omitempty"` // nil for top-10 requests
	Success      bool      `db:"success" json:"success"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	DurationMs   *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ProviderCount is one row of the per-provider breakdown.
type ProviderCount struct {
	Provider string `db:"provider" json:"provider"`
	Total    int64  `db:"total" json:"total"`
	Failed   int64  `db:"failed" json:"failed"`
}

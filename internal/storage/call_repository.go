package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fleveque/moex-picks/internal/model"
)

// ErrNotFound is returned when a call record doesn't exist.
// Callers check with errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("llm call not found")

// CallRepository persists the LLM call audit log.
// Implementations must be safe for concurrent use: every request records a call.
type CallRepository interface {
	Create(ctx context.Context, call *model.LLMCall) error
	GetByID(ctx context.Context, id int64) (*model.LLMCall, error)
	Count(ctx context.Context) (int64, error)
	CountBySuccess(ctx context.Context, success bool) (int64, error)
	CountByProvider(ctx context.Context) ([]model.ProviderCount, error)
	ListRecent(ctx context.Context, limit int) ([]model.LLMCall, error)
}

type sqliteCallRepository struct {
	db *sqlx.DB
}

// NewCallRepository creates a SQLite-backed CallRepository.
func NewCallRepository(db *sqlx.DB) CallRepository {
	return &sqliteCallRepository{db: db}
}

func (r *sqliteCallRepository) Create(ctx context.Context, call *model.LLMCall) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO llm_calls (provider, model, market, identifier, success, error_message, duration_ms)
		VALUES (:provider, :model, :market, :identifier, :success, :error_message, :duration_ms)
	`, call)
	if err != nil {
		return fmt.Errorf("creating llm call record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteCallRepository) GetByID(ctx context.Context, id int64) (*model.LLMCall, error) {
	var call model.LLMCall
	err := r.db.GetContext(ctx, &call, "SELECT * FROM llm_calls WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting llm call %d: %w", id, err)
	}
	return &call, nil
}

func (r *sqliteCallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM llm_calls")
	return count, err
}

func (r *sqliteCallRepository) CountBySuccess(ctx context.Context, success bool) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM llm_calls WHERE success = ?", success)
	return count, err
}

func (r *sqliteCallRepository) CountByProvider(ctx context.Context) ([]model.ProviderCount, error) {
	var counts []model.ProviderCount
	err := r.db.SelectContext(ctx, &counts, `
		SELECT provider,
		       COUNT(*) AS total,
		       SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END) AS failed
		FROM llm_calls
		GROUP BY provider
		ORDER BY provider
	`)
	if err != nil {
		return nil, fmt.Errorf("counting llm calls by provider: %w", err)
	}
	return counts, nil
}

func (r *sqliteCallRepository) ListRecent(ctx context.Context, limit int) ([]model.LLMCall, error) {
	var calls []model.LLMCall
	err := r.db.SelectContext(ctx, &calls,
		"SELECT * FROM llm_calls ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent llm calls: %w", err)
	}
	return calls, nil
}

package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Conductor/internal/domain"
)

// RunbookRepo — репозиторий конфигураций runbook.
//
// Конфигурация хранится целиком как JSONB: структура runbook
// эволюционирует вместе с кодом, миграции схемы не нужны.
type RunbookRepo struct {
	pool *pgxpool.Pool
}

// NewRunbookRepo создаёт новый RunbookRepo.
func NewRunbookRepo(pool *pgxpool.Pool) *RunbookRepo {
	return &RunbookRepo{pool: pool}
}

// Create сохраняет новый runbook.
func (r *RunbookRepo) Create(ctx context.Context, cfg *domain.RunbookConfig) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal runbook: %w", err)
	}

	query := `
		INSERT INTO runbooks (id, name, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	_, err = r.pool.Exec(ctx, query, cfg.ID, cfg.Name, configJSON, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 — unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: runbook %s", ErrAlreadyExists, cfg.ID)
		}
		return fmt.Errorf("insert runbook: %w", err)
	}
	return nil
}

// Update перезаписывает конфигурацию существующего runbook.
func (r *RunbookRepo) Update(ctx context.Context, cfg *domain.RunbookConfig) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal runbook: %w", err)
	}

	query := `
		UPDATE runbooks
		SET name = $2, config = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, cfg.ID, cfg.Name, configJSON, time.Now())
	if err != nil {
		return fmt.Errorf("update runbook: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает runbook по ID.
func (r *RunbookRepo) GetByID(ctx context.Context, id string) (*domain.RunbookConfig, error) {
	query := `SELECT config FROM runbooks WHERE id = $1`

	var configJSON []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&configJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get runbook: %w", err)
	}

	var cfg domain.RunbookConfig
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal runbook: %w", err)
	}
	return &cfg, nil
}

// List возвращает все runbook'и, упорядоченные по ID.
func (r *RunbookRepo) List(ctx context.Context) ([]domain.RunbookConfig, error) {
	query := `SELECT config FROM runbooks ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runbooks: %w", err)
	}
	defer rows.Close()

	var runbooks []domain.RunbookConfig
	for rows.Next() {
		var configJSON []byte
		if err := rows.Scan(&configJSON); err != nil {
			return nil, fmt.Errorf("scan runbook: %w", err)
		}
		var cfg domain.RunbookConfig
		if err := json.Unmarshal(configJSON, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal runbook: %w", err)
		}
		runbooks = append(runbooks, cfg)
	}
	return runbooks, rows.Err()
}

// ListScheduled возвращает runbook'и с включённым расписанием.
func (r *RunbookRepo) ListScheduled(ctx context.Context) ([]domain.RunbookConfig, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	scheduled := make([]domain.RunbookConfig, 0)
	for _, cfg := range all {
		if cfg.Schedule != nil && cfg.Schedule.Enabled {
			scheduled = append(scheduled, cfg)
		}
	}
	return scheduled, nil
}

// Delete удаляет runbook.
func (r *RunbookRepo) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM runbooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete runbook: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

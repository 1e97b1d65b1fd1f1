package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/orchestrator"
)

// RunRepo — архив завершённых run'ов.
//
// Активные run'ы живут в памяти оркестратора; сюда run попадает
// один раз, при достижении терминального состояния, вместе с
// поимённым отчётом по задачам (report JSONB). Реализует
// orchestrator.Recorder.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// RunRecord — архивная запись run с отчётом по задачам.
type RunRecord struct {
	Run   domain.Run                  `json:"run"`
	Tasks []orchestrator.TaskSnapshot `json:"tasks,omitempty"`
}

// Record сохраняет терминальный run. Реализует orchestrator.Recorder.
func (r *RunRepo) Record(ctx context.Context, run *domain.Run, tasks []orchestrator.TaskSnapshot) error {
	variablesJSON, err := json.Marshal(run.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	reportJSON, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `
		INSERT INTO runs (id, runbook_id, runbook_name, state, triggered_by, variables,
		                  started_at, finished_at, error,
		                  total_tasks, completed_tasks, failed_tasks, skipped_tasks,
		                  report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID,
		run.RunbookID,
		run.RunbookName,
		run.State,
		run.TriggeredBy,
		variablesJSON,
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
		run.TotalTasks,
		run.CompletedTasks,
		run.FailedTasks,
		run.SkippedTasks,
		reportJSON,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает архивный run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `
		SELECT id, runbook_id, runbook_name, state, triggered_by, variables,
		       started_at, finished_at, error,
		       total_tasks, completed_tasks, failed_tasks, skipped_tasks,
		       report, created_at
		FROM runs
		WHERE id = $1
	`
	record, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RunFilter — параметры фильтрации архивных run'ов.
type RunFilter struct {
	RunbookID string
	State     domain.RunState
	Limit     int
	Offset    int
}

// List возвращает архивные run'ы, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, runbook_id, runbook_name, state, triggered_by, variables,
		       started_at, finished_at, error,
		       total_tasks, completed_tasks, failed_tasks, skipped_tasks,
		       report, created_at
		FROM runs
		WHERE ($1::text IS NULL OR runbook_id = $1)
		  AND ($2::text IS NULL OR state = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.RunbookID),
		nullString(string(filter.State)),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// scanRun сканирует одну строку в RunRecord.
func scanRun(row pgx.Row) (*RunRecord, error) {
	var record RunRecord
	var variablesJSON, reportJSON []byte
	var runError *string

	err := row.Scan(
		&record.Run.ID,
		&record.Run.RunbookID,
		&record.Run.RunbookName,
		&record.Run.State,
		&record.Run.TriggeredBy,
		&variablesJSON,
		&record.Run.StartedAt,
		&record.Run.FinishedAt,
		&runError,
		&record.Run.TotalTasks,
		&record.Run.CompletedTasks,
		&record.Run.FailedTasks,
		&record.Run.SkippedTasks,
		&reportJSON,
		&record.Run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if variablesJSON != nil {
		if err := json.Unmarshal(variablesJSON, &record.Run.Variables); err != nil {
			return nil, fmt.Errorf("unmarshal variables: %w", err)
		}
	}
	if reportJSON != nil {
		if err := json.Unmarshal(reportJSON, &record.Tasks); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
	}
	if runError != nil {
		record.Run.Error = *runError
	}

	return &record, nil
}

// nullString превращает пустую строку в NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

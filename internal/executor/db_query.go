package executor

import (
	"context"
	"fmt"
)

// Максимум строк, попадающих в outputs задачи.
const maxQueryRows = 100

// DatabaseQueryExecutor — executor для задачи типа "database_query".
//
// Выполняет произвольный запрос к именованному подключению
// и возвращает строки результата в outputs.
//
// Config:
//   - connection (string): имя подключения из runbook (обязательно)
//   - query (string): SQL-запрос (обязательно)
//   - args (list): позиционные аргументы запроса
//   - expected_row_count (number): ожидаемое число строк результата
//
// Outputs:
//   - row_count (int): число строк результата
//   - rows (list): строки результата (не более 100)
type DatabaseQueryExecutor struct {
	Connections *Connections
}

// Execute выполняет запрос.
func (e *DatabaseQueryExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	connName := getString(req.Config, "connection", "")
	if connName == "" {
		return nil, fmt.Errorf("%w: connection is required", ErrInvalidConfig)
	}

	query := getString(req.Config, "query", "")
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidConfig)
	}

	db, err := e.Connections.Get(ctx, connName)
	if err != nil {
		return nil, err
	}

	args := getSlice(req.Config, "args")

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseQuery, err)
	}

	results, err := rowsToMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseQuery, err)
	}

	if expected := getInt(req.Config, "expected_row_count", -1); expected >= 0 && len(results) != expected {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", ErrDatabaseQuery, expected, len(results))
	}

	out := results
	if len(out) > maxQueryRows {
		out = out[:maxQueryRows]
	}

	return &Result{
		Outputs: map[string]any{
			"row_count": len(results),
			"rows":      out,
		},
	}, nil
}

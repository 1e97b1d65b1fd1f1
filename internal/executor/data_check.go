package executor

import (
	"context"
	"fmt"
	"time"
)

// DataCheckExecutor — executor для задачи типа "data_check".
//
// Проверяет доступность и свежесть данных в именованном подключении:
// выполняет запрос (или COUNT(*) по таблице) и валидирует число
// записей и возраст данных против ожиданий из config.
//
// Config:
//   - connection (string): имя подключения из runbook (обязательно)
//   - query (string): запрос; первая колонка первой строки — счётчик
//   - table (string): альтернатива query — COUNT(*) по таблице
//   - expected_count_min (number): минимально допустимое число записей
//   - expected_count_max (number): максимально допустимое число записей
//   - freshness_hours (number): максимально допустимый возраст данных
//   - freshness_column (string): колонка с временем обновления. Default: updated_at
//
// Outputs:
//   - record_count (int): фактическое число записей
//   - freshness_minutes (float64): возраст данных, если проверялся
//   - query_duration_ms (float64): длительность запроса
type DataCheckExecutor struct {
	Connections *Connections
}

// Execute выполняет проверку данных.
func (e *DataCheckExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	connName := getString(req.Config, "connection", "")
	if connName == "" {
		return nil, fmt.Errorf("%w: connection is required", ErrInvalidConfig)
	}

	query := getString(req.Config, "query", "")
	table := getString(req.Config, "table", "")
	if query == "" && table == "" {
		return nil, fmt.Errorf("%w: query or table is required", ErrInvalidConfig)
	}
	if query == "" {
		query = fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	}

	db, err := e.Connections.Get(ctx, connName)
	if err != nil {
		return nil, err
	}

	queryStart := time.Now()

	count, err := fetchCount(ctx, db, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseQuery, err)
	}

	outputs := map[string]any{
		"record_count":      count,
		"query_duration_ms": float64(time.Since(queryStart)) / float64(time.Millisecond),
	}

	// Валидация числа записей
	if minCount := getInt(req.Config, "expected_count_min", -1); minCount >= 0 && count < minCount {
		return nil, fmt.Errorf("%w: record count %d below minimum %d", ErrDataCheck, count, minCount)
	}
	if maxCount := getInt(req.Config, "expected_count_max", -1); maxCount >= 0 && count > maxCount {
		return nil, fmt.Errorf("%w: record count %d above maximum %d", ErrDataCheck, count, maxCount)
	}

	// Валидация свежести
	if hours := getInt(req.Config, "freshness_hours", 0); hours > 0 {
		if table == "" {
			return nil, fmt.Errorf("%w: freshness check requires table", ErrInvalidConfig)
		}

		column := getString(req.Config, "freshness_column", "updated_at")
		freshnessQuery := fmt.Sprintf(
			"SELECT EXTRACT(EPOCH FROM (NOW() - MAX(%s)))/60 FROM %s", column, table)

		minutes, err := fetchFloat(ctx, db, freshnessQuery)
		if err != nil {
			return nil, fmt.Errorf("%w: freshness query: %v", ErrDatabaseQuery, err)
		}

		outputs["freshness_minutes"] = minutes

		if minutes > float64(hours*60) {
			return nil, fmt.Errorf("%w: data is %.0f minutes old, limit is %d hours",
				ErrDataCheck, minutes, hours)
		}
	}

	return &Result{Outputs: outputs}, nil
}

// fetchCount выполняет запрос и возвращает первую колонку первой строки как int.
func fetchCount(ctx context.Context, db Querier, query string) (int, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Err()
	}

	values, err := rows.Values()
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}

	switch v := values[0].(type) {
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", values[0])
	}
}

// fetchFloat выполняет запрос и возвращает первую колонку первой строки как float64.
func fetchFloat(ctx context.Context, db Querier, query string) (float64, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Err()
	}

	values, err := rows.Values()
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}

	switch v := values[0].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("unexpected value type %T", values[0])
	}
}

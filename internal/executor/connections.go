package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Conductor/internal/domain"
)

// Querier — минимальный интерфейс БД для executor'ов.
// *pgxpool.Pool реализует его напрямую; тесты подставляют фейк.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Connections — менеджер именованных подключений к БД.
//
// Runbook объявляет подключения в секции connections,
// задачи data_check и database_query ссылаются на них по имени.
// Пулы открываются лениво при первом обращении и
// переиспользуются между задачами и run'ами.
type Connections struct {
	logger *slog.Logger

	mu      sync.Mutex
	configs map[string]domain.ConnectionConfig
	pools   map[string]*pgxpool.Pool
}

// NewConnections создаёт пустой менеджер подключений.
func NewConnections(logger *slog.Logger) *Connections {
	return &Connections{
		logger:  logger,
		configs: make(map[string]domain.ConnectionConfig),
		pools:   make(map[string]*pgxpool.Pool),
	}
}

// Register регистрирует конфигурации подключений runbook'а.
// Повторная регистрация с тем же именем перезаписывает конфигурацию;
// уже открытый пул при этом сохраняется, если DSN не изменился.
func (c *Connections) Register(configs map[string]domain.ConnectionConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, cfg := range configs {
		if old, ok := c.configs[name]; ok && old.DSN != cfg.DSN {
			if pool, ok := c.pools[name]; ok {
				pool.Close()
				delete(c.pools, name)
			}
		}
		c.configs[name] = cfg
	}
}

// Get возвращает пул для именованного подключения, открывая его при необходимости.
func (c *Connections) Get(ctx context.Context, name string) (Querier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pool, ok := c.pools[name]; ok {
		return pool, nil
	}

	cfg, ok := c.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, name)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open connection %s: %w", name, err)
	}

	c.pools[name] = pool
	c.logger.Info("opened database connection", "name", name, "driver", cfg.Driver)

	return pool, nil
}

// Close закрывает все открытые пулы.
func (c *Connections) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, pool := range c.pools {
		pool.Close()
		delete(c.pools, name)
	}
}

// rowsToMaps читает все строки результата в список map'ов.
func rowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return out, nil
}

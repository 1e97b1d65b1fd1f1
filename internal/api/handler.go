package api

import (
	"log/slog"

	"github.com/shaiso/Conductor/internal/orchestrator"
	"github.com/shaiso/Conductor/internal/repo"
	"github.com/shaiso/Conductor/internal/scheduler"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	orch        *orchestrator.Orchestrator
	runbookRepo *repo.RunbookRepo
	runRepo     *repo.RunRepo
	scheduler   *scheduler.Scheduler
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	RunbookRepo  *repo.RunbookRepo
	RunRepo      *repo.RunRepo

	// Scheduler — опционален; без него next_due_at в ответах пуст.
	Scheduler *scheduler.Scheduler

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		orch:        cfg.Orchestrator,
		runbookRepo: cfg.RunbookRepo,
		runRepo:     cfg.RunRepo,
		scheduler:   cfg.Scheduler,
		logger:      cfg.Logger,
	}
}

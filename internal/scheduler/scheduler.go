package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/orchestrator"
)

// RunbookSource — источник runbook'ов с включённым расписанием.
// Реализуется repo.RunbookRepo.
type RunbookSource interface {
	ListScheduled(ctx context.Context) ([]domain.RunbookConfig, error)
}

// Starter запускает run. Реализуется orchestrator.Orchestrator.
type Starter interface {
	Start(ctx context.Context, cfg *domain.RunbookConfig, variables map[string]string, triggeredBy string) (*orchestrator.RunSnapshot, error)
}

// Scheduler — планировщик, запускающий runbook'и по расписанию.
//
// Держит next-due в памяти и пересчитывает его на каждом тике:
// расписание берётся из конфигурации runbook, отдельного
// персистентного состояния у планировщика нет. После рестарта
// первый запуск произойдёт в следующий due-момент.
type Scheduler struct {
	source  RunbookSource
	starter Starter
	logger  *slog.Logger

	mu      sync.Mutex
	nextDue map[string]time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Source  RunbookSource
	Starter Starter
	Logger  *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		source:  cfg.Source,
		starter: cfg.Starter,
		logger:  logger,
		nextDue: make(map[string]time.Time),
	}
}

// Run крутит тики с заданным интервалом до отмены контекста.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Загружает runbook'и с включённым расписанием
// 2. Для due runbook'ов запускает run (triggered_by=schedule)
// 3. Пересчитывает next-due
//
// Ошибки одного runbook не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	runbooks, err := s.source.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("list scheduled runbooks: %w", err)
	}

	for i := range runbooks {
		cfg := &runbooks[i]
		if err := s.processRunbook(ctx, cfg, now); err != nil {
			s.logger.Error("failed to process schedule",
				"runbook_id", cfg.ID,
				"error", err,
			)
		}
	}

	s.pruneRemoved(runbooks)
	return nil
}

// processRunbook запускает runbook, если его время подошло,
// и пересчитывает next-due.
func (s *Scheduler) processRunbook(ctx context.Context, cfg *domain.RunbookConfig, now time.Time) error {
	s.mu.Lock()
	due, known := s.nextDue[cfg.ID]
	s.mu.Unlock()

	if !known {
		// Новое расписание: первый запуск в следующий due-момент.
		next, err := CalculateNextDue(cfg.Schedule, now)
		if err != nil {
			return err
		}
		s.setNextDue(cfg.ID, next)
		s.logger.Info("schedule registered",
			"runbook_id", cfg.ID,
			"next_due_at", next,
		)
		return nil
	}

	if now.Before(due) {
		return nil
	}

	next, err := CalculateNextDue(cfg.Schedule, now)
	if err != nil {
		return err
	}
	s.setNextDue(cfg.ID, next)

	if _, err := s.starter.Start(ctx, cfg, cfg.Schedule.Variables, "schedule"); err != nil {
		return fmt.Errorf("start scheduled run: %w", err)
	}

	s.logger.Info("scheduled run started",
		"runbook_id", cfg.ID,
		"next_due_at", next,
	)
	return nil
}

// setNextDue обновляет next-due runbook'а.
func (s *Scheduler) setNextDue(runbookID string, due time.Time) {
	s.mu.Lock()
	s.nextDue[runbookID] = due
	s.mu.Unlock()
}

// NextDue возвращает запланированное время запуска runbook'а.
func (s *Scheduler) NextDue(runbookID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due, ok := s.nextDue[runbookID]
	return due, ok
}

// pruneRemoved выкидывает из памяти расписания удалённых runbook'ов.
func (s *Scheduler) pruneRemoved(current []domain.RunbookConfig) {
	alive := make(map[string]bool, len(current))
	for i := range current {
		alive[current[i].ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.nextDue {
		if !alive[id] {
			delete(s.nextDue, id)
		}
	}
}

package engine

import (
	"fmt"

	"github.com/shaiso/Conductor/internal/domain"
)

// Validate выполняет полную валидацию конфигурации runbook.
//
// Проверяет:
// - Наличие задач
// - Непустые ID и типы задач
// - Уникальность ID (делегируется BuildGraph)
// - Валидность зависимостей (делегируется BuildGraph)
// - Отсутствие циклов (делегируется Batches)
//
// Любая ошибка здесь — ошибка конфигурации: run не стартует,
// ни одна задача не выполняется.
func Validate(cfg *domain.RunbookConfig) error {
	if cfg == nil || len(cfg.Tasks) == 0 {
		return ErrNoTasks
	}

	for i := range cfg.Tasks {
		if err := validateTask(&cfg.Tasks[i]); err != nil {
			return err
		}
	}

	graph, err := BuildGraph(cfg.Tasks)
	if err != nil {
		return err
	}

	if _, err := graph.Batches(); err != nil {
		return err
	}

	return nil
}

// validateTask валидирует поля одной задачи.
func validateTask(task *domain.TaskSpec) error {
	if task.ID == "" {
		return NewValidationError("", "id", "task has empty ID", ErrEmptyTaskID)
	}
	if task.Kind == "" {
		return NewValidationError(task.ID, "kind", "task has empty kind", ErrEmptyTaskKind)
	}
	if task.RetryCount < 0 {
		return NewValidationError(task.ID, "retry_count",
			fmt.Sprintf("negative retry_count: %d", task.RetryCount), ErrInvalidConfigValue)
	}
	if task.TimeoutSec < 0 {
		return NewValidationError(task.ID, "timeout_sec",
			fmt.Sprintf("negative timeout_sec: %d", task.TimeoutSec), ErrInvalidConfigValue)
	}
	return nil
}

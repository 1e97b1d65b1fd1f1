package domain

// TaskStatus — статус выполнения одной задачи внутри run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED (после исчерпания retry)
//	(или)   → SKIPPED   (зависимость упала и skip_on_failure=true)
//	(или)   → CANCELLED (run отменён до запуска задачи)
//
// Переходы монотонные: задача никогда не возвращается в PENDING.
type TaskStatus string

const (
	// TaskStatusPending — задача создана, ожидает своей очереди.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusRunning — задача выполняется координатором.
	TaskStatusRunning TaskStatus = "running"

	// TaskStatusCompleted — задача успешно завершена.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed — задача завершилась ошибкой (после всех retry).
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusSkipped — задача пропущена из-за упавшей зависимости.
	TaskStatusSkipped TaskStatus = "skipped"

	// TaskStatusCancelled — задача не будет выполнена, run отменён.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusSkipped, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// RunState — состояние выполнения run.
//
// Жизненный цикл:
//
//	INITIALIZING → RUNNING ⇄ PAUSED
//	               RUNNING → COMPLETED
//	                       ↘ FAILED
//	                       ↘ CANCELLED
//	INITIALIZING → FAILED_TO_START (ошибка конфигурации, ни одна задача не запущена)
type RunState string

const (
	// RunStateInitializing — run создан, идёт валидация и построение графа.
	RunStateInitializing RunState = "initializing"

	// RunStateRunning — run в процессе выполнения.
	RunStateRunning RunState = "running"

	// RunStatePaused — диспетчеризация новых батчей приостановлена.
	// Уже запущенные задачи продолжают выполняться.
	RunStatePaused RunState = "paused"

	// RunStateCompleted — все задачи завершены (completed или skipped),
	// ни одна не упала.
	RunStateCompleted RunState = "completed"

	// RunStateFailed — хотя бы одна задача упала, превышен глобальный
	// дедлайн, или оставшиеся задачи заблокированы упавшей зависимостью.
	RunStateFailed RunState = "failed"

	// RunStateCancelled — run отменён пользователем.
	RunStateCancelled RunState = "cancelled"

	// RunStateFailedToStart — конфигурация не прошла валидацию
	// (дубликат ID, неизвестная зависимость, цикл). Задачи не запускались.
	RunStateFailedToStart RunState = "failed_to_start"
)

// IsTerminal возвращает true, если состояние финальное (run завершён).
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed, RunStateCancelled, RunStateFailedToStart:
		return true
	default:
		return false
	}
}

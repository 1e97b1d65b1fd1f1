package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrInvalidRunbook — runbook не прошёл валидацию, run не стартовал.
	ErrInvalidRunbook = errors.New("invalid runbook")

	// ErrRunNotFound — run не найден среди активных.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinished — run уже в терминальном состоянии.
	ErrRunFinished = errors.New("run already finished")

	// ErrRunNotPausable — run не в состоянии RUNNING.
	ErrRunNotPausable = errors.New("run is not running")

	// ErrRunNotPaused — run не в состоянии PAUSED.
	ErrRunNotPaused = errors.New("run is not paused")

	// ErrStopped — оркестратор остановлен, новые run'ы не принимаются.
	ErrStopped = errors.New("orchestrator stopped")
)

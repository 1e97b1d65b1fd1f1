package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один экземпляр выполнения runbook.
//
// Run создаётся когда:
// - Пользователь запускает runbook вручную (через API/CLI)
// - Scheduler запускает runbook по расписанию
//
// Счётчики и состояние мутируются только оркестратором, владеющим run.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// RunbookID — идентификатор выполняемого runbook.
	RunbookID string `json:"runbook_id"`

	// RunbookName — имя runbook (копия для отчётов).
	RunbookName string `json:"runbook_name,omitempty"`

	// State — текущее состояние (см. машину состояний RunState).
	State RunState `json:"state"`

	// TriggeredBy — источник запуска: "manual", "schedule", "api".
	TriggeredBy string `json:"triggered_by"`

	// Variables — переменные для текстовой подстановки в конфигурацию задач.
	Variables map[string]string `json:"variables,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время достижения терминального состояния.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// DeadlineAt — абсолютный глобальный дедлайн run.
	// Nil, если глобальный таймаут не задан.
	DeadlineAt *time.Time `json:"deadline_at,omitempty"`

	// Error — текст ошибки, если run завершился неуспешно.
	Error string `json:"error,omitempty"`

	// TotalTasks — общее количество задач.
	TotalTasks int `json:"total_tasks"`

	// CompletedTasks — количество успешно завершённых задач.
	CompletedTasks int `json:"completed_tasks"`

	// FailedTasks — количество упавших задач.
	FailedTasks int `json:"failed_tasks"`

	// SkippedTasks — количество пропущенных задач.
	SkippedTasks int `json:"skipped_tasks"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run в терминальном состоянии.
func (r *Run) IsFinished() bool {
	return r.State.IsTerminal()
}

// Progress возвращает процент завершения run (0–100).
// Учитываются задачи в любом терминальном статусе.
func (r *Run) Progress() float64 {
	if r.TotalTasks == 0 {
		return 100.0
	}
	done := r.CompletedTasks + r.FailedTasks + r.SkippedTasks
	return float64(done) / float64(r.TotalTasks) * 100.0
}

// MarkRunning переводит run в RUNNING и фиксирует старт и дедлайн.
func (r *Run) MarkRunning(globalTimeout time.Duration) {
	now := time.Now()
	r.State = RunStateRunning
	r.StartedAt = &now
	if globalTimeout > 0 {
		deadline := now.Add(globalTimeout)
		r.DeadlineAt = &deadline
	}
}

// MarkCompleted переводит run в COMPLETED.
func (r *Run) MarkCompleted() {
	now := time.Now()
	r.State = RunStateCompleted
	r.FinishedAt = &now
}

// MarkFailed переводит run в FAILED с ошибкой.
func (r *Run) MarkFailed(errMsg string) {
	now := time.Now()
	r.State = RunStateFailed
	r.FinishedAt = &now
	r.Error = errMsg
}

// MarkCancelled переводит run в CANCELLED.
func (r *Run) MarkCancelled() {
	now := time.Now()
	r.State = RunStateCancelled
	r.FinishedAt = &now
}

// MarkFailedToStart переводит run в FAILED_TO_START с ошибкой конфигурации.
func (r *Run) MarkFailedToStart(errMsg string) {
	now := time.Now()
	r.State = RunStateFailedToStart
	r.FinishedAt = &now
	r.Error = errMsg
}

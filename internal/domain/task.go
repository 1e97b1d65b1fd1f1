package domain

import "time"

// TaskExecution — изменяемая запись о выполнении одной задачи внутри run.
//
// Создаётся при инициализации run (по одной на TaskSpec), мутируется
// только координатором выполнения от имени владеющего run и никогда
// не разделяется между runs.
type TaskExecution struct {
	// TaskID — идентификатор задачи (TaskSpec.ID).
	TaskID string `json:"task_id"`

	// Name — имя задачи (копия TaskSpec.Name для отчётов).
	Name string `json:"name,omitempty"`

	// Kind — тип задачи.
	Kind TaskKind `json:"kind"`

	// Status — текущий статус (см. машину состояний TaskStatus).
	Status TaskStatus `json:"status"`

	// StartedAt — время первого перехода в RUNNING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время достижения терминального статуса.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Attempts — количество выполненных попыток (1-индексация для отчётов).
	Attempts int `json:"attempts"`

	// Error — сообщение последней ошибки.
	Error string `json:"error,omitempty"`

	// Result — результат выполнения, специфичный для Kind.
	// Движок содержимое не интерпретирует.
	Result map[string]any `json:"result,omitempty"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если задача не запускалась или ещё не завершена.
func (t *TaskExecution) Duration() time.Duration {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(*t.StartedAt)
}

// IsFinished возвращает true, если задача в терминальном статусе.
func (t *TaskExecution) IsFinished() bool {
	return t.Status.IsTerminal()
}

// MarkRunning переводит задачу в RUNNING.
// Время старта фиксируется только при первой попытке.
func (t *TaskExecution) MarkRunning() {
	t.Status = TaskStatusRunning
	if t.StartedAt == nil {
		now := time.Now()
		t.StartedAt = &now
	}
}

// MarkCompleted переводит задачу в COMPLETED с результатом.
func (t *TaskExecution) MarkCompleted(result map[string]any) {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.FinishedAt = &now
	t.Result = result
	t.Error = ""
}

// MarkFailed переводит задачу в FAILED с сообщением об ошибке.
func (t *TaskExecution) MarkFailed(errMsg string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.FinishedAt = &now
	t.Error = errMsg
}

// MarkSkipped переводит задачу в SKIPPED, не запуская её.
func (t *TaskExecution) MarkSkipped(reason string) {
	now := time.Now()
	t.Status = TaskStatusSkipped
	t.FinishedAt = &now
	t.Error = reason
}

// MarkCancelled переводит задачу в CANCELLED.
func (t *TaskExecution) MarkCancelled() {
	now := time.Now()
	t.Status = TaskStatusCancelled
	t.FinishedAt = &now
}

package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType — тип жизненного события run или задачи.
type EventType string

// Типы событий.
const (
	EventRunStarted   EventType = "run_started"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
	EventRunCancelled EventType = "run_cancelled"
	EventTaskStarted  EventType = "task_started"
	EventTaskComplete EventType = "task_completed"
	EventTaskFailed   EventType = "task_failed"

	// EventCustom — произвольное уведомление из задачи типа notification.
	EventCustom EventType = "custom_notification"
)

// TaskReport — сводка по одной задаче для итогового события run.
type TaskReport struct {
	TaskID      string  `json:"task_id"`
	Status      string  `json:"status"`
	Attempts    int     `json:"attempts,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// Event — жизненное событие, отправляемое во внешний мир.
//
// Событие самодостаточно: получатель не обязан иметь доступ
// к движку, чтобы построить осмысленное уведомление.
type Event struct {
	// ID — уникальный идентификатор события.
	ID uuid.UUID `json:"id"`

	// Type — тип события.
	Type EventType `json:"type"`

	// RunID — run, к которому относится событие.
	RunID uuid.UUID `json:"run_id"`

	// RunbookID — идентификатор runbook.
	RunbookID string `json:"runbook_id"`

	// RunbookName — имя runbook.
	RunbookName string `json:"runbook_name,omitempty"`

	// TaskID — задача, к которой относится событие (для task_*).
	TaskID string `json:"task_id,omitempty"`

	// State — состояние run на момент события.
	State string `json:"state,omitempty"`

	// Message — человекочитаемое описание.
	Message string `json:"message,omitempty"`

	// Счётчики прогресса run.
	TotalTasks     int `json:"total_tasks,omitempty"`
	CompletedTasks int `json:"completed_tasks,omitempty"`
	FailedTasks    int `json:"failed_tasks,omitempty"`
	SkippedTasks   int `json:"skipped_tasks,omitempty"`

	// Tasks — сводка по задачам (заполняется для run_completed/run_failed).
	Tasks []TaskReport `json:"tasks,omitempty"`

	// Timestamp — время события.
	Timestamp time.Time `json:"timestamp"`
}

// Notifier — порт доставки уведомлений.
//
// Контракт fire-and-forget: реализация не должна блокировать
// надолго, а её ошибки никогда не проваливают и не тормозят run —
// оркестратор вызывает Notify в отдельной горутине и логирует ошибку.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NopNotifier — notifier, который ничего не делает.
type NopNotifier struct{}

// Notify реализует Notifier.
func (NopNotifier) Notify(context.Context, Event) {}

// LogNotifier пишет события в structured log.
// Полезен для локальной разработки и как fallback,
// когда брокер уведомлений недоступен.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify реализует Notifier.
func (n *LogNotifier) Notify(_ context.Context, event Event) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("lifecycle event",
		"event_type", event.Type,
		"run_id", event.RunID,
		"runbook_id", event.RunbookID,
		"task_id", event.TaskID,
		"state", event.State,
		"message", event.Message,
	)
}

// Fanout рассылает событие нескольким notifier'ам.
type Fanout []Notifier

// Notify реализует Notifier.
func (f Fanout) Notify(ctx context.Context, event Event) {
	for _, n := range f {
		n.Notify(ctx, event)
	}
}

package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/notify"
)

// NotificationExecutor — executor для задачи типа "notification".
//
// Отправляет произвольное уведомление через сконфигурированный
// Notifier. Провал доставки не считается провалом задачи.
//
// Config:
//   - message (string): текст уведомления (обязательно)
//
// Outputs:
//   - sent (bool): уведомление передано notifier'у
type NotificationExecutor struct {
	Notifier notify.Notifier
}

// Execute отправляет уведомление.
func (e *NotificationExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	message := getString(req.Config, "message", "")
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidConfig)
	}

	e.Notifier.Notify(ctx, notify.Event{
		ID:        uuid.New(),
		Type:      notify.EventCustom,
		RunID:     req.RunID,
		TaskID:    req.TaskID,
		Message:   message,
		Timestamp: time.Now(),
	})

	return &Result{
		Outputs: map[string]any{"sent": true},
	}, nil
}

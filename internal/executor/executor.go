package executor

import (
	"context"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
)

// Request — запрос на выполнение одной задачи.
//
// Config уже прошёл подстановку переменных (${name}),
// Variables передаются для executor'ов, которым нужен
// доступ к переменным run (conditional).
type Request struct {
	// RunID — run, в рамках которого выполняется задача.
	RunID uuid.UUID

	// TaskID — идентификатор задачи в runbook.
	TaskID string

	// Kind — тип задачи.
	Kind domain.TaskKind

	// Config — конфигурация задачи после подстановки переменных.
	Config map[string]any

	// Variables — переменные run.
	Variables map[string]string
}

// Result — результат выполнения задачи.
type Result struct {
	// Outputs — выходные данные выполнения.
	Outputs map[string]any
}

// Executor — интерфейс для выполнения конкретного типа задачи.
//
// Возврат ошибки означает провал попытки: координатор решает,
// делать ли retry. Executor не должен сам повторять запросы.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
}

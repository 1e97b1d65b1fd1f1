package executor

import (
	"fmt"
	"net/http"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/notify"
)

// Deps — зависимости для executor'ов по умолчанию.
type Deps struct {
	// Connections — менеджер подключений к БД.
	Connections *Connections

	// Notifier — доставка уведомлений для задач типа notification.
	Notifier notify.Notifier

	// Browser — драйвер браузерной автоматизации; nil отключает ui_automation.
	Browser BrowserDriver

	// HTTPClient — клиент для api_call; nil означает клиент по умолчанию.
	HTTPClient *http.Client
}

// Registry — реестр executor'ов по типу задачи.
type Registry struct {
	executors map[domain.TaskKind]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.TaskKind]Executor)}
}

// DefaultRegistry создаёт реестр со встроенными executor'ами.
//
// Регистрирует: api_call, wait, data_check, database_query,
// notification, conditional и, при наличии драйвера, ui_automation.
// file_operation не имеет встроенного executor'а и регистрируется
// оператором при необходимости.
func DefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()

	r.Register(domain.TaskKindAPICall, &APICallExecutor{Client: deps.HTTPClient})
	r.Register(domain.TaskKindWait, &WaitExecutor{})
	r.Register(domain.TaskKindDataCheck, &DataCheckExecutor{Connections: deps.Connections})
	r.Register(domain.TaskKindDatabaseQuery, &DatabaseQueryExecutor{Connections: deps.Connections})
	r.Register(domain.TaskKindNotification, &NotificationExecutor{Notifier: deps.Notifier})
	r.Register(domain.TaskKindConditional, &ConditionalExecutor{})

	if deps.Browser != nil {
		r.Register(domain.TaskKindUIAutomation, &UIAutomationExecutor{Driver: deps.Browser})
	}

	return r
}

// Register добавляет executor для типа задачи.
func (r *Registry) Register(kind domain.TaskKind, executor Executor) {
	r.executors[kind] = executor
}

// Get возвращает executor для типа задачи.
func (r *Registry) Get(kind domain.TaskKind) (Executor, error) {
	executor, ok := r.executors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskKind, kind)
	}
	return executor, nil
}

// Kinds возвращает зарегистрированные типы задач.
func (r *Registry) Kinds() []domain.TaskKind {
	kinds := make([]domain.TaskKind, 0, len(r.executors))
	for kind := range r.executors {
		kinds = append(kinds, kind)
	}
	return kinds
}

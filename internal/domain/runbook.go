package domain

import "time"

// TaskKind — тип задачи runbook.
//
// Тип определяет, какой executor будет выполнять задачу.
// Для file_operation встроенного executor'а нет — он регистрируется
// пользователем движка при необходимости.
type TaskKind string

const (
	// TaskKindDataCheck — проверка доступности/свежести данных.
	TaskKindDataCheck TaskKind = "data_check"

	// TaskKindUIAutomation — браузерная автоматизация (внешний драйвер).
	TaskKindUIAutomation TaskKind = "ui_automation"

	// TaskKindAPICall — HTTP-запрос к внешнему API.
	TaskKindAPICall TaskKind = "api_call"

	// TaskKindDatabaseQuery — SQL-запрос к именованному подключению.
	TaskKindDatabaseQuery TaskKind = "database_query"

	// TaskKindFileOperation — файловая операция (внешний executor).
	TaskKindFileOperation TaskKind = "file_operation"

	// TaskKindNotification — отправка уведомления через notification port.
	TaskKindNotification TaskKind = "notification"

	// TaskKindConditional — проверка условия над переменными run.
	TaskKindConditional TaskKind = "conditional"

	// TaskKindWait — пауза на заданное время.
	TaskKindWait TaskKind = "wait"
)

// TaskSpec — неизменяемое описание одной задачи runbook.
//
// Создаётся один раз при старте run из конфигурации и никогда
// не мутируется. Изменяемое состояние живёт в TaskExecution.
type TaskSpec struct {
	// ID — уникальный идентификатор задачи в рамках runbook.
	// Используется в depends_on других задач.
	ID string `json:"id"`

	// Name — человекочитаемое имя задачи.
	Name string `json:"name,omitempty"`

	// Description — описание назначения задачи.
	Description string `json:"description,omitempty"`

	// Kind — тип задачи, определяет executor.
	Kind TaskKind `json:"kind"`

	// Config — конфигурация задачи, специфичная для Kind.
	// Движок содержимое не интерпретирует, только подставляет переменные.
	Config map[string]any `json:"config,omitempty"`

	// DependsOn — список ID задач, от которых зависит эта задача.
	// Задача становится eligible только когда все зависимости completed.
	DependsOn []string `json:"depends_on,omitempty"`

	// TimeoutSec — таймаут одной попытки выполнения в секундах.
	// 0 — используется defaultTaskTimeout.
	TimeoutSec int `json:"timeout_sec,omitempty"`

	// RetryCount — количество повторных попыток после первой неудачи.
	// Всего выполняется RetryCount+1 попыток.
	RetryCount int `json:"retry_count,omitempty"`

	// RetryDelaySec — фиксированная задержка между попытками в секундах.
	RetryDelaySec int `json:"retry_delay_sec,omitempty"`

	// SkipOnFailure — пометить задачу skipped вместо блокировки,
	// если зависимость упала или была пропущена.
	SkipOnFailure bool `json:"skip_on_failure,omitempty"`

	// NotifyOnStart — отправить событие при старте задачи.
	NotifyOnStart bool `json:"notify_on_start,omitempty"`

	// NotifyOnSuccess — отправить событие при успешном завершении.
	NotifyOnSuccess bool `json:"notify_on_success,omitempty"`

	// NotifyOnFailure — отправить событие при падении задачи.
	// По умолчанию true (см. ShouldNotifyOnFailure).
	NotifyOnFailure *bool `json:"notify_on_failure,omitempty"`
}

// Значения по умолчанию для задач.
const (
	// DefaultTaskTimeoutSec — таймаут попытки, если TimeoutSec не задан.
	DefaultTaskTimeoutSec = 30 * 60

	// DefaultRetryDelaySec — задержка между попытками, если не задана.
	DefaultRetryDelaySec = 60
)

// Timeout возвращает таймаут одной попытки.
func (t *TaskSpec) Timeout() time.Duration {
	if t.TimeoutSec <= 0 {
		return DefaultTaskTimeoutSec * time.Second
	}
	return time.Duration(t.TimeoutSec) * time.Second
}

// RetryDelay возвращает задержку между попытками.
func (t *TaskSpec) RetryDelay() time.Duration {
	if t.RetryDelaySec <= 0 {
		return DefaultRetryDelaySec * time.Second
	}
	return time.Duration(t.RetryDelaySec) * time.Second
}

// ShouldNotifyOnFailure возвращает значение флага notify_on_failure
// с учётом умолчания (true).
func (t *TaskSpec) ShouldNotifyOnFailure() bool {
	if t.NotifyOnFailure == nil {
		return true
	}
	return *t.NotifyOnFailure
}

// ConnectionConfig — параметры именованного подключения к источнику данных.
//
// Используется executor'ами data_check и database_query.
type ConnectionConfig struct {
	// Driver — тип источника: "postgres" (пока единственный встроенный).
	Driver string `json:"driver"`

	// DSN — строка подключения.
	DSN string `json:"dsn"`
}

// RunbookConfig — полная конфигурация runbook.
//
// Поступает в движок уже распарсенной (из какого формата — вне зоны
// ответственности движка). Валидируется engine.Validate перед стартом run.
type RunbookConfig struct {
	// ID — уникальный идентификатор runbook.
	ID string `json:"id"`

	// Name — человекочитаемое имя.
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// Version — версия runbook (семантическая строка).
	Version string `json:"version,omitempty"`

	// Owner — владелец runbook.
	Owner string `json:"owner,omitempty"`

	// Team — команда-владелец.
	Team string `json:"team,omitempty"`

	// Tags — теги для поиска.
	Tags []string `json:"tags,omitempty"`

	// Tasks — упорядоченный список задач.
	Tasks []TaskSpec `json:"tasks"`

	// Schedule — расписание автоматического запуска (опционально).
	Schedule *ScheduleSpec `json:"schedule,omitempty"`

	// GlobalTimeoutMin — глобальный таймаут run в минутах.
	// 0 — без глобального дедлайна.
	GlobalTimeoutMin int `json:"global_timeout_min,omitempty"`

	// MaxParallelTasks — максимум одновременно выполняющихся задач
	// на весь run. 0 — используется DefaultMaxParallelTasks.
	MaxParallelTasks int `json:"max_parallel_tasks,omitempty"`

	// Environment — целевое окружение (для отчётности).
	Environment string `json:"environment,omitempty"`

	// Connections — именованные подключения к источникам данных.
	Connections map[string]ConnectionConfig `json:"connections,omitempty"`
}

// DefaultMaxParallelTasks — лимит параллелизма, если не задан.
const DefaultMaxParallelTasks = 5

// MaxParallel возвращает лимит параллелизма с учётом умолчания.
func (c *RunbookConfig) MaxParallel() int {
	if c.MaxParallelTasks <= 0 {
		return DefaultMaxParallelTasks
	}
	return c.MaxParallelTasks
}

// GlobalTimeout возвращает глобальный таймаут run.
// 0 — дедлайн не устанавливается.
func (c *RunbookConfig) GlobalTimeout() time.Duration {
	if c.GlobalTimeoutMin <= 0 {
		return 0
	}
	return time.Duration(c.GlobalTimeoutMin) * time.Minute
}

// TaskByID возвращает задачу по ID или nil.
func (c *RunbookConfig) TaskByID(id string) *TaskSpec {
	for i := range c.Tasks {
		if c.Tasks[i].ID == id {
			return &c.Tasks[i]
		}
	}
	return nil
}

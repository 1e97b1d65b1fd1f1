// Package executor реализует выполнение отдельных типов задач.
//
// Каждый тип задачи (api_call, wait, data_check, database_query,
// notification, conditional, ui_automation) обслуживается своим
// Executor'ом; Registry сопоставляет тип задачи executor'у.
//
// Executor выполняет ровно одну попытку: политика retry и таймаутов
// живёт в координаторе (internal/orchestrator), executor лишь
// уважает переданный контекст.
package executor

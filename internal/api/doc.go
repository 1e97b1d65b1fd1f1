// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go         — Handler с DI (оркестратор, репозитории, планировщик, logger)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (logging, recovery)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - dto.go             — Data Transfer Objects (request/response)
//   - runbook_handler.go — обработчики для /runbooks
//   - run_handler.go     — обработчики для /runs
//
// API предоставляет REST endpoints для управления runbook'ами и прогонами:
// регистрация конфигураций, ручной запуск, наблюдение за активными прогонами
// и управление ими (cancel/pause/resume).
package api

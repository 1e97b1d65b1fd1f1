// Package engine содержит чистую логику планирования runbook.
//
// Включает:
//   - graph.go    — построение графа зависимостей (dependents + in-degree)
//   - validate.go — валидация RunbookConfig перед стартом run
//   - vars.go     — текстовая подстановка переменных ${name} в конфигурацию
//
// Engine отвечает за понимание структуры runbook и вычисление
// послойного порядка выполнения (батчей) по алгоритму Кана.
// Пакет не имеет побочных эффектов и не знает про executor'ы,
// уведомления и хранилище.
package engine

// Package orchestrator управляет жизненным циклом run'ов.
//
// Оркестратор держит активные run'ы в памяти и ведёт каждый run
// отдельной горутиной-драйвером:
//
//   - orchestrator.go — публичные операции Start/GetStatus/Pause/
//     Resume/Cancel/Stop и реестр активных run'ов
//   - coordinator.go  — драйвер run: диспетчеризация батчей,
//     retry/timeout-политика задач, финализация
//   - run_state.go    — состояние одного run, правила eligibility,
//     pause/cancel-протокол
//   - snapshot.go     — неизменяемые срезы состояния для API и CLI
//
// Батчи вычисляются один раз при старте run; провалы и пропуски
// только сокращают объём работы, цикл обнаруживается до запуска
// первой задачи.
package orchestrator

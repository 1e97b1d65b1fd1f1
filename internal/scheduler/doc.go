// Package scheduler запускает runbook'и по расписанию.
//
// Структура:
//   - scheduler.go — основная логика (Run, Tick, processRunbook)
//   - cron.go      — cron-выражения и месячные расписания,
//     вычисление следующего времени запуска
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Source:  runbookRepo,
//	    Starter: orch,
//	    Logger:  logger,
//	})
//	go sched.Run(ctx, 30*time.Second)
//
// Планировщик намеренно не персистирует next-due: расписание —
// часть конфигурации runbook, после рестарта сервер продолжает
// со следующего due-момента.
package scheduler

package executor

import (
	"context"
	"time"
)

const defaultWaitSeconds = 60

// WaitExecutor — executor для задачи типа "wait".
//
// Приостанавливает выполнение на заданное время. Уважает отмену
// контекста: при cancel или истечении таймаута задачи ожидание
// прерывается с ошибкой контекста.
//
// Config:
//   - seconds (number): длительность ожидания. Default: 60
//
// Outputs:
//   - waited_seconds (int): фактически запрошенная длительность
type WaitExecutor struct{}

// Execute ждёт заданное число секунд.
func (e *WaitExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	seconds := getInt(req.Config, "seconds", defaultWaitSeconds)
	if seconds < 0 {
		seconds = 0
	}

	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return &Result{
		Outputs: map[string]any{"waited_seconds": seconds},
	}, nil
}

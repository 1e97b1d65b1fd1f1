package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/executor"
	"github.com/shaiso/Conductor/internal/notify"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// runWorkflow — драйвер run: диспетчеризует батчи по порядку,
// финализирует run и публикует итоговое событие.
//
// Инварианты драйвера:
//   - батч N+1 не стартует, пока все задачи батча N не терминальны
//   - одновременно выполняется не более MaxParallel задач
//   - после отмены или истечения глобального дедлайна новые батчи
//     не диспетчеризуются
func (o *Orchestrator) runWorkflow(ctx context.Context, st *runState, logger *slog.Logger) {
	// Семафор параллелизма на весь run, а не на батч.
	sem := make(chan struct{}, st.Config.MaxParallel())

	for i, batch := range st.Batches {
		// Пауза удерживает run между батчами.
		if err := st.waitIfPaused(ctx); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}

		runnable := o.dispatchDecisions(st, batch, logger)
		if len(runnable) == 0 {
			continue
		}

		logger.Debug("dispatching batch",
			"batch", i,
			"tasks", len(runnable),
		)

		var wg sync.WaitGroup
		for _, spec := range runnable {
			wg.Add(1)
			go func(spec *domain.TaskSpec) {
				defer wg.Done()
				o.executeTask(ctx, st, spec, sem, logger)
			}(spec)
		}
		wg.Wait()
	}

	o.finishRun(ctx, st, logger)
}

// dispatchDecisions применяет правила eligibility к батчу:
// возвращает задачи к выполнению, попутно помечая skipped и blocked.
func (o *Orchestrator) dispatchDecisions(st *runState, batch []string, logger *slog.Logger) []*domain.TaskSpec {
	st.mu.Lock()
	defer st.mu.Unlock()

	runnable := make([]*domain.TaskSpec, 0, len(batch))
	for _, taskID := range batch {
		spec := st.Config.TaskByID(taskID)

		switch decision, reason := st.decide(spec); decision {
		case decisionRun:
			runnable = append(runnable, spec)

		case decisionSkip:
			st.markSkipped(taskID, reason)
			telemetry.TasksTotal.WithLabelValues(string(domain.TaskStatusSkipped), string(spec.Kind)).Inc()
			logger.Info("task skipped", "task_id", taskID, "reason", reason)

		case decisionBlock:
			st.markBlocked(taskID, reason)
			logger.Warn("task blocked", "task_id", taskID, "reason", reason)
		}
	}

	return runnable
}

// executeTask выполняет одну задачу: семафор, retry, таймауты.
//
// Протокол retry: RetryCount+1 попыток, фиксированная задержка
// RetryDelay между ними. Таймаут попытки — min(таймаут задачи,
// остаток глобального дедлайна) за счёт наследования контекста run.
// После отмены run новые попытки не предпринимаются.
func (o *Orchestrator) executeTask(ctx context.Context, st *runState, spec *domain.TaskSpec, sem chan struct{}, logger *slog.Logger) {
	// Слот семафора. Отмена run освобождает ожидающих.
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		o.finishTaskOnDeadCtx(ctx, st, spec, logger)
		return
	}
	defer func() { <-sem }()

	logger = telemetry.WithTaskID(logger, spec.ID)

	exec, err := o.registry.Get(spec.Kind)
	if err != nil {
		// Нет executor'а — провал без retry.
		o.finishTask(st, spec, nil, err, logger)
		return
	}

	st.mu.Lock()
	st.execution(spec.ID).MarkRunning()
	variables := st.Run.Variables
	st.mu.Unlock()

	telemetry.RunningTasks.Inc()
	defer telemetry.RunningTasks.Dec()

	if spec.NotifyOnStart {
		o.notifyAsync(notify.Event{
			Type:      notify.EventTaskStarted,
			RunID:     st.Run.ID,
			RunbookID: st.Run.RunbookID,
			TaskID:    spec.ID,
		})
	}

	req := &executor.Request{
		RunID:     st.Run.ID,
		TaskID:    spec.ID,
		Kind:      spec.Kind,
		Config:    engine.SubstituteConfig(spec.Config, variables),
		Variables: variables,
	}

	attempts := spec.RetryCount + 1
	var result *executor.Result
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		st.mu.Lock()
		st.execution(spec.ID).Attempts = attempt
		st.mu.Unlock()

		result, lastErr = o.attempt(ctx, exec, spec, req)
		if lastErr == nil {
			break
		}

		logger.Warn("task attempt failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", lastErr,
		)

		// После отмены run или глобального дедлайна retry бессмысленны.
		if ctx.Err() != nil || attempt == attempts {
			break
		}

		telemetry.TaskRetries.Inc()

		select {
		case <-time.After(spec.RetryDelay()):
		case <-ctx.Done():
		}

		// Отмена могла прийти во время паузы между попытками.
		if ctx.Err() != nil {
			break
		}
	}

	o.finishTask(st, spec, result, lastErr, logger)
}

// attempt выполняет одну попытку с таймаутом задачи.
// Контекст попытки наследует дедлайн run, так что фактический
// таймаут — минимум из двух.
func (o *Orchestrator) attempt(ctx context.Context, exec executor.Executor, spec *domain.TaskSpec, req *executor.Request) (*executor.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, spec.Timeout())
	defer cancel()

	result, err := exec.Execute(attemptCtx, req)
	if err != nil {
		// Таймаут попытки считается провалом попытки.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("attempt timed out after %s: %w", spec.Timeout(), err)
		}
		return nil, err
	}
	return result, nil
}

// finishTask фиксирует терминальный статус задачи и счётчики run.
func (o *Orchestrator) finishTask(st *runState, spec *domain.TaskSpec, result *executor.Result, execErr error, logger *slog.Logger) {
	st.mu.Lock()
	exec := st.execution(spec.ID)

	switch {
	case execErr == nil:
		var outputs map[string]any
		if result != nil {
			outputs = result.Outputs
		}
		exec.MarkCompleted(outputs)
		st.Run.CompletedTasks++

	case st.cancelRequested && errors.Is(execErr, context.Canceled):
		// Задачу прервала отмена run, это не её провал.
		exec.MarkCancelled()

	default:
		exec.MarkFailed(execErr.Error())
		st.Run.FailedTasks++
	}

	status := exec.Status
	duration := exec.Duration()
	st.mu.Unlock()

	if status == domain.TaskStatusCancelled {
		telemetry.TasksTotal.WithLabelValues(string(status), string(spec.Kind)).Inc()
		logger.Info("task cancelled", "duration", duration)
		return
	}

	telemetry.TasksTotal.WithLabelValues(string(status), string(spec.Kind)).Inc()
	telemetry.TaskDuration.WithLabelValues(string(spec.Kind)).Observe(duration.Seconds())

	if execErr == nil {
		logger.Info("task completed", "duration", duration)
		if spec.NotifyOnSuccess {
			o.notifyAsync(notify.Event{
				Type:      notify.EventTaskComplete,
				RunID:     st.Run.ID,
				RunbookID: st.Run.RunbookID,
				TaskID:    spec.ID,
			})
		}
		return
	}

	logger.Error("task failed", "error", execErr, "duration", duration)
	if spec.ShouldNotifyOnFailure() {
		o.notifyAsync(notify.Event{
			Type:      notify.EventTaskFailed,
			RunID:     st.Run.ID,
			RunbookID: st.Run.RunbookID,
			TaskID:    spec.ID,
			Message:   execErr.Error(),
		})
	}
}

// finishTaskOnDeadCtx фиксирует задачу, не дождавшуюся слота семафора.
func (o *Orchestrator) finishTaskOnDeadCtx(ctx context.Context, st *runState, spec *domain.TaskSpec, logger *slog.Logger) {
	st.mu.Lock()
	exec := st.execution(spec.ID)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		exec.MarkFailed("global timeout exceeded")
		st.Run.FailedTasks++
	} else {
		exec.MarkCancelled()
	}
	status := exec.Status
	st.mu.Unlock()

	telemetry.TasksTotal.WithLabelValues(string(status), string(spec.Kind)).Inc()
	logger.Info("task not started", "task_id", spec.ID, "status", status)
}

// finishRun финализирует run: терминальное состояние, незапущенные
// задачи, итоговое событие, запись в историю.
func (o *Orchestrator) finishRun(ctx context.Context, st *runState, logger *slog.Logger) {
	st.mu.Lock()

	// Незапущенные задачи: blocked остаются pending в отчёте,
	// остальные pending при отмене/дедлайне помечаются cancelled.
	if ctx.Err() != nil {
		for _, exec := range st.executions {
			if exec.Status == domain.TaskStatusPending {
				exec.MarkCancelled()
			}
		}
	}

	switch {
	case st.cancelRequested:
		st.Run.MarkCancelled()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		st.Run.MarkFailed(fmt.Sprintf("global timeout %s exceeded", st.Config.GlobalTimeout()))
	case st.Run.FailedTasks > 0:
		st.Run.MarkFailed(fmt.Sprintf("%d of %d tasks failed", st.Run.FailedTasks, st.Run.TotalTasks))
	case len(st.blocked) > 0:
		st.Run.MarkFailed(fmt.Sprintf("%d tasks blocked by failed dependencies", len(st.blocked)))
	default:
		st.Run.MarkCompleted()
	}

	finalState := st.Run.State
	st.mu.Unlock()

	o.mu.Lock()
	delete(o.activeRuns, st.Run.ID)
	o.mu.Unlock()

	telemetry.ActiveRuns.Dec()
	telemetry.RunsTotal.WithLabelValues(string(finalState)).Inc()

	snap := st.snapshot()

	logger.Info("run finished",
		"state", finalState,
		"completed", snap.CompletedTasks,
		"failed", snap.FailedTasks,
		"skipped", snap.SkippedTasks,
		"duration", st.Run.Duration(),
	)

	o.notifyAsync(finalEvent(snap))

	// Контекст run к этому моменту может быть уже отменён,
	// запись в историю идёт с собственным таймаутом.
	recordCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.recorder.Record(recordCtx, st.Run, snap.Tasks); err != nil {
		logger.Error("record run failed", "error", err)
	}
}

// finalEvent строит итоговое событие run из среза состояния.
func finalEvent(snap *RunSnapshot) notify.Event {
	eventType := notify.EventRunCompleted
	switch snap.State {
	case domain.RunStateFailed:
		eventType = notify.EventRunFailed
	case domain.RunStateCancelled:
		eventType = notify.EventRunCancelled
	}

	tasks := make([]notify.TaskReport, 0, len(snap.Tasks))
	for _, task := range snap.Tasks {
		report := notify.TaskReport{
			TaskID:   task.TaskID,
			Status:   string(task.Status),
			Attempts: task.Attempts,
			Error:    task.Error,
		}
		if task.StartedAt != nil && task.FinishedAt != nil {
			report.DurationSec = task.FinishedAt.Sub(*task.StartedAt).Seconds()
		}
		tasks = append(tasks, report)
	}

	return notify.Event{
		Type:           eventType,
		RunID:          snap.RunID,
		RunbookID:      snap.RunbookID,
		RunbookName:    snap.RunbookName,
		State:          string(snap.State),
		Message:        snap.Error,
		TotalTasks:     snap.TotalTasks,
		CompletedTasks: snap.CompletedTasks,
		FailedTasks:    snap.FailedTasks,
		SkippedTasks:   snap.SkippedTasks,
		Tasks:          tasks,
	}
}

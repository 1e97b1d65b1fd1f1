package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/executor"
	"github.com/shaiso/Conductor/internal/notify"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// Recorder сохраняет терминальные run'ы в хранилище истории.
//
// Вызывается один раз на run, после достижения терминального
// состояния. Ошибка записи логируется, но не меняет исход run.
type Recorder interface {
	Record(ctx context.Context, run *domain.Run, tasks []TaskSnapshot) error
}

// NopRecorder — Recorder, который ничего не сохраняет.
type NopRecorder struct{}

// Record реализует Recorder.
func (NopRecorder) Record(context.Context, *domain.Run, []TaskSnapshot) error { return nil }

// ConnectionBinder регистрирует именованные подключения runbook
// перед запуском, чтобы data_check и database_query могли их найти.
// Реализуется executor.Connections.
type ConnectionBinder interface {
	Register(configs map[string]domain.ConnectionConfig)
}

// Orchestrator управляет выполнением run'ов.
//
// Orchestrator — центральный компонент системы, который:
//   - Валидирует runbook и строит граф зависимостей при старте run
//   - Диспетчеризует батчи задач с учётом лимита параллелизма
//   - Применяет политику retry/timeout к каждой задаче
//   - Финализирует run (COMPLETED/FAILED/CANCELLED)
//   - Отдаёт события жизненного цикла notifier'у
type Orchestrator struct {
	registry    *executor.Registry
	notifier    notify.Notifier
	recorder    Recorder
	connections ConnectionBinder
	logger      *slog.Logger

	// activeRuns — run'ы в процессе выполнения (runID → state).
	activeRuns map[uuid.UUID]*runState
	mu         sync.RWMutex

	// Lifecycle
	wg        sync.WaitGroup
	stopped   bool
	stoppedMu sync.RWMutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Registry — реестр executor'ов по типу задачи (обязательно).
	Registry *executor.Registry

	// Notifier — доставка событий жизненного цикла.
	// nil — события не отправляются.
	Notifier notify.Notifier

	// Recorder — архивация терминальных run'ов.
	// nil — история не сохраняется.
	Recorder Recorder

	// Connections — привязка именованных подключений runbook.
	// nil — подключения из конфигурации игнорируются.
	Connections ConnectionBinder

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		registry:    cfg.Registry,
		notifier:    notifier,
		recorder:    recorder,
		connections: cfg.Connections,
		logger:      logger,
		activeRuns:  make(map[uuid.UUID]*runState),
	}
}

// Start запускает выполнение runbook.
//
// Синхронная часть: валидация конфигурации, построение графа,
// вычисление батчей. Ошибка на этом этапе возвращается вызывающему,
// run фиксируется в истории как FAILED_TO_START, ни один executor
// не вызывается.
//
// После успешной инициализации run выполняется в фоновой горутине,
// Start немедленно возвращает срез состояния.
func (o *Orchestrator) Start(ctx context.Context, cfg *domain.RunbookConfig, variables map[string]string, triggeredBy string) (*RunSnapshot, error) {
	o.stoppedMu.RLock()
	if o.stopped {
		o.stoppedMu.RUnlock()
		return nil, ErrStopped
	}
	o.stoppedMu.RUnlock()

	run := &domain.Run{
		ID:          uuid.New(),
		RunbookID:   cfg.ID,
		RunbookName: cfg.Name,
		State:       domain.RunStateInitializing,
		TriggeredBy: triggeredBy,
		Variables:   variables,
		CreatedAt:   time.Now(),
	}

	logger := telemetry.WithRunbookID(telemetry.WithRunID(o.logger, run.ID.String()), cfg.ID)

	if err := engine.Validate(cfg); err != nil {
		return o.failToStart(ctx, run, logger, err)
	}

	st, err := newRunState(run, cfg)
	if err != nil {
		return o.failToStart(ctx, run, logger, err)
	}

	if o.connections != nil && len(cfg.Connections) > 0 {
		o.connections.Register(cfg.Connections)
	}

	runCtx, cancel := o.runContext(cfg)
	st.cancel = cancel

	run.MarkRunning(cfg.GlobalTimeout())

	o.mu.Lock()
	o.activeRuns[run.ID] = st
	o.mu.Unlock()

	telemetry.ActiveRuns.Inc()

	logger.Info("run started",
		"triggered_by", triggeredBy,
		"total_tasks", run.TotalTasks,
		"batches", len(st.Batches),
		"max_parallel", cfg.MaxParallel(),
	)

	o.notifyAsync(notify.Event{
		Type:        notify.EventRunStarted,
		RunID:       run.ID,
		RunbookID:   run.RunbookID,
		RunbookName: run.RunbookName,
		State:       string(domain.RunStateRunning),
		TotalTasks:  run.TotalTasks,
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.runWorkflow(runCtx, st, logger)
	}()

	return st.snapshot(), nil
}

// runContext строит контекст run: независимый от контекста вызова
// Start, с дедлайном из глобального таймаута runbook.
func (o *Orchestrator) runContext(cfg *domain.RunbookConfig) (context.Context, context.CancelFunc) {
	if timeout := cfg.GlobalTimeout(); timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

// failToStart фиксирует run, не прошедший инициализацию.
func (o *Orchestrator) failToStart(ctx context.Context, run *domain.Run, logger *slog.Logger, cause error) (*RunSnapshot, error) {
	err := fmt.Errorf("%w: %v", ErrInvalidRunbook, cause)
	run.MarkFailedToStart(err.Error())

	logger.Warn("run failed to start", "error", cause)
	telemetry.RunsTotal.WithLabelValues(string(domain.RunStateFailedToStart)).Inc()

	if recErr := o.recorder.Record(ctx, run, nil); recErr != nil {
		logger.Error("record run failed", "error", recErr)
	}

	return nil, err
}

// GetStatus возвращает срез состояния активного run.
// Для завершённых run'ов см. хранилище истории.
func (o *Orchestrator) GetStatus(runID uuid.UUID) (*RunSnapshot, error) {
	o.mu.RLock()
	st, ok := o.activeRuns[runID]
	o.mu.RUnlock()

	if !ok {
		return nil, ErrRunNotFound
	}
	return st.snapshot(), nil
}

// ActiveRuns возвращает срезы всех активных run'ов.
func (o *Orchestrator) ActiveRuns() []*RunSnapshot {
	o.mu.RLock()
	states := make([]*runState, 0, len(o.activeRuns))
	for _, st := range o.activeRuns {
		states = append(states, st)
	}
	o.mu.RUnlock()

	snapshots := make([]*RunSnapshot, 0, len(states))
	for _, st := range states {
		snapshots = append(snapshots, st.snapshot())
	}
	return snapshots
}

// Pause приостанавливает диспетчеризацию новых батчей run.
// Уже запущенные задачи дорабатывают до конца.
func (o *Orchestrator) Pause(runID uuid.UUID) error {
	st, err := o.active(runID)
	if err != nil {
		return err
	}
	if err := st.requestPause(); err != nil {
		return err
	}
	o.logger.Info("run paused", "run_id", runID)
	return nil
}

// Resume возобновляет диспетчеризацию после Pause.
func (o *Orchestrator) Resume(runID uuid.UUID) error {
	st, err := o.active(runID)
	if err != nil {
		return err
	}
	if err := st.requestResume(); err != nil {
		return err
	}
	o.logger.Info("run resumed", "run_id", runID)
	return nil
}

// Cancel отменяет run: контексты выполняющихся задач рвутся,
// незапущенные задачи помечаются CANCELLED. Отмена кооперативная —
// задача, игнорирующая контекст, доработает до конца попытки.
func (o *Orchestrator) Cancel(runID uuid.UUID) error {
	st, err := o.active(runID)
	if err != nil {
		return err
	}
	if err := st.requestCancel(); err != nil {
		return err
	}
	o.logger.Info("run cancelled", "run_id", runID)
	return nil
}

// active возвращает состояние активного run.
func (o *Orchestrator) active(runID uuid.UUID) (*runState, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	st, ok := o.activeRuns[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return st, nil
}

// Stop останавливает оркестратор: новые run'ы не принимаются,
// активные отменяются, затем Stop ждёт завершения всех драйверов
// или истечения ctx.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.stoppedMu.Lock()
	if o.stopped {
		o.stoppedMu.Unlock()
		return nil
	}
	o.stopped = true
	o.stoppedMu.Unlock()

	o.logger.Info("stopping orchestrator")

	o.mu.RLock()
	for _, st := range o.activeRuns {
		_ = st.requestCancel()
	}
	o.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("orchestrator stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notifyAsync отправляет событие, не блокируя вызывающего.
func (o *Orchestrator) notifyAsync(event notify.Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	go o.notifier.Notify(context.Background(), event)
}

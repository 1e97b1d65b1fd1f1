package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/executor"
)

// scriptExecutor — управляемый executor для тестов: считает вызовы,
// записывает порядок стартов и отслеживает пиковый параллелизм.
type scriptExecutor struct {
	mu         sync.Mutex
	calls      map[string]int
	order      []string
	running    int
	maxRunning int

	// fn — поведение задачи; nil означает мгновенный успех.
	fn map[string]func(ctx context.Context, attempt int) error
}

func newScriptExecutor() *scriptExecutor {
	return &scriptExecutor{
		calls: make(map[string]int),
		fn:    make(map[string]func(ctx context.Context, attempt int) error),
	}
}

func (e *scriptExecutor) Execute(ctx context.Context, req *executor.Request) (*executor.Result, error) {
	e.mu.Lock()
	e.calls[req.TaskID]++
	attempt := e.calls[req.TaskID]
	e.order = append(e.order, req.TaskID)
	e.running++
	if e.running > e.maxRunning {
		e.maxRunning = e.running
	}
	fn := e.fn[req.TaskID]
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running--
		e.mu.Unlock()
	}()

	if fn != nil {
		if err := fn(ctx, attempt); err != nil {
			return nil, err
		}
	}
	return &executor.Result{Outputs: map[string]any{"ok": true}}, nil
}

func (e *scriptExecutor) callCount(taskID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[taskID]
}

func (e *scriptExecutor) totalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, n := range e.calls {
		total += n
	}
	return total
}

func (e *scriptExecutor) startOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// captureRecorder сохраняет терминальный run и сигналит о записи.
type captureRecorder struct {
	mu    sync.Mutex
	run   *domain.Run
	tasks []TaskSnapshot
	done  chan struct{}
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{done: make(chan struct{}, 1)}
}

func (r *captureRecorder) Record(_ context.Context, run *domain.Run, tasks []TaskSnapshot) error {
	r.mu.Lock()
	r.run = run
	r.tasks = tasks
	r.mu.Unlock()

	select {
	case r.done <- struct{}{}:
	default:
	}
	return nil
}

// wait ждёт финализации run и возвращает записанное состояние.
func (r *captureRecorder) wait(t *testing.T) (*domain.Run, []TaskSnapshot) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish in time")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run, r.tasks
}

func (r *captureRecorder) taskStatus(t *testing.T, taskID string) domain.TaskStatus {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		if task.TaskID == taskID {
			return task.Status
		}
	}
	t.Fatalf("task %s not found in recorded run", taskID)
	return ""
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(script *scriptExecutor, rec Recorder) *Orchestrator {
	registry := executor.NewRegistry()
	registry.Register(domain.TaskKindAPICall, script)
	return New(Config{
		Registry: registry,
		Recorder: rec,
		Logger:   testLogger(),
	})
}

func task(id string, deps ...string) domain.TaskSpec {
	return domain.TaskSpec{
		ID:        id,
		Kind:      domain.TaskKindAPICall,
		DependsOn: deps,
	}
}

func runbook(tasks ...domain.TaskSpec) *domain.RunbookConfig {
	return &domain.RunbookConfig{
		ID:    "rb-test",
		Name:  "Test Runbook",
		Tasks: tasks,
	}
}

func TestStart_CyclicRunbookDoesNotExecute(t *testing.T) {
	script := newScriptExecutor()
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	cfg := runbook(task("a", "b"), task("b", "a"))

	_, err := o.Start(context.Background(), cfg, nil, "manual")
	if !errors.Is(err, ErrInvalidRunbook) {
		t.Fatalf("Start() error = %v, want ErrInvalidRunbook", err)
	}

	if script.totalCalls() != 0 {
		t.Errorf("executors invoked %d times for cyclic runbook, want 0", script.totalCalls())
	}

	run, _ := rec.wait(t)
	if run.State != domain.RunStateFailedToStart {
		t.Errorf("run state = %s, want %s", run.State, domain.RunStateFailedToStart)
	}
}

func TestStart_EmptyRunbook(t *testing.T) {
	script := newScriptExecutor()
	o := newTestOrchestrator(script, newCaptureRecorder())

	_, err := o.Start(context.Background(), runbook(), nil, "manual")
	if !errors.Is(err, ErrInvalidRunbook) {
		t.Fatalf("Start() error = %v, want ErrInvalidRunbook", err)
	}
}

func TestRun_LinearThenParallel(t *testing.T) {
	script := newScriptExecutor()
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	// a; b и c зависят от a — батчи [a], [b c].
	cfg := runbook(task("a"), task("b", "a"), task("c", "a"))

	snap, err := o.Start(context.Background(), cfg, nil, "manual")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if snap.TotalTasks != 3 {
		t.Errorf("TotalTasks = %d, want 3", snap.TotalTasks)
	}

	run, _ := rec.wait(t)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("run state = %s, want completed (error: %s)", run.State, run.Error)
	}
	if run.CompletedTasks != 3 || run.FailedTasks != 0 || run.SkippedTasks != 0 {
		t.Errorf("counters = %d/%d/%d, want 3/0/0",
			run.CompletedTasks, run.FailedTasks, run.SkippedTasks)
	}

	order := script.startOrder()
	if len(order) != 3 || order[0] != "a" {
		t.Errorf("start order = %v, want a first", order)
	}
}

func TestRun_DiamondBatchOrdering(t *testing.T) {
	script := newScriptExecutor()
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	cfg := runbook(task("a"), task("b", "a"), task("c", "a"), task("d", "b", "c"))

	if _, err := o.Start(context.Background(), cfg, nil, "manual"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	run, _ := rec.wait(t)
	if run.State != domain.RunStateCompleted {
		t.Fatalf("run state = %s, want completed", run.State)
	}

	order := script.startOrder()
	if order[0] != "a" || order[len(order)-1] != "d" {
		t.Errorf("start order = %v, want a first and d last", order)
	}
}

func TestRun_RetryProtocol(t *testing.T) {
	script := newScriptExecutor()
	script.fn["flaky"] = func(context.Context, int) error {
		return errors.New("boom")
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	spec := task("flaky")
	spec.RetryCount = 2
	spec.RetryDelaySec = 1

	cfg := runbook(spec)

	if _, err := o.Start(context.Background(), cfg, nil, "manual"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	run, tasks := rec.wait(t)

	// retry_count=2 означает ровно 3 попытки.
	if got := script.callCount("flaky"); got != 3 {
		t.Errorf("executor invoked %d times, want 3", got)
	}
	if run.State != domain.RunStateFailed {
		t.Errorf("run state = %s, want failed", run.State)
	}
	if tasks[0].Status != domain.TaskStatusFailed {
		t.Errorf("task status = %s, want failed", tasks[0].Status)
	}
	if tasks[0].Attempts != 3 {
		t.Errorf("attempts = %d, want 3", tasks[0].Attempts)
	}
}

func TestRun_RetrySucceedsOnSecondAttempt(t *testing.T) {
	script := newScriptExecutor()
	script.fn["flaky"] = func(_ context.Context, attempt int) error {
		if attempt == 1 {
			return errors.New("transient")
		}
		return nil
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	spec := task("flaky")
	spec.RetryCount = 2
	spec.RetryDelaySec = 1

	if _, err := o.Start(context.Background(), runbook(spec), nil, "manual"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	run, tasks := rec.wait(t)

	if got := script.callCount("flaky"); got != 2 {
		t.Errorf("executor invoked %d times, want 2", got)
	}
	if run.State != domain.RunStateCompleted {
		t.Errorf("run state = %s, want completed", run.State)
	}
	if tasks[0].Attempts != 2 {
		t.Errorf("attempts = %d, want 2", tasks[0].Attempts)
	}
}

func TestRun_SkipOnFailure(t *testing.T) {
	script := newScriptExecutor()
	script.fn["a"] = func(context.Context, int) error {
		return errors.New("boom")
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	dependent := task("b", "a")
	dependent.SkipOnFailure = true

	cfg := runbook(task("a"), dependent)

	if _, err := o.Start(context.Background(), cfg, nil, "manual"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	run, _ := rec.wait(t)

	if got := script.callCount("b"); got != 0 {
		t.Errorf("skipped task invoked %d times, want 0", got)
	}
	if rec.taskStatus(t, "b") != domain.TaskStatusSkipped {
		t.Errorf("task b status = %s, want skipped", rec.taskStatus(t, "b"))
	}
	if run.State != domain.RunStateFailed {
		t.Errorf("run state = %s, want failed", run.State)
	}
	if run.CompletedTasks != 0 || run.FailedTasks != 1 || run.SkippedTasks != 1 {
		t.Errorf("counters = %d/%d/%d, want 0/1/1",
			run.CompletedTasks, run.FailedTasks, run.SkippedTasks)
	}
}

func TestRun_SkipCascade(t *testing.T) {
	script := newScriptExecutor()
	script.fn["a"] = func(context.Context, int) error {
		return errors.New("boom")
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	b := task("b", "a")
	b.SkipOnFailure = true
	c := task("c", "b")
	c.SkipOnFailure = true

	if _, err := o.Start(context.Background(), runbook(task("a"), b, c), nil, "manual"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	run, _ := rec.wait(t)

	// Пропуск каскадирует: c зависит от пропущенной b.
	if rec.taskStatus(t, "c") != domain.TaskStatusSkipped {
		t.Errorf("task c status = %s, want skipped", rec.taskStatus(t, "c"))
	}
	if run.SkippedTasks != 2 {
		t.Errorf("skipped = %d, want 2", run.SkippedTasks)
	}
}

func TestRun_BlockedDependentFailsRun(t *testing.T) {
	script := newScriptExecutor()
	script.fn["a"] = func(context.Context, int) error {
		return errors.New("boom")
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	// b без skip_on_failure — блокируется и остаётся pending.
	cfg := runbook(task("a"), task("b", "a"))

	if _, err := o.Start(context.Background(), cfg, nil, "manual"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	run, _ := rec.wait(t)

	if got := script.callCount("b"); got != 0 {
		t.Errorf("blocked task invoked %d times, want 0", got)
	}
	if rec.taskStatus(t, "b") != domain.TaskStatusPending {
		t.Errorf("task b status = %s, want pending", rec.taskStatus(t, "b"))
	}
	if run.State != domain.RunStateFailed {
		t.Errorf("run state = %s, want failed", run.State)
	}
}

func TestRun_MaxParallelRespected(t *testing.T) {
	script := newScriptExecutor()
	for _, id := range []string{"a", "b", "c", "d"} {
		script.fn[id] = func(ctx context.Context, _ int) error {
			select {
			case <-time.After(20 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	cfg := runbook(task("a"), task("b"), task("c"), task("d"))
	cfg.MaxParallelTasks = 1

	if _, err := o.Start(context.Background(), cfg, nil, "manual"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	run, _ := rec.wait(t)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("run state = %s, want completed", run.State)
	}
	if script.maxRunning > 1 {
		t.Errorf("max concurrent executions = %d, want 1", script.maxRunning)
	}
}

func TestRun_Cancel(t *testing.T) {
	started := make(chan struct{})
	script := newScriptExecutor()
	script.fn["slow"] = func(ctx context.Context, _ int) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	// after никогда не должен стартовать.
	cfg := runbook(task("slow"), task("after", "slow"))

	snap, err := o.Start(context.Background(), cfg, nil, "manual")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	<-started
	if err := o.Cancel(snap.RunID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	run, _ := rec.wait(t)

	if run.State != domain.RunStateCancelled {
		t.Errorf("run state = %s, want cancelled", run.State)
	}
	if rec.taskStatus(t, "slow") != domain.TaskStatusCancelled {
		t.Errorf("task slow status = %s, want cancelled", rec.taskStatus(t, "slow"))
	}
	if rec.taskStatus(t, "after") != domain.TaskStatusCancelled {
		t.Errorf("task after status = %s, want cancelled", rec.taskStatus(t, "after"))
	}
	if script.callCount("after") != 0 {
		t.Errorf("cancelled task invoked %d times, want 0", script.callCount("after"))
	}

	// Завершённый run исчезает из активных.
	if _, err := o.GetStatus(snap.RunID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetStatus() after finish error = %v, want ErrRunNotFound", err)
	}
}

func TestRun_CancelDuringRetryDelayStopsAttempts(t *testing.T) {
	firstFailed := make(chan struct{})
	script := newScriptExecutor()
	script.fn["flaky"] = func(_ context.Context, attempt int) error {
		if attempt == 1 {
			close(firstFailed)
		}
		return errors.New("boom")
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	spec := task("flaky")
	spec.RetryCount = 5
	spec.RetryDelaySec = 60

	snap, err := o.Start(context.Background(), runbook(spec), nil, "manual")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Отмена приходит, пока задача ждёт паузу между попытками.
	<-firstFailed
	if err := o.Cancel(snap.RunID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	run, _ := rec.wait(t)

	if run.State != domain.RunStateCancelled {
		t.Errorf("run state = %s, want cancelled", run.State)
	}
	if got := script.callCount("flaky"); got != 1 {
		t.Errorf("executor invoked %d times, want 1 (no new attempts after cancel)", got)
	}
}

func TestRun_PauseWithholdsNextBatch(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})

	script := newScriptExecutor()
	script.fn["first"] = func(ctx context.Context, _ int) error {
		close(firstStarted)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	cfg := runbook(task("first"), task("second", "first"))

	snap, err := o.Start(context.Background(), cfg, nil, "manual")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	<-firstStarted
	if err := o.Pause(snap.RunID); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	// Первая задача дорабатывает, вторая не стартует.
	close(release)
	time.Sleep(100 * time.Millisecond)

	if got := script.callCount("second"); got != 0 {
		t.Fatalf("second batch dispatched while paused, calls = %d", got)
	}

	status, err := o.GetStatus(snap.RunID)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.State != domain.RunStatePaused {
		t.Errorf("state = %s, want paused", status.State)
	}

	if err := o.Resume(snap.RunID); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	run, _ := rec.wait(t)
	if run.State != domain.RunStateCompleted {
		t.Errorf("run state = %s, want completed", run.State)
	}
	if script.callCount("second") != 1 {
		t.Errorf("second invoked %d times after resume, want 1", script.callCount("second"))
	}
}

func TestPause_NotRunning(t *testing.T) {
	o := newTestOrchestrator(newScriptExecutor(), NopRecorder{})
	if err := o.Pause(uuid.New()); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Pause(unknown) error = %v, want ErrRunNotFound", err)
	}
}

func TestRunWorkflow_GlobalDeadline(t *testing.T) {
	script := newScriptExecutor()
	script.fn["slow"] = func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	cfg := runbook(task("slow"), task("after", "slow"))
	cfg.GlobalTimeoutMin = 60

	run := &domain.Run{
		ID:          uuid.New(),
		RunbookID:   cfg.ID,
		State:       domain.RunStateInitializing,
		TriggeredBy: "manual",
		CreatedAt:   time.Now(),
	}

	st, err := newRunState(run, cfg)
	if err != nil {
		t.Fatalf("newRunState() error = %v", err)
	}

	// Контекст run с коротким дедлайном вместо часового.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	st.cancel = cancel

	run.MarkRunning(cfg.GlobalTimeout())
	o.runWorkflow(ctx, st, testLogger())

	recorded, _ := rec.wait(t)

	if recorded.State != domain.RunStateFailed {
		t.Errorf("run state = %s, want failed", recorded.State)
	}
	if recorded.Error == "" {
		t.Error("run error is empty, want global timeout message")
	}
	if rec.taskStatus(t, "slow") != domain.TaskStatusFailed {
		t.Errorf("task slow status = %s, want failed", rec.taskStatus(t, "slow"))
	}
	if rec.taskStatus(t, "after") != domain.TaskStatusCancelled {
		t.Errorf("task after status = %s, want cancelled", rec.taskStatus(t, "after"))
	}
}

func TestStart_VariablesReachExecutor(t *testing.T) {
	var gotURL string
	var mu sync.Mutex

	registry := executor.NewRegistry()
	registry.Register(domain.TaskKindAPICall, executorFunc(func(_ context.Context, req *executor.Request) (*executor.Result, error) {
		mu.Lock()
		gotURL, _ = req.Config["url"].(string)
		mu.Unlock()
		return &executor.Result{}, nil
	}))

	rec := newCaptureRecorder()
	o := New(Config{Registry: registry, Recorder: rec, Logger: testLogger()})

	spec := task("call")
	spec.Config = map[string]any{"url": "https://api.example.com/${env}/ping"}

	_, err := o.Start(context.Background(), runbook(spec), map[string]string{"env": "prod"}, "manual")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rec.wait(t)

	mu.Lock()
	defer mu.Unlock()
	if gotURL != "https://api.example.com/prod/ping" {
		t.Errorf("substituted url = %q", gotURL)
	}
}

func TestStop_CancelsActiveRuns(t *testing.T) {
	started := make(chan struct{})
	script := newScriptExecutor()
	script.fn["slow"] = func(ctx context.Context, _ int) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	rec := newCaptureRecorder()
	o := newTestOrchestrator(script, rec)

	if _, err := o.Start(context.Background(), runbook(task("slow")), nil, "manual"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if _, err := o.Start(context.Background(), runbook(task("x")), nil, "manual"); !errors.Is(err, ErrStopped) {
		t.Errorf("Start() after Stop error = %v, want ErrStopped", err)
	}
}

// executorFunc — адаптер функции к интерфейсу Executor.
type executorFunc func(ctx context.Context, req *executor.Request) (*executor.Result, error)

func (f executorFunc) Execute(ctx context.Context, req *executor.Request) (*executor.Result, error) {
	return f(ctx, req)
}

func TestSnapshot_ProgressEmptyRun(t *testing.T) {
	run := &domain.Run{TotalTasks: 0}
	if got := run.Progress(); got != 100.0 {
		t.Errorf("Progress() = %v, want 100", got)
	}
}

func TestStart_TriggeredByPropagated(t *testing.T) {
	rec := newCaptureRecorder()
	o := newTestOrchestrator(newScriptExecutor(), rec)

	snap, err := o.Start(context.Background(), runbook(task("a")), nil, "schedule")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if snap.TriggeredBy != "schedule" {
		t.Errorf("TriggeredBy = %q, want schedule", snap.TriggeredBy)
	}

	run, _ := rec.wait(t)
	if run.TriggeredBy != "schedule" {
		t.Errorf("recorded TriggeredBy = %q, want schedule", run.TriggeredBy)
	}
}

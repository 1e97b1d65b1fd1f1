package orchestrator

import (
	"context"
	"sync"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
)

// runState — состояние выполнения одного run в памяти.
//
// Создаётся при старте run и удаляется из activeRuns при достижении
// терминального состояния. Все мутации Run и executions идут через
// методы runState под mu.
type runState struct {
	// Run — изменяемая запись run. Читать/писать только под mu.
	Run *domain.Run

	// Config — конфигурация runbook. Неизменяема после старта.
	Config *domain.RunbookConfig

	// Graph — граф зависимостей задач.
	Graph *engine.Graph

	// Batches — послойный порядок выполнения, вычислен один раз
	// при старте run.
	Batches [][]string

	// executions — записи выполнения по TaskID.
	executions map[string]*domain.TaskExecution

	// blocked — задачи, которые не могут выполниться из-за упавшей
	// зависимости и не имеют skip_on_failure. Остаются pending,
	// run завершается FAILED.
	blocked map[string]string

	// cancel — отмена контекста run (Cancel, Stop, глобальный дедлайн).
	cancel context.CancelFunc

	// cancelRequested — Cancel() был вызван пользователем.
	cancelRequested bool

	// paused — диспетчеризация новых батчей приостановлена.
	paused bool

	// resumeCh — закрывается при Resume; пересоздаётся при каждом Pause.
	resumeCh chan struct{}

	mu sync.RWMutex
}

// newRunState строит состояние run из конфигурации.
// Граф и батчи вычисляются здесь один раз; ошибка означает,
// что run не стартует.
func newRunState(run *domain.Run, cfg *domain.RunbookConfig) (*runState, error) {
	graph, err := engine.BuildGraph(cfg.Tasks)
	if err != nil {
		return nil, err
	}

	batches, err := graph.Batches()
	if err != nil {
		return nil, err
	}

	executions := make(map[string]*domain.TaskExecution, len(cfg.Tasks))
	for i := range cfg.Tasks {
		task := &cfg.Tasks[i]
		executions[task.ID] = &domain.TaskExecution{
			TaskID: task.ID,
			Name:   task.Name,
			Kind:   task.Kind,
			Status: domain.TaskStatusPending,
		}
	}

	run.TotalTasks = len(cfg.Tasks)

	return &runState{
		Run:        run,
		Config:     cfg,
		Graph:      graph,
		Batches:    batches,
		executions: executions,
		blocked:    make(map[string]string),
	}, nil
}

// execution возвращает запись выполнения задачи.
func (s *runState) execution(taskID string) *domain.TaskExecution {
	return s.executions[taskID]
}

// taskDecision — решение о судьбе задачи перед диспетчеризацией батча.
type taskDecision int

const (
	decisionRun taskDecision = iota
	decisionSkip
	decisionBlock
)

// decide определяет, что делать с задачей текущего батча.
//
// Вызывается под mu. Правила:
//   - все зависимости completed → выполнять
//   - зависимость failed/skipped и skip_on_failure → пропустить
//   - зависимость failed/skipped без skip_on_failure → заблокирована,
//     run завершится FAILED
func (s *runState) decide(spec *domain.TaskSpec) (taskDecision, string) {
	for _, depID := range spec.DependsOn {
		dep := s.executions[depID]
		if dep == nil {
			continue
		}

		switch dep.Status {
		case domain.TaskStatusCompleted:
			continue
		case domain.TaskStatusFailed, domain.TaskStatusSkipped, domain.TaskStatusCancelled:
			reason := "dependency " + depID + " " + string(dep.Status)
			if spec.SkipOnFailure {
				return decisionSkip, reason
			}
			return decisionBlock, reason
		default:
			// Зависимость из более раннего батча обязана быть
			// терминальной к этому моменту.
			reason := "dependency " + depID + " not finished"
			return decisionBlock, reason
		}
	}
	return decisionRun, ""
}

// markSkipped помечает задачу пропущенной и обновляет счётчики.
// Вызывается под mu.
func (s *runState) markSkipped(taskID, reason string) {
	s.executions[taskID].MarkSkipped(reason)
	s.Run.SkippedTasks++
}

// markBlocked фиксирует заблокированную задачу. Остаётся pending.
// Вызывается под mu.
func (s *runState) markBlocked(taskID, reason string) {
	s.blocked[taskID] = reason
}

// requestCancel помечает run отменённым пользователем и рвёт контекст.
func (s *runState) requestCancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Run.IsFinished() {
		return ErrRunFinished
	}

	s.cancelRequested = true

	// Снимаем паузу, чтобы драйвер увидел отмену.
	if s.paused {
		s.paused = false
		close(s.resumeCh)
	}

	s.cancel()
	return nil
}

// requestPause приостанавливает диспетчеризацию новых батчей.
// Уже запущенные задачи продолжают выполняться.
func (s *runState) requestPause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Run.State != domain.RunStateRunning {
		return ErrRunNotPausable
	}

	s.paused = true
	s.resumeCh = make(chan struct{})
	s.Run.State = domain.RunStatePaused
	return nil
}

// requestResume возобновляет диспетчеризацию.
func (s *runState) requestResume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Run.State != domain.RunStatePaused {
		return ErrRunNotPaused
	}

	s.paused = false
	s.Run.State = domain.RunStateRunning
	close(s.resumeCh)
	return nil
}

// waitIfPaused блокирует драйвер, пока run на паузе.
// Возвращает ошибку контекста при отмене во время паузы.
func (s *runState) waitIfPaused(ctx context.Context) error {
	for {
		s.mu.RLock()
		if !s.paused {
			s.mu.RUnlock()
			return ctx.Err()
		}
		resume := s.resumeCh
		s.mu.RUnlock()

		select {
		case <-resume:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

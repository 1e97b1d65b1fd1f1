package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
)

// TaskSnapshot — неизменяемый срез состояния одной задачи.
type TaskSnapshot struct {
	TaskID     string            `json:"task_id"`
	Name       string            `json:"name,omitempty"`
	Kind       domain.TaskKind   `json:"kind"`
	Status     domain.TaskStatus `json:"status"`
	Attempts   int               `json:"attempts"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Result     map[string]any    `json:"result,omitempty"`
}

// RunSnapshot — неизменяемый срез состояния run для API и CLI.
type RunSnapshot struct {
	RunID          uuid.UUID         `json:"run_id"`
	RunbookID      string            `json:"runbook_id"`
	RunbookName    string            `json:"runbook_name,omitempty"`
	State          domain.RunState   `json:"state"`
	TriggeredBy    string            `json:"triggered_by"`
	Progress       float64           `json:"progress"`
	TotalTasks     int               `json:"total_tasks"`
	CompletedTasks int               `json:"completed_tasks"`
	FailedTasks    int               `json:"failed_tasks"`
	SkippedTasks   int               `json:"skipped_tasks"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	FinishedAt     *time.Time        `json:"finished_at,omitempty"`
	DeadlineAt     *time.Time        `json:"deadline_at,omitempty"`
	Error          string            `json:"error,omitempty"`
	Variables      map[string]string `json:"variables,omitempty"`
	Tasks          []TaskSnapshot    `json:"tasks"`
	CreatedAt      time.Time         `json:"created_at"`
}

// snapshot строит срез состояния run под блокировкой.
//
// Порядок задач в срезе — порядок задач в конфигурации runbook.
func (s *runState) snapshot() *RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]TaskSnapshot, 0, len(s.Config.Tasks))
	for i := range s.Config.Tasks {
		exec := s.executions[s.Config.Tasks[i].ID]
		tasks = append(tasks, TaskSnapshot{
			TaskID:     exec.TaskID,
			Name:       exec.Name,
			Kind:       exec.Kind,
			Status:     exec.Status,
			Attempts:   exec.Attempts,
			StartedAt:  exec.StartedAt,
			FinishedAt: exec.FinishedAt,
			Error:      exec.Error,
			Result:     exec.Result,
		})
	}

	return &RunSnapshot{
		RunID:          s.Run.ID,
		RunbookID:      s.Run.RunbookID,
		RunbookName:    s.Run.RunbookName,
		State:          s.Run.State,
		TriggeredBy:    s.Run.TriggeredBy,
		Progress:       s.Run.Progress(),
		TotalTasks:     s.Run.TotalTasks,
		CompletedTasks: s.Run.CompletedTasks,
		FailedTasks:    s.Run.FailedTasks,
		SkippedTasks:   s.Run.SkippedTasks,
		StartedAt:      s.Run.StartedAt,
		FinishedAt:     s.Run.FinishedAt,
		DeadlineAt:     s.Run.DeadlineAt,
		Error:          s.Run.Error,
		Variables:      s.Run.Variables,
		Tasks:          tasks,
		CreatedAt:      s.Run.CreatedAt,
	}
}

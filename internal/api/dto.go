package api

import (
	"time"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/orchestrator"
	"github.com/shaiso/Conductor/internal/repo"
)

// StartRunRequest — тело запроса на запуск run.
type StartRunRequest struct {
	// Variables — переменные для подстановки ${name} в конфигурацию задач.
	Variables map[string]string `json:"variables,omitempty"`

	// TriggeredBy — инициатор запуска; пустое значение означает "api".
	TriggeredBy string `json:"triggered_by,omitempty"`
}

// trigger возвращает инициатора запуска с умолчанием.
func (r *StartRunRequest) trigger() string {
	if r.TriggeredBy == "" {
		return "api"
	}
	return r.TriggeredBy
}

// RunbookSummary — краткое представление runbook для списков.
type RunbookSummary struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Version          string     `json:"version,omitempty"`
	Owner            string     `json:"owner,omitempty"`
	Team             string     `json:"team,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	TaskCount        int        `json:"task_count"`
	ScheduleEnabled  bool       `json:"schedule_enabled"`
	NextDueAt        *time.Time `json:"next_due_at,omitempty"`
	GlobalTimeoutMin int        `json:"global_timeout_min,omitempty"`
}

// summaryFromConfig строит краткое представление runbook.
func (h *Handler) summaryFromConfig(cfg *domain.RunbookConfig) RunbookSummary {
	summary := RunbookSummary{
		ID:               cfg.ID,
		Name:             cfg.Name,
		Version:          cfg.Version,
		Owner:            cfg.Owner,
		Team:             cfg.Team,
		Tags:             cfg.Tags,
		TaskCount:        len(cfg.Tasks),
		ScheduleEnabled:  cfg.Schedule != nil && cfg.Schedule.Enabled,
		GlobalTimeoutMin: cfg.GlobalTimeoutMin,
	}

	if summary.ScheduleEnabled && h.scheduler != nil {
		if due, ok := h.scheduler.NextDue(cfg.ID); ok {
			summary.NextDueAt = &due
		}
	}

	return summary
}

// RunSummary — краткое представление run для списков.
type RunSummary struct {
	RunID          string          `json:"run_id"`
	RunbookID      string          `json:"runbook_id"`
	RunbookName    string          `json:"runbook_name,omitempty"`
	State          domain.RunState `json:"state"`
	TriggeredBy    string          `json:"triggered_by"`
	Progress       float64         `json:"progress"`
	TotalTasks     int             `json:"total_tasks"`
	CompletedTasks int             `json:"completed_tasks"`
	FailedTasks    int             `json:"failed_tasks"`
	SkippedTasks   int             `json:"skipped_tasks"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// summaryFromRecord строит краткое представление архивного run.
func summaryFromRecord(record *repo.RunRecord) RunSummary {
	run := &record.Run
	return RunSummary{
		RunID:          run.ID.String(),
		RunbookID:      run.RunbookID,
		RunbookName:    run.RunbookName,
		State:          run.State,
		TriggeredBy:    run.TriggeredBy,
		Progress:       run.Progress(),
		TotalTasks:     run.TotalTasks,
		CompletedTasks: run.CompletedTasks,
		FailedTasks:    run.FailedTasks,
		SkippedTasks:   run.SkippedTasks,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		Error:          run.Error,
	}
}

// snapshotFromRecord приводит архивную запись к форме RunSnapshot,
// чтобы GET /runs/{id} отдавал одинаковую структуру для активных
// и завершённых run'ов.
func snapshotFromRecord(record *repo.RunRecord) *orchestrator.RunSnapshot {
	run := &record.Run
	return &orchestrator.RunSnapshot{
		RunID:          run.ID,
		RunbookID:      run.RunbookID,
		RunbookName:    run.RunbookName,
		State:          run.State,
		TriggeredBy:    run.TriggeredBy,
		Progress:       run.Progress(),
		TotalTasks:     run.TotalTasks,
		CompletedTasks: run.CompletedTasks,
		FailedTasks:    run.FailedTasks,
		SkippedTasks:   run.SkippedTasks,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		DeadlineAt:     run.DeadlineAt,
		Error:          run.Error,
		Variables:      run.Variables,
		Tasks:          record.Tasks,
		CreatedAt:      run.CreatedAt,
	}
}

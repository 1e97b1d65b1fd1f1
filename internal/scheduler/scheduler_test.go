package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/orchestrator"
)

type fakeStarter struct {
	mu    sync.Mutex
	run   int
	by    string
	vars  map[string]string
	runID string
}

func (f *fakeStarter) Start(_ context.Context, cfg *domain.RunbookConfig, variables map[string]string, triggeredBy string) (*orchestrator.RunSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.run++
	f.by = triggeredBy
	f.vars = variables
	f.runID = cfg.ID
	return &orchestrator.RunSnapshot{RunbookID: cfg.ID}, nil
}

func (f *fakeStarter) starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.run
}

func scheduledRunbook() *domain.RunbookConfig {
	return &domain.RunbookConfig{
		ID:   "rb-monthly",
		Name: "Monthly Close",
		Tasks: []domain.TaskSpec{
			{ID: "a", Kind: domain.TaskKindWait},
		},
		Schedule: &domain.ScheduleSpec{
			Enabled:   true,
			CronExpr:  "0 9 * * *",
			Variables: map[string]string{"env": "prod"},
		},
	}
}

func TestScheduler_FirstSightRegistersWithoutRun(t *testing.T) {
	starter := &fakeStarter{}
	s := New(Config{Starter: starter, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	cfg := scheduledRunbook()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	if err := s.processRunbook(context.Background(), cfg, now); err != nil {
		t.Fatalf("processRunbook() error = %v", err)
	}

	if starter.starts() != 0 {
		t.Errorf("run started on first sight, want registration only")
	}

	due, ok := s.NextDue(cfg.ID)
	if !ok {
		t.Fatal("next due not registered")
	}
	want := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("next due = %v, want %v", due, want)
	}
}

func TestScheduler_StartsDueRunbook(t *testing.T) {
	starter := &fakeStarter{}
	s := New(Config{Starter: starter, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	cfg := scheduledRunbook()

	// Регистрация, затем тик после due-момента.
	before := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	if err := s.processRunbook(context.Background(), cfg, before); err != nil {
		t.Fatalf("processRunbook() error = %v", err)
	}

	after := time.Date(2026, 6, 1, 9, 0, 1, 0, time.UTC)
	if err := s.processRunbook(context.Background(), cfg, after); err != nil {
		t.Fatalf("processRunbook() error = %v", err)
	}

	if starter.starts() != 1 {
		t.Fatalf("starts = %d, want 1", starter.starts())
	}
	if starter.by != "schedule" {
		t.Errorf("triggered_by = %q, want schedule", starter.by)
	}
	if starter.vars["env"] != "prod" {
		t.Errorf("schedule variables not passed: %v", starter.vars)
	}

	// Next due сдвинулся на следующий день.
	due, _ := s.NextDue(cfg.ID)
	want := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("next due = %v, want %v", due, want)
	}
}

func TestScheduler_NotDueYet(t *testing.T) {
	starter := &fakeStarter{}
	s := New(Config{Starter: starter, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	cfg := scheduledRunbook()
	before := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	_ = s.processRunbook(context.Background(), cfg, before)
	_ = s.processRunbook(context.Background(), cfg, before.Add(time.Minute))

	if starter.starts() != 0 {
		t.Errorf("starts = %d, want 0 before due", starter.starts())
	}
}

func TestScheduler_PruneRemoved(t *testing.T) {
	s := New(Config{Starter: &fakeStarter{}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	s.setNextDue("ghost", time.Now())
	s.pruneRemoved(nil)

	if _, ok := s.NextDue("ghost"); ok {
		t.Error("removed runbook still tracked")
	}
}

package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
)

func TestCalculateNextDue_Cron(t *testing.T) {
	sched := &domain.ScheduleSpec{
		Enabled:  true,
		CronExpr: "0 9 * * 1", // понедельник 9:00
	}

	// Среда 2026-01-07 12:00 UTC → понедельник 2026-01-12 09:00 UTC.
	from := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue() error = %v", err)
	}

	want := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestCalculateNextDue_Monthly(t *testing.T) {
	sched := &domain.ScheduleSpec{
		Enabled:    true,
		DayOfMonth: 5,
		TimeOfDay:  "09:30",
	}

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "before this month's run",
			from: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "after this month's run rolls to next month",
			from: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
			want: time.Date(2026, 4, 5, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "december rolls to january",
			from: time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC),
			want: time.Date(2027, 1, 5, 9, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := CalculateNextDue(sched, tt.from)
			if err != nil {
				t.Fatalf("CalculateNextDue() error = %v", err)
			}
			if !next.Equal(tt.want) {
				t.Errorf("next = %v, want %v", next, tt.want)
			}
		})
	}
}

func TestCalculateNextDue_MonthlyClampsToLastDay(t *testing.T) {
	sched := &domain.ScheduleSpec{
		Enabled:    true,
		DayOfMonth: 31,
	}

	// Февраль 2026 — 28 дней.
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue() error = %v", err)
	}

	want := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestCalculateNextDue_Timezone(t *testing.T) {
	sched := &domain.ScheduleSpec{
		Enabled:    true,
		DayOfMonth: 10,
		TimeOfDay:  "09:00",
		Timezone:   "Europe/Moscow", // UTC+3
	}

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue() error = %v", err)
	}

	want := time.Date(2026, 5, 10, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v (09:00 MSK)", next, want)
	}
}

func TestCalculateNextDue_EmptySchedule(t *testing.T) {
	sched := &domain.ScheduleSpec{Enabled: true}
	if _, err := CalculateNextDue(sched, time.Now()); err == nil {
		t.Error("CalculateNextDue() error = nil, want error for empty schedule")
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("0 9 * * 1"); err != nil {
		t.Errorf("ValidateCronExpr(valid) error = %v", err)
	}
	if err := ValidateCronExpr("not a cron"); err == nil {
		t.Error("ValidateCronExpr(invalid) error = nil, want error")
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name    string
		sched   *domain.ScheduleSpec
		wantErr bool
	}{
		{name: "nil", sched: nil},
		{name: "cron", sched: &domain.ScheduleSpec{CronExpr: "*/5 * * * *"}},
		{name: "bad cron", sched: &domain.ScheduleSpec{CronExpr: "x"}, wantErr: true},
		{name: "monthly", sched: &domain.ScheduleSpec{DayOfMonth: 15, TimeOfDay: "08:00"}},
		{name: "bad day", sched: &domain.ScheduleSpec{DayOfMonth: 42}, wantErr: true},
		{name: "neither cron nor day", sched: &domain.ScheduleSpec{Enabled: true}, wantErr: true},
		{name: "bad time", sched: &domain.ScheduleSpec{DayOfMonth: 1, TimeOfDay: "25:98"}, wantErr: true},
		{name: "bad timezone", sched: &domain.ScheduleSpec{DayOfMonth: 1, Timezone: "Mars/Olympus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.sched)
			if tt.wantErr && err == nil {
				t.Error("ValidateSchedule() error = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateSchedule() error = %v", err)
			}
		})
	}
}

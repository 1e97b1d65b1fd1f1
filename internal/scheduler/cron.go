package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Conductor/internal/domain"
)

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNextDue вычисляет следующее время запуска для расписания.
// Учитывает timezone расписания, результат возвращается в UTC.
func CalculateNextDue(sched *domain.ScheduleSpec, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil || sched.Timezone == "" {
		// Fallback на UTC если timezone пустой или невалидный
		loc = time.UTC
	}

	fromInTz := from.In(loc)

	if sched.IsCron() {
		return calculateNextCron(sched.CronExpr, fromInTz)
	}

	if sched.IsMonthly() {
		return calculateNextMonthly(sched, fromInTz)
	}

	return time.Time{}, fmt.Errorf("schedule has neither cron_expr nor day_of_month")
}

// calculateNextCron вычисляет следующее время по cron-выражению.
func calculateNextCron(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}

	next := schedule.Next(from)
	return next.UTC(), nil
}

// calculateNextMonthly вычисляет следующий месячный запуск:
// ближайший день DayOfMonth в TimeOfDay, в timezone расписания.
// Если день больше длины месяца, берётся последний день месяца.
func calculateNextMonthly(sched *domain.ScheduleSpec, from time.Time) (time.Time, error) {
	hour, minute := 0, 0
	if sched.TimeOfDay != "" {
		parsed, err := time.Parse("15:04", sched.TimeOfDay)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time_of_day %q: %w", sched.TimeOfDay, err)
		}
		hour, minute = parsed.Hour(), parsed.Minute()
	}

	loc := from.Location()

	baseYear, baseMonth, _ := from.Date()

	// Кандидат в текущем месяце, затем в следующих.
	// time.Date нормализует перелив месяца через границу года.
	for add := 0; add <= 12; add++ {
		year, month, _ := time.Date(baseYear, baseMonth+time.Month(add), 1, 0, 0, 0, 0, loc).Date()

		day := sched.DayOfMonth
		if last := lastDayOfMonth(year, month); day > last {
			day = last
		}

		candidate := time.Date(year, month, day, hour, minute, 0, 0, loc)
		if candidate.After(from) {
			return candidate.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("no next run for day_of_month %d", sched.DayOfMonth)
}

// lastDayOfMonth возвращает число дней в месяце.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// ValidateSchedule проверяет расписание runbook.
func ValidateSchedule(sched *domain.ScheduleSpec) error {
	if sched == nil {
		return nil
	}

	if sched.IsCron() {
		return ValidateCronExpr(sched.CronExpr)
	}

	// Без cron-выражения расписание обязано задавать день месяца,
	// иначе планировщику нечего вычислять.
	if sched.DayOfMonth < 1 || sched.DayOfMonth > 31 {
		return fmt.Errorf("day_of_month %d out of range (1-31)", sched.DayOfMonth)
	}
	if sched.TimeOfDay != "" {
		if _, err := time.Parse("15:04", sched.TimeOfDay); err != nil {
			return fmt.Errorf("invalid time_of_day %q: %w", sched.TimeOfDay, err)
		}
	}
	if sched.Timezone != "" {
		if _, err := time.LoadLocation(sched.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", sched.Timezone, err)
		}
	}
	return nil
}

package domain

// ScheduleSpec — расписание автоматического запуска runbook.
//
// Поддерживаются два режима:
// - Cron-выражение: "0 9 * * 1" (каждый понедельник в 9:00)
// - Месячный запуск: день месяца + время суток (типичный кейс
//   для ежемесячных регламентных runbook'ов)
//
// Scheduler вычисляет next-due по расписанию и создаёт run,
// когда время подошло.
type ScheduleSpec struct {
	// Enabled — флаг активности расписания.
	// Если false, scheduler игнорирует runbook.
	Enabled bool `json:"enabled"`

	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Если задан, DayOfMonth/TimeOfDay игнорируются.
	CronExpr string `json:"cron_expr,omitempty"`

	// DayOfMonth — день месяца для месячного запуска (1–31).
	// Дни больше длины месяца обрезаются до последнего дня.
	DayOfMonth int `json:"day_of_month,omitempty"`

	// TimeOfDay — время суток для месячного запуска в формате "15:04".
	// По умолчанию полночь.
	TimeOfDay string `json:"time_of_day,omitempty"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	Timezone string `json:"timezone,omitempty"`

	// Variables — переменные, передаваемые в каждый созданный run.
	Variables map[string]string `json:"variables,omitempty"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *ScheduleSpec) IsCron() bool {
	return s.CronExpr != ""
}

// IsMonthly возвращает true, если расписание месячное.
func (s *ScheduleSpec) IsMonthly() bool {
	return s.CronExpr == "" && s.DayOfMonth > 0
}

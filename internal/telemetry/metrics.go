package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики оркестратора. Регистрируются в default registry,
// экспортируются через promhttp на /metrics.
var (
	// RunsTotal — число завершённых run'ов по итоговому состоянию.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_runs_total",
		Help: "Completed workflow runs by final state.",
	}, []string{"state"})

	// TasksTotal — число завершённых задач по итоговому статусу.
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conductor_tasks_total",
		Help: "Finished tasks by final status.",
	}, []string{"status", "kind"})

	// TaskDuration — длительность выполнения задач.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conductor_task_duration_seconds",
		Help:    "Task execution duration in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
	}, []string{"kind"})

	// TaskRetries — число повторных попыток выполнения задач.
	TaskRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conductor_task_retries_total",
		Help: "Total task retry attempts.",
	})

	// ActiveRuns — число активных run'ов в данный момент.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conductor_active_runs",
		Help: "Currently active workflow runs.",
	})

	// RunningTasks — число выполняющихся задач в данный момент.
	RunningTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "conductor_running_tasks",
		Help: "Currently running tasks.",
	})
)

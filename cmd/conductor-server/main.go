// Conductor server — API, оркестратор и планировщик в одном процессе.
//
// Активные run'ы живут в памяти оркестратора, поэтому API, scheduler
// и executor'ы запускаются вместе: отдельный API-процесс не видел бы
// выполняющиеся run'ы.
//
// Окружение:
//
//	API_PORT      порт HTTP API (по умолчанию 8080)
//	DB_URL        строка подключения PostgreSQL
//	RABBITMQ_URL  строка подключения RabbitMQ; пусто — события только в лог
//	LOG_LEVEL     debug|info|warn|error
//	LOG_FORMAT    json|text
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conductor/internal/api"
	"github.com/shaiso/Conductor/internal/executor"
	"github.com/shaiso/Conductor/internal/notify"
	"github.com/shaiso/Conductor/internal/orchestrator"
	"github.com/shaiso/Conductor/internal/repo"
	"github.com/shaiso/Conductor/internal/scheduler"
	"github.com/shaiso/Conductor/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conductor-server")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Репозитории
	runbookRepo := repo.NewRunbookRepo(pool)
	runRepo := repo.NewRunRepo(pool)

	// Доставка событий: RabbitMQ, если задан RABBITMQ_URL, иначе лог.
	var notifier notify.Notifier = &notify.LogNotifier{Logger: logger}
	if mqURL := os.Getenv("RABBITMQ_URL"); mqURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(mqURL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq, falling back to log notifier", "error", err)
		} else {
			defer amqpNotifier.Close()
			notifier = notify.Fanout{amqpNotifier, &notify.LogNotifier{Logger: logger}}
			logger.Info("connected to rabbitmq")
		}
	}

	// Executor'ы
	connections := executor.NewConnections(logger)
	defer connections.Close()

	registry := executor.DefaultRegistry(executor.Deps{
		Connections: connections,
		Notifier:    notifier,
	})
	logger.Info("executors registered", "kinds", registry.Kinds())

	// Оркестратор
	orch := orchestrator.New(orchestrator.Config{
		Registry:    registry,
		Notifier:    notifier,
		Recorder:    runRepo,
		Connections: connections,
		Logger:      logger,
	})

	// Планировщик опрашивает расписания раз в 30 секунд
	sched := scheduler.New(scheduler.Config{
		Source:  runbookRepo,
		Starter: orch,
		Logger:  logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go sched.Run(ctx, 30*time.Second)

	// API handler
	handler := api.NewHandler(api.Config{
		Orchestrator: orch,
		RunbookRepo:  runbookRepo,
		RunRepo:      runRepo,
		Scheduler:    sched,
		Logger:       logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// HTTP сервер с graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Сначала перестаём принимать запросы, затем дожидаемся
	// завершения активных run'ов.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if err := orch.Stop(shutdownCtx); err != nil {
		logger.Error("orchestrator stop error", "error", err)
	}

	logger.Info("stopped")
}

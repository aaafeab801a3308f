package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/config"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/mail"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/platform/memory"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/platform/postgres"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/report"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/service/auth"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/store"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/task"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/tasks"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore  store.UserStore
	quizStore  store.QuizStore
	scoreStore store.ScoreStore

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	mailer           mail.EmailSender
	reports          report.Generator

	// Task layer
	registry   *task.Registry
	queue      *task.Queue
	runner     *task.Runner
	taskClient *task.Client
	scheduler  *task.Scheduler
}

// newApplication creates a new application instance with all dependencies
// initialized, including a started worker pool and scheduler.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier()

	// All persistence follows the database configuration: Postgres-backed
	// when a URL is set, in-process otherwise. The in-memory mode serves
	// every route but survives nothing across a restart.
	var queueStore task.QueueStore
	var resultStore task.ResultStore
	if cfg.Database.URL != "" {
		app.db, err = setupAppDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		queueStore = postgres.NewQueueStore(app.db)
		resultStore = postgres.NewResultStore(app.db)
		app.userStore = postgres.NewUserStore(app.db, 0)
		app.quizStore = postgres.NewQuizStore(app.db)
		app.scoreStore = postgres.NewScoreStore(app.db)
	} else {
		queueStore = task.NewMemoryQueueStore()
		resultStore = task.NewMemoryResultStore()
		app.userStore = memory.NewUserStore(0)
		app.quizStore = memory.NewQuizStore()
		app.scoreStore = memory.NewScoreStore()
	}

	app.mailer = mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		From:     cfg.Mail.From,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
	}, logger)
	app.reports = report.NewHTMLGenerator(app.scoreStore)

	// Register task handlers before anything can enqueue.
	app.registry = task.NewRegistry()
	err = tasks.RegisterAll(app.registry, tasks.Deps{
		Users:   app.userStore,
		Quizzes: app.quizStore,
		Scores:  app.scoreStore,
		Reports: app.reports,
		Mailer:  app.mailer,
		Config: tasks.Config{
			MaxRetries:       cfg.Task.MaxRetries,
			RetryBackoffBase: cfg.Task.RetryBackoffBase,
			MailBatchSize:    cfg.Mail.BatchSize,
			MailBatchPause:   cfg.Mail.BatchPause,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register task handlers: %w", err)
	}

	app.queue = task.NewQueue(cfg.Task.QueueSize, queueStore, logger)
	app.runner = task.NewRunner(app.queue, queueStore, resultStore, app.registry,
		task.RunnerConfig{
			WorkerCount:        cfg.Task.WorkerCount,
			RedeliveryInterval: cfg.Task.RedeliveryInterval,
			StuckAge:           cfg.Task.StuckAge,
			ResultRetention:    cfg.Task.ResultTTL,
		}, logger)
	if err := app.runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	app.taskClient = task.NewClient(app.queue, resultStore, app.registry, logger)

	app.scheduler = task.NewScheduler(app.taskClient, logger)
	for _, item := range cfg.Schedule {
		if err := app.scheduler.Add(task.ScheduleEntry{
			TaskName: item.Name,
			Cron:     item.Cron,
			Args:     item.Args,
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule task %q: %w", item.Name, err)
		}
	}
	app.scheduler.Start()

	logger.Info("Application initialized",
		"tasks", app.registry.Names(),
		"schedule_entries", app.scheduler.Entries(),
		"workers", cfg.Task.WorkerCount)
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. Order
// matters: stop producing (scheduler), stop accepting (queue), drain
// workers (runner), then release the database.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.queue != nil {
		app.queue.Close()
	}
	if app.runner != nil {
		app.runner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}

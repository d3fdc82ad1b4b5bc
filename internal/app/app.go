package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/logger"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/internal/repository/task/inmemory"
	"taskboard/internal/repository/task/postgres"
	"taskboard/internal/session"
	"taskboard/internal/store"
	"taskboard/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// demo identity for development runs; any bearer of this token owns the
// seeded dashboard.
const demoToken = "demo-token"

var demoUserID = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

type App struct {
	config    *config.Config
	server    *http.Server
	repo      repository.TaskRepository
	identity  *session.TokenProvider
	worker    *worker.OverdueWorker
	shutdowns []func()
}

func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, logger.Sync)

	if err := a.initRepository(ctx); err != nil {
		return err
	}

	a.identity = session.NewTokenProvider()
	if a.config.Logging.Development {
		a.identity.Register(demoToken, session.Session{
			UserID: demoUserID,
			Email:  "demo@taskboard.local",
			Name:   "Demo User",
		})
		logger.Info("registered demo session",
			zap.String("token", demoToken),
			zap.String("dashboard", "/dashboard/"+demoUserID.String()+"/tasks"))
	}

	newStore := func(owner uuid.UUID) *store.Store {
		return store.New(a.repo, owner, store.WithTimeout(a.config.Store.OpTimeout))
	}
	taskHandler := handlers.NewTaskHandler(a.identity, a.repo, newStore)

	if a.config.Worker.Enabled {
		a.worker = worker.NewOverdueWorker(a.repo, a.config.Worker.Interval, a.config.Worker.BatchSize)
	}

	a.server = &http.Server{
		Addr:    a.config.ServerAddr(),
		Handler: a.router(taskHandler),
	}

	// Config changes take effect on the next restart; the notice makes a
	// stale process visible in the logs.
	config.Watch(func(*config.Config) {
		logger.Info("config file changed, restart to apply")
	})

	return nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case "postgres":
		if err := postgres.Migrate(a.config.Database.URL); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		pg, err := postgres.New(ctx, a.config.Database.URL, postgres.Config{
			MaxConns:    a.config.Database.MaxConnections,
			MinConns:    a.config.Database.MinConnections,
			IdleTimeout: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		a.repo = pg
		a.shutdowns = append(a.shutdowns, pg.Close)
	case "inmemory":
		a.repo = inmemory.NewTaskStorage()
	default:
		return fmt.Errorf("unknown repository type %q", a.config.Repository.Type)
	}

	logger.Info("repository ready", zap.String("type", a.config.Repository.Type))
	return nil
}

func (a *App) router(taskHandler *handlers.TaskHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(100))
	r.Use(middleware.Auth)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
	}))

	r.Route("/dashboard/{ownerID}", func(r chi.Router) {
		r.Get("/tasks", taskHandler.GetTasks)
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/stats", taskHandler.GetStats)
		r.Get("/me", taskHandler.GetProfile)

		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Put("/", taskHandler.UpdateTask)
			r.Post("/toggle", taskHandler.ToggleTask)
			r.Delete("/", taskHandler.DeleteTask)
		})
	})

	r.Post("/signout", taskHandler.SignOut)
	r.Get("/health", taskHandler.HealthCheck)

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	if a.worker != nil {
		go a.worker.Start(workerCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	a.Close()
	return nil
}

func (a *App) Close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}

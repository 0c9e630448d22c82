package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasklist-api/internal/config"
	"github.com/phrazzld/tasklist-api/internal/platform/cache"
	"github.com/phrazzld/tasklist-api/internal/platform/postgres"
	"github.com/phrazzld/tasklist-api/internal/redact"
	"github.com/phrazzld/tasklist-api/internal/service"
	"github.com/phrazzld/tasklist-api/internal/service/auth"
	"github.com/phrazzld/tasklist-api/internal/store"
	"github.com/redis/go-redis/v9"
)

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client

	userStore store.UserStore
	taskStore store.TaskStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	taskService      service.TaskService
}

// newApplication wires the PostgreSQL stores and the services on top of an
// open database.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:           cfg,
		logger:           logger,
		db:               db,
		userStore:        postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost),
		taskStore:        postgres.NewPostgresTaskStore(db, logger),
		passwordVerifier: auth.NewBcryptVerifier(),
	}

	if err := app.initServices(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

// initServices builds the services from the stores already on app. The
// list cache is attached only when Redis is configured and reachable.
func (app *application) initServices(ctx context.Context) error {
	var err error
	app.jwtService, err = auth.NewJWTService(app.config.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", app.config.Auth.TokenLifetimeMinutes))

	var listCache service.TaskListCache
	if app.config.Cache.Enabled() {
		app.redis, err = cache.Connect(ctx, app.config.Cache.RedisURL)
		if err != nil {
			app.logger.Warn("task list cache disabled: redis unavailable",
				slog.String("error", redact.Error(err)))
		} else {
			listCache = cache.NewTaskListCache(app.redis, app.config.Cache.TTL(), app.logger)
			app.logger.Info("task list cache enabled",
				slog.Duration("ttl", app.config.Cache.TTL()))
		}
	}

	app.taskService, err = service.NewTaskService(app.taskStore, listCache, app.config.Tasks, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}
	return nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup closes the Redis client and the database pool.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		closeDB(app.db, app.logger)
	}
	app.logger.Info("application shutdown completed")
}

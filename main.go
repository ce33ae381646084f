package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datastory/config"
	"datastory/config/database"
	"datastory/internal/auth"
	catalogRepo "datastory/internal/catalog/repository"
	catalogService "datastory/internal/catalog/service"
	"datastory/internal/dataset"
	"datastory/internal/render"
	storyRepo "datastory/internal/story/repository"
	storyService "datastory/internal/story/service"
	"datastory/internal/visual"
	"datastory/pkg/logger"
	"datastory/router"
	"datastory/socket"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "datastory",
	Short: "Data story server and authoring tools",
	Long: `datastory serves data-journalism stories with embedded charts, the
content catalog and the collaborative admin workspace.

Run without a subcommand to start the HTTP server.`,
	Version:      version,
	RunE:         runServe,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(os.Getenv("LOG_LEVEL"))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(storiesCmd)
	rootCmd.AddCommand(slugCmd)
	rootCmd.AddCommand(searchCmd)
}

// serveCmd starts the HTTP server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	RunE:  runServe,
}

// app holds the wired services shared by the server and the CLI commands.
type app struct {
	cfg     *config.Config
	stories *storyService.StoryService
	catalog *catalogService.CatalogService
	hub     *socket.Hub
	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logger.Sugar.Warnf("Failed to close resource: %v", err)
		}
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	a := &app{cfg: cfg}

	backend, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	repo := storyRepo.NewStoryRepository(backend)

	loader, err := dataset.NewLoader(cfg.DataDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create dataset loader: %w", err)
	}
	registry := visual.NewRegistry(visual.Builtins(repo, loader))

	a.hub = socket.NewHub()
	a.stories = storyService.NewStoryService(repo, registry, render.NewEngine(), a.hub)
	a.hub.Workspace = a.stories
	a.catalog = catalogService.NewCatalogService(catalogRepo.NewCatalogRepository(cfg.ContentDir))
	return a, nil
}

func (a *app) openBackend(ctx context.Context) (storyRepo.Backend, error) {
	switch a.cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := database.Connect(a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return postgresBackend(ctx, db)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.RedisAddr, err)
		}
		return storyRepo.NewRedisBackend(client, a.cfg.RedisKey), nil
	default:
		return storyRepo.NewFileBackend(a.cfg.StorePath), nil
	}
}

func postgresBackend(ctx context.Context, db *sql.DB) (*storyRepo.PostgresBackend, error) {
	backend := storyRepo.NewPostgresBackend(db)
	if err := backend.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare story table: %w", err)
	}
	return backend, nil
}

// runServe handles the serve command
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to start: %v", err)
		return err
	}
	defer a.Close()

	go a.hub.Run()

	if a.cfg.JWTSecret == "" {
		logger.Sugar.Warn("JWT_SECRET is not set; admin endpoints will reject every request")
	}

	srv := &http.Server{
		Addr: ":" + a.cfg.Port,
		Handler: router.Setup(router.Deps{
			Stories:       a.stories,
			Catalog:       a.catalog,
			Auth:          auth.NewService(a.cfg.AdminUser, a.cfg.AdminPassword, a.cfg.JWTSecret),
			Hub:           a.hub,
			JWTSecret:     a.cfg.JWTSecret,
			AllowedOrigin: a.cfg.AllowedOrigin,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("Server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Errorf("Server stopped: %v", err)
			return err
		}
	case <-ctx.Done():
		logger.Sugar.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}

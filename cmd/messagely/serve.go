package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/messagely/messagely/internal/api"
	"github.com/messagely/messagely/internal/core/service"
	"github.com/messagely/messagely/internal/infrastructure/config"
	"github.com/messagely/messagely/internal/infrastructure/db/redis"
	"github.com/messagely/messagely/internal/infrastructure/http/handlers"
	"github.com/messagely/messagely/internal/infrastructure/queue"
	"github.com/messagely/messagely/internal/infrastructure/security"
	"github.com/messagely/messagely/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. The server stops gracefully on SIGINT or SIGTERM,
draining in-flight requests for up to ten seconds.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "messagely",
	})

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(context.Background())
	log.Info().Str("store", st.name).Msg("store connected")

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, redis.NewPublisher(rdb), log)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	hasher := security.NewBcryptHasher(cfg.Auth.WorkFactor)
	issuer := security.NewJWTIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	authService := service.NewAuthService(st.users, hasher, issuer, log)
	userService := service.NewUserService(st.users, st.messages)
	messageService := service.NewMessageService(
		st.messages, st.users, dispatcher, redis.NewIdempotencyStore(rdb), log,
	).WithIdempotencyTTL(cfg.Notify.IdempotencyTTL)

	e := api.NewRouter(api.Dependencies{
		Auth:     authService,
		Users:    userService,
		Messages: messageService,
		Readiness: map[string]handlers.PingFunc{
			st.name: st.ping,
			"redis": redis.Ping(rdb),
		},
		Log: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}

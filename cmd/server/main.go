package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	gormlogger "gorm.io/gorm/logger"

	"github.com/UkralStul/matjip-discussion/internal/api"
	"github.com/UkralStul/matjip-discussion/internal/auth"
	"github.com/UkralStul/matjip-discussion/internal/config"
	"github.com/UkralStul/matjip-discussion/internal/discussion"
	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/events"
	"github.com/UkralStul/matjip-discussion/internal/ratelimit"
	"github.com/UkralStul/matjip-discussion/internal/storage"
	"github.com/UkralStul/matjip-discussion/internal/storage/inmemory"
	"github.com/UkralStul/matjip-discussion/internal/storage/postgres"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	validator, err := auth.NewValidator(cfg.JWTSecret)
	if err != nil {
		return err
	}
	if cfg.MintToken != "" {
		return mintToken(validator, cfg.MintToken)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting server", "storage", cfg.Storage, "port", cfg.Port)
	var store storage.Storage
	if cfg.Storage == config.StoragePostgres {
		store, err = postgres.New(postgres.Config{DSN: cfg.DatabaseURL, LogLevel: gormLevel(level)})
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
	} else {
		store = inmemory.New()
	}

	observer := events.NewCommentObserver()
	svc := discussion.New(store, discussion.WithLogger(log), discussion.WithObserver(observer))

	if cfg.Seed {
		if err := fillWithMockData(ctx, svc); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimited() {
		policy := ratelimit.Policy{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst}
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer client.Close()
			limiter = ratelimit.NewRedis(client, policy)
			log.Info("rate limiting via redis", "addr", cfg.RedisAddr)
		} else {
			limiter = ratelimit.NewLocal(policy)
		}
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.Options{
			Service:   svc,
			Observer:  observer,
			Validator: validator,
			Limiter:   limiter,
			Logger:    log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// mintToken печатает токен для "user:nick:role" и завершает работу.
func mintToken(v *auth.Validator, arg string) error {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return fmt.Errorf("mint-token: expected user:nick:role, got %q", arg)
	}
	token, err := v.Sign(&domain.Principal{
		UserID:   parts[0],
		Nickname: parts[1],
		Role:     domain.Role(strings.ToUpper(parts[2])),
	}, 24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// gormLevel - SQL пишется в лог только при DEBUG.
func gormLevel(level slog.Level) gormlogger.LogLevel {
	if level <= slog.LevelDebug {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buf.build/go/protovalidate"
	"connectrpc.com/connect"
	"github.com/rs/zerolog"

	"github.com/atlekbai/datagrid/internal/config"
	"github.com/atlekbai/datagrid/internal/db"
	"github.com/atlekbai/datagrid/internal/filter"
	"github.com/atlekbai/datagrid/internal/logging"
	"github.com/atlekbai/datagrid/internal/middleware"
	"github.com/atlekbai/datagrid/internal/schema"
	"github.com/atlekbai/datagrid/internal/server"
	"github.com/atlekbai/datagrid/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.New(logging.Config{Output: os.Stdout})
	if err := run(ctx, &logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

// run loads config, replaces *logger with the configured one and serves until
// ctx is cancelled.
func run(ctx context.Context, logger *zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	*logger = logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	})
	log := *logger

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	cache := schema.NewCache()
	if err := cache.Load(ctx, pool); err != nil {
		return fmt.Errorf("load schema cache: %w", err)
	}
	log.Info().Int("objects", cache.ObjectCount()).Msg("schema cache loaded")

	functions := filter.Functions{}
	if cfg.BinaryFunction != "" {
		functions[filter.BinaryFunction] = filter.FormatFunction(cfg.BinaryFunction)
	}

	validator, err := protovalidate.New()
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}

	interceptors := []connect.Interceptor{
		server.LoggingInterceptor(log),
		server.ValidationInterceptor(validator),
	}

	services := []server.ConnectService{
		service.NewDatagridService(pool, cache, functions, service.Defaults{
			PerPage:          cfg.DefaultPerPage,
			MaxPerPage:       cfg.MaxPerPage,
			StatementTimeout: cfg.StatementTimeout,
		}, log),
	}

	handler, err := server.NewHandler(services, interceptors...)
	if err != nil {
		return fmt.Errorf("build handler: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.Recovery(log)(middleware.Logging(log)(handler)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Addr()).Msg("listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/txgateway/internal/app"
	"github.com/allisson/txgateway/internal/config"
	settingsUseCase "github.com/allisson/txgateway/internal/settings/usecase"
)

// shutdownTimeout bounds the graceful stop of both servers.
const shutdownTimeout = 30 * time.Second

// RunServer starts the gateway and blocks until SIGINT/SIGTERM or a fatal server error.
// The configuration tree is loaded from the cache before serving and reloaded on SIGHUP.
// The audit queue and, when AUDIT_SINK=database, the outbox worker run for the whole
// life of the process.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	defer closeContainer(container, logger)

	settings, err := container.SettingsUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize settings: %w", err)
	}
	// A gateway without configuration still serves; transactions answer with a
	// configuration error until a reload succeeds.
	if err := settings.Reload(ctx); err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
	}

	queue, err := container.AuditQueue()
	if err != nil {
		return fmt.Errorf("failed to initialize audit queue: %w", err)
	}

	worker, err := container.AuditWorker()
	if err != nil {
		return fmt.Errorf("failed to initialize audit worker: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := container.HTTPServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	queue.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(gctx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	if worker != nil {
		g.Go(func() error {
			if err := worker.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit worker error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		watchReload(gctx, settings, logger)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}

// watchReload swaps in a fresh configuration tree on every SIGHUP until ctx ends.
func watchReload(ctx context.Context, settings settingsUseCase.SettingsUseCase, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			reloadSettings(ctx, settings, logger)
		}
	}
}

func reloadSettings(ctx context.Context, settings settingsUseCase.SettingsUseCase, logger *slog.Logger) {
	if err := settings.Reload(ctx); err != nil {
		logger.Error("failed to reload configuration, keeping previous snapshot", slog.Any("error", err))
		return
	}
	logger.Info("configuration reloaded")
}

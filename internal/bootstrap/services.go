package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lettermill/import-api/config"
	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/data"
	"github.com/lettermill/import-api/internal/observability/statsd"
	"github.com/lettermill/import-api/internal/service"
)

const shutdownWaitTimeout = 10 * time.Second

// ServiceContainer holds the constructed application services.
type ServiceContainer struct {
	Importer      *service.ImporterService
	Pool          *service.WorkerPool
	Supervisor    *service.SupervisorService
	Cache         *core.SnapshotCacheService
	Observability ObservabilityContainer
	// DBHealth probes database connectivity for the readiness endpoint.
	DBHealth func(ctx context.Context) error
}

// ObservabilityContainer groups metrics plumbing shared across services.
type ObservabilityContainer struct {
	MetricsSink statsd.Sink
}

// ServiceDeps contains the external dependencies services are built from.
type ServiceDeps struct {
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Config      *config.AppConfig
	Logger      *slog.Logger
}

func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	sink, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Metrics.IsEnabled(),
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  "lettermill",
		Logger:  logger,
	})
	if err != nil {
		if logger != nil {
			logger.Warn("statsd sink unavailable, metrics disabled", "error", err)
		}
		return ObservabilityContainer{}
	}
	return ObservabilityContainer{MetricsSink: sink}
}

// NewServices builds the full service graph from external dependencies.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observability := buildObservability(logger, deps.Config.Observability)

	repoCfg := data.RepoConfig{Logger: logger}
	registry := data.NewJobRepo(deps.DB, repoCfg)
	destination := data.NewSubscriberRepo(deps.DB, repoCfg)

	var cache *core.SnapshotCacheService
	if deps.RedisClient != nil {
		cache = core.NewSnapshotCacheService(core.SnapshotCacheServiceOptions{
			Cache:  data.NewRedisCacheRepo(deps.RedisClient),
			Config: core.SnapshotCacheConfig{TTL: deps.Config.Cache.SnapshotTTL},
		})
	}

	pool, err := service.NewWorkerPool(service.WorkerPoolOptions{
		Registry:    registry,
		Destination: destination,
		Config:      deps.Config.Importer,
		Logger:      logger,
		Metrics:     observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build worker pool: %w", err)
	}

	importer, err := service.NewImporterService(service.ImporterServiceOptions{
		Registry:    registry,
		Destination: destination,
		Pool:        pool,
		Config:      deps.Config.Importer,
		Cache:       cache,
		Logger:      logger,
		Metrics:     observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build importer service: %w", err)
	}

	supervisor, err := service.NewSupervisorService(service.SupervisorServiceOptions{
		Repo:     registry,
		Registry: registry,
		Config:   deps.Config.Supervisor,
		Logger:   logger,
		Metrics:  observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build supervisor service: %w", err)
	}

	var dbHealth func(ctx context.Context) error
	if deps.DB != nil {
		dbHealth = deps.DB.PingContext
	}

	return ServiceContainer{
		Importer:      importer,
		Pool:          pool,
		Supervisor:    supervisor,
		Cache:         cache,
		Observability: observability,
		DBHealth:      dbHealth,
	}, nil
}

// ServiceOrchestrationConfig bundles everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, len(enabled)+1)

	var httpServer *http.Server
	if enabled[config.ServiceModeHTTP] {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}

	var backgrounds []backgroundServiceHandle
	if enabled[config.ServiceModeSupervisor] {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := cfg.Services.Supervisor.Run(serviceCtx); err != nil {
				select {
				case errCh <- fmt.Errorf("supervisor failed: %w", err):
				case <-serviceCtx.Done():
				}
			}
		}()
		logger.InfoContext(serviceCtx, "background service started", "service", "supervisor")
		backgrounds = append(backgrounds, backgroundServiceHandle{name: "supervisor", done: done})
	}

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  httpServer,
		pool:        cfg.Services.Pool,
		logger:      logger,
		backgrounds: backgrounds,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	pool        *service.WorkerPool
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services. The HTTP server
// stops accepting work first, then in-flight import jobs drain, then the
// supervisor loop is waited out.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	if cfg.pool != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()
		if err := cfg.pool.Shutdown(drainCtx); err != nil {
			// Incomplete jobs stay in processing; the supervisor's stall
			// sweep fails them with recovery info on the next run.
			cfg.logger.Warn("worker pool drain timed out", "error", err)
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}

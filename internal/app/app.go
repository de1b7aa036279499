package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	dbpkg "github.com/yungbote/tenantsearch-backend/internal/data/db"
	"github.com/yungbote/tenantsearch-backend/internal/http"
	"github.com/yungbote/tenantsearch-backend/internal/observability"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
	"github.com/yungbote/tenantsearch-backend/internal/temporalx/temporalworker"
)

const shutdownGrace = 15 * time.Second

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  *Clients
	Services Services
	Metrics  *observability.Metrics
	Router   *gin.Engine

	server    *http.Server
	worker    *temporalworker.Runner
	otelClose func(context.Context) error
	cancel    context.CancelFunc
}

// New connects every configured backend and wires the services. It does not
// start serving; see Start and Run.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelClose := observability.InitTracing(ctx, log, observability.TracingConfig{
		Enabled:     cfg.OTELEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Mode,
		Version:     cfg.Version,
		Endpoint:    cfg.OTELEndpoint,
		Headers:     observability.ParseHeaders(cfg.OTELHeaders),
		Insecure:    cfg.OTELInsecure,
		SampleRatio: cfg.OTELSampleRatio,
	})
	metrics := observability.Init(log)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = otelClose(ctx)
		return nil, err
	}
	if cfg.AutoMigrate {
		log.Info("Running migrations...")
		if err := dbpkg.AutoMigrateAll(clients.Postgres.DB()); err != nil {
			clients.Close()
			_ = otelClose(ctx)
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}

	svc := wireServices(clients.Postgres.DB(), log, cfg, clients, metrics)
	a := &App{
		Log:       log,
		Cfg:       cfg,
		Clients:   clients,
		Services:  svc,
		Metrics:   metrics,
		otelClose: otelClose,
	}
	a.Router = wireRouter(log, cfg, svc, clients, metrics)
	a.server = &http.Server{Engine: a.Router}

	if clients.Temporal != nil {
		w, err := temporalworker.NewRunner(log, clients.Temporal, cfg.Temporal, svc.Analytics, metrics)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.worker = w
	}
	return a, nil
}

// Start launches background work: the Temporal worker and the metrics
// collectors. It returns once they are running.
func (a *App) Start(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Cfg.MetricsEnabled {
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.Clients.Postgres.DB(), a.Cfg.CollectorsPeriod)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis, a.Cfg.CollectorsPeriod)
		}
	}
	if a.worker != nil {
		if err := a.worker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	}
	return nil
}

// Run serves HTTP until ctx is done, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := net.JoinHostPort("", a.Cfg.Port)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", addr)
		return a.server.Run(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.otelClose != nil {
		if err := a.otelClose(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}

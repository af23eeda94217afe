package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dipesh-m12/QVuew-Backend/internal/catalog"
	"github.com/dipesh-m12/QVuew-Backend/internal/clock"
	"github.com/dipesh-m12/QVuew-Backend/internal/config"
	"github.com/dipesh-m12/QVuew-Backend/internal/discovery"
	"github.com/dipesh-m12/QVuew-Backend/internal/discovery/consul"
	"github.com/dipesh-m12/QVuew-Backend/internal/engine"
	"github.com/dipesh-m12/QVuew-Backend/internal/httpapi"
	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/logger"
	"github.com/dipesh-m12/QVuew-Backend/internal/metrics"
	"github.com/dipesh-m12/QVuew-Backend/internal/notifier"
	"github.com/dipesh-m12/QVuew-Backend/internal/store"
	"github.com/dipesh-m12/QVuew-Backend/internal/store/cache"
)

// App owns every long-lived dependency the queue engine process needs,
// grounded on orders/app.go's App struct — widened from gRPC+one store to
// HTTP+store+cache+notifier+discovery.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	registry     discovery.Registry
	registration *registration

	store         store.Store
	cacheLayer    *cache.Cache
	outbox        *notifier.Outbox
	closeAMQP     func() error
	notifySvc     *notifier.Service
	engineMetrics *metrics.EngineMetrics

	httpServer    *http.Server
	metricsServer *http.Server

	cancelNotify context.CancelFunc
}

// registration records what Register returned so Shutdown can cleanly
// deregister.
type registration struct {
	instanceID  string
	serviceName string
}

// NewApp wires every dependency from cfg, connecting to Mongo, Redis, and
// RabbitMQ once at startup (mirrors orders/main.go's connectToMongoDB +
// orders/app.go's NewApp split, collapsed into one constructor since this
// process has more backing services than the teacher's orders service).
func NewApp(cfg config.Config, mongoClient *mongo.Client, log *slog.Logger) (*App, error) {
	mongoStore := store.NewMongo(mongoClient)
	if err := mongoStore.EnsureIndexes(context.Background()); err != nil {
		return nil, err
	}

	cacheLayer, err := cache.New(cfg.RedisAddr, 30*time.Second)
	if err != nil {
		log.Warn("redis unavailable, projection caching disabled", slog.Any("error", err))
		cacheLayer = nil
	}

	outbox, closeAMQP, err := notifier.Connect(cfg.AMQPUser, cfg.AMQPPass, cfg.AMQPHost, cfg.AMQPPort, log)
	if err != nil {
		return nil, err
	}

	expoClient := notifier.NewExpoClient(cfg.NotifierURL)
	engineMetrics := metrics.NewEngineMetrics(cfg.ServiceName)
	notifySvc := notifier.NewService(outbox, expoClient, 10, 20, log, engineMetrics)

	registry, err := createRegistry(cfg.ConsulAddr, log)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:           cfg,
		logger:        log,
		registry:      registry,
		store:         mongoStore,
		cacheLayer:    cacheLayer,
		outbox:        outbox,
		closeAMQP:     closeAMQP,
		notifySvc:     notifySvc,
		engineMetrics: engineMetrics,
	}, nil
}

// Start registers with Consul, begins the Notifier's consumer, and
// serves the HTTP API and Prometheus metrics until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if a.registry != nil {
		instanceID := discovery.GenerateInstanceID(a.cfg.ServiceName)
		if err := a.registry.Register(ctx, instanceID, a.cfg.ServiceName, a.cfg.HTTPAddr); err != nil {
			return err
		}
		a.registration = &registration{instanceID: instanceID, serviceName: a.cfg.ServiceName}
		go a.heartbeat(ctx, instanceID)
	}

	notifyCtx, cancel := context.WithCancel(context.Background())
	a.cancelNotify = cancel
	go func() {
		if err := a.notifySvc.Start(notifyCtx); err != nil {
			a.logger.Error("notifier consumer stopped", slog.Any("error", err))
		}
	}()

	engineCfg := engine.Config{
		UndoWindow:         time.Duration(a.cfg.UndoWindowSeconds) * time.Second,
		RestructureHorizon: time.Duration(a.cfg.RestructureHorizonSeconds) * time.Second,
		MaterialWaitDelta:  a.cfg.MaterialWaitDeltaMinutes,
	}
	identityResolver := identity.NewStatic()
	cat := catalog.NewFromStore(a.store)
	eng := engine.New(a.store, clock.Real{}, a.notifySvc, identityResolver, cat, a.cacheLayer, engineCfg)
	eng.EngineMetrics = a.engineMetrics
	telemetered := engine.WithTelemetry(eng, a.engineMetrics)

	httpMetrics := metrics.NewHTTPMetrics(a.cfg.ServiceName)
	apiHandler := httpapi.NewHandler(telemetered, identityResolver, a.logger, httpMetrics)
	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)
	a.httpServer = &http.Server{Addr: a.cfg.HTTPAddr, Handler: mux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	a.metricsServer = &http.Server{Addr: a.cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		a.logger.Info("starting metrics server", slog.String("addr", a.cfg.MetricsAddr))
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	lis, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return err
	}
	a.logger.Info("starting http server", slog.String("addr", a.cfg.HTTPAddr))
	if err := a.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting new work and releases every backing
// connection, mirroring orders/app.go's ordering: servers first, then
// the message broker, then service discovery last.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down gracefully")

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("error shutting down http server", slog.Any("error", err))
		}
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("error shutting down metrics server", slog.Any("error", err))
		}
	}
	if a.cancelNotify != nil {
		a.cancelNotify()
	}
	if a.closeAMQP != nil {
		if err := a.closeAMQP(); err != nil {
			a.logger.Error("error closing rabbitmq", slog.Any("error", err))
		}
	}
	if a.cacheLayer != nil {
		if err := a.cacheLayer.Close(); err != nil {
			a.logger.Error("error closing redis", slog.Any("error", err))
		}
	}
	if err := a.store.Close(ctx); err != nil {
		a.logger.Error("error closing store", slog.Any("error", err))
	}

	if a.registration != nil && a.registry != nil {
		return a.registry.Deregister(ctx, a.registration.instanceID, a.registration.serviceName)
	}
	return nil
}

// heartbeat keeps the Consul TTL check passing until ctx is cancelled.
func (a *App) heartbeat(ctx context.Context, instanceID string) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.registry.HealthCheck(instanceID, a.cfg.ServiceName); err != nil {
				a.logger.Warn("consul healthcheck failed", slog.Any("error", err))
			}
		}
	}
}

func createRegistry(addr string, log *slog.Logger) (discovery.Registry, error) {
	if addr == "" {
		log.Info("consul address not provided, service discovery disabled")
		return nil, nil
	}
	return consul.NewRegistry(addr)
}

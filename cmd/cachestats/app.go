package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/cachestats/config"
	gatewayhttp "github.com/c360/cachestats/gateway/http"
	"github.com/c360/cachestats/gateway/natsquery"
	"github.com/c360/cachestats/health"
	"github.com/c360/cachestats/management"
	"github.com/c360/cachestats/metric"
	"github.com/c360/cachestats/natsclient"
	"github.com/c360/cachestats/pkg/cache"
	"github.com/c360/cachestats/pkg/retry"
	"github.com/c360/cachestats/pkg/tlsutil"
)

const natsConnectTimeout = 10 * time.Second

// hostedCache is one configured cache and its registration
type hostedCache struct {
	cache        cache.Cache[string, []byte]
	registration *management.Registration
}

// app owns the service's registries, caches and transports
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	metrics  *metric.MetricsRegistry
	registry *management.Registry
	monitor  *health.Monitor
	caches   []hostedCache

	server *gatewayhttp.Server
	nats   *natsclient.Client

	stopEvents func()
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metric.NewMetricsRegistry(),
		registry: management.NewRegistry(management.WithLogger(logger)),
		monitor:  health.NewMonitor(),
	}

	if err := a.metrics.RegisterCollector("management", "registry", management.NewCollector(a.registry)); err != nil {
		return nil, fmt.Errorf("register management collector: %w", err)
	}

	if err := a.buildCaches(); err != nil {
		a.closeCaches()
		return nil, err
	}

	a.monitor.Register("registry", func() health.Status {
		n := a.registry.Len()
		return health.NewHealthy("registry", fmt.Sprintf("%d caches registered", n)).
			WithMetrics(&health.Metrics{Registrations: n})
	})

	if cfg.Metrics.Enabled {
		tlsConfig, err := tlsutil.LoadServerConfig(cfg.Metrics.TLS)
		if err != nil {
			a.closeCaches()
			return nil, fmt.Errorf("load TLS config: %w", err)
		}

		server, err := gatewayhttp.NewServer(gatewayhttp.Config{
			Port:           cfg.Metrics.Port,
			MetricsPath:    cfg.Metrics.Path,
			StreamInterval: cfg.Metrics.StreamInterval.Std(),
			TLS:            tlsConfig,
		}, a.registry, a.metrics, a.monitor, logger)
		if err != nil {
			a.closeCaches()
			return nil, fmt.Errorf("create HTTP server: %w", err)
		}
		a.server = server
	}

	if cfg.NATS.Enabled {
		opts := append(natsOptions(cfg.NATS),
			natsclient.WithLogger(logger),
			natsclient.WithMetrics(a.metrics),
			natsclient.WithHealthChangeCallback(func(healthy bool) {
				if healthy {
					a.monitor.UpdateHealthy("nats", "connected")
				} else {
					a.monitor.UpdateUnhealthy("nats", "connection lost")
				}
			}))
		client, err := natsclient.NewClient(cfg.NATS.URL, opts...)
		if err != nil {
			a.closeCaches()
			return nil, fmt.Errorf("create NATS client: %w", err)
		}
		a.nats = client
		a.monitor.Register("nats", func() health.Status {
			if client.IsHealthy() {
				return health.NewHealthy("nats", "connected")
			}
			return health.NewUnhealthy("nats", client.Status().String())
		})
	}

	return a, nil
}

// natsOptions maps the nats config section onto client options
func natsOptions(cfg config.NATSConfig) []natsclient.ClientOption {
	return []natsclient.ClientOption{
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(cfg.MaxReconnects),
		natsclient.WithReconnectWait(cfg.ReconnectWait.Std()),
		natsclient.WithTimeout(cfg.ConnectTimeout.Std()),
		natsclient.WithPingInterval(cfg.PingInterval.Std()),
		natsclient.WithDrainTimeout(cfg.DrainTimeout.Std()),
		natsclient.WithHandlerTimeout(cfg.RequestTimeout.Std()),
		natsclient.WithCircuitBreaker(cfg.CircuitThreshold, cfg.MaxBackoff.Std()),
	}
}

// buildCaches creates every configured cache and registers it under its key
func (a *app) buildCaches() error {
	for _, cc := range a.cfg.Caches {
		c, err := cache.NewFromConfig[string, []byte](cc.Config,
			cache.WithMetrics[string, []byte](a.metrics, cc.Key()))
		if err != nil {
			return fmt.Errorf("create cache %s: %w", cc.Key(), err)
		}

		registration, err := a.registry.Register(c, cc.Namespace, cc.Name)
		if err != nil {
			_ = c.Close()
			return fmt.Errorf("register cache %s: %w", cc.Key(), err)
		}

		a.caches = append(a.caches, hostedCache{cache: c, registration: registration})
		a.logger.Debug("Cache ready",
			"key", cc.Key(),
			"capacity", cc.Capacity,
			"eviction", cc.Eviction)
	}
	return nil
}

// start brings up the HTTP server and, when enabled, the NATS responder
func (a *app) start(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Start(); err != nil {
			return err
		}
	}

	if a.nats == nil {
		return nil
	}

	// The server may still be starting alongside us
	if err := retry.Do(ctx, retry.Startup(), func() error {
		return a.nats.Connect(ctx)
	}); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, natsConnectTimeout)
	defer cancel()
	if err := a.nats.WaitForConnection(connCtx); err != nil {
		return fmt.Errorf("NATS connection timeout: %w", err)
	}

	responder, err := natsquery.NewResponder(natsquery.Config{
		SubjectPrefix: a.cfg.NATS.SubjectPrefix,
		Queue:         a.cfg.NATS.Queue,
	}, a.nats, a.registry, a.metrics, a.logger)
	if err != nil {
		return err
	}
	if err := responder.Start(ctx); err != nil {
		return err
	}

	if a.cfg.NATS.PublishEvents {
		publisher := natsquery.NewEventPublisher(a.nats, a.cfg.NATS.SubjectPrefix, a.logger)
		a.stopEvents = publisher.Attach(a.registry)
		a.logger.Info("Publishing registry events",
			"subject", natsquery.EventsSubject(a.cfg.NATS.SubjectPrefix))
	}
	return nil
}

// stop shuts the transports down, unregisters every cache and closes the stores
func (a *app) stop(ctx context.Context) error {
	var errs []error

	if a.server != nil {
		if err := a.server.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop HTTP server: %w", err))
		}
	}

	// Unregister while NATS is still up so watchers see the removals
	removed := a.registry.UnregisterAll()
	a.logger.Info("Unregistered caches", "count", removed)

	if a.stopEvents != nil {
		a.stopEvents()
		a.stopEvents = nil
	}
	if a.nats != nil {
		if err := a.nats.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close NATS client: %w", err))
		}
	}

	errs = append(errs, a.closeCaches()...)
	return stderrors.Join(errs...)
}

func (a *app) closeCaches() []error {
	var errs []error
	for _, hc := range a.caches {
		hc.registration.Unregister()
		if err := hc.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache %s: %w", hc.registration.Key(), err))
		}
	}
	a.caches = nil
	return errs
}

// Package http serves the cachestats monitoring surface: Prometheus metrics,
// aggregated health, attribute queries and websocket attribute streams.
package http

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/cachestats/errors"
	"github.com/c360/cachestats/gateway"
	"github.com/c360/cachestats/health"
	"github.com/c360/cachestats/management"
	"github.com/c360/cachestats/metric"
)

const (
	defaultPort           = 9090
	defaultMetricsPath    = "/metrics"
	defaultStreamInterval = time.Second
	systemName            = "cachestats"
)

// Config controls the listener and routes of a Server
type Config struct {
	Port           int           // 0 picks a free port
	MetricsPath    string        // defaults to /metrics
	APIPrefix      string        // prefix for attribute and stream routes, defaults to /
	StreamInterval time.Duration // delay between stream frames
	TLS            *tls.Config   // serves HTTPS when set
}

// Server represents the monitoring HTTP server
type Server struct {
	config   Config
	registry *management.Registry
	metrics  *metric.MetricsRegistry
	core     *metric.Metrics
	monitor  *health.Monitor
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex // protects server, listener, closing done and streams.Add
	server   *http.Server
	listener net.Listener

	done     chan struct{}
	stopOnce sync.Once
	streams  sync.WaitGroup
}

// trackStream counts a stream that is about to be hijacked, or reports false once
// Stop has begun so no Add races the final Wait
func (s *Server) trackStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return false
	default:
	}
	s.streams.Add(1)
	return true
}

// NewServer creates a monitoring server over the management registry.
// A nil monitor gets an empty one and a nil logger falls back to slog.Default.
func NewServer(
	config Config,
	registry *management.Registry,
	metrics *metric.MetricsRegistry,
	monitor *health.Monitor,
	logger *slog.Logger,
) (*Server, error) {
	if registry == nil {
		return nil, errors.WrapFatal(fmt.Errorf("nil registry"),
			"Server", "NewServer", "management registry not provided")
	}
	if metrics == nil {
		return nil, errors.WrapFatal(fmt.Errorf("nil metrics registry"),
			"Server", "NewServer", "metrics registry not provided")
	}
	if config.MetricsPath == "" {
		config.MetricsPath = defaultMetricsPath
	}
	if config.StreamInterval <= 0 {
		config.StreamInterval = defaultStreamInterval
	}
	if config.Port < 0 {
		config.Port = defaultPort
	}
	if monitor == nil {
		monitor = health.NewMonitor()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:   config,
		registry: registry,
		metrics:  metrics,
		core:     metrics.CoreMetrics(),
		monitor:  monitor,
		logger:   logger.With("component", "http-server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		done: make(chan struct{}),
	}, nil
}

// Handler builds the route table served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET "+s.config.MetricsPath, promhttp.HandlerFor(
		s.metrics.PrometheusRegistry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	s.RegisterHTTPHandlers(s.config.APIPrefix, mux)
	return mux
}

// RegisterHTTPHandlers mounts the attribute and stream routes under prefix
func (s *Server) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	prefix = gateway.NormalizePrefix(prefix)

	mux.HandleFunc("GET "+prefix+"attributes", s.handleKeys)
	mux.HandleFunc("GET "+prefix+"attributes/{namespace}/{name}", s.handleQuery)
	mux.HandleFunc("GET "+prefix+"attributes/{namespace}/{name}/{attribute}", s.handleQuery)
	mux.HandleFunc("GET "+prefix+"stream/{namespace}/{name}", s.handleStream)
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.WrapInvalid(
			fmt.Errorf("server already running"),
			"Server", "Start", "cannot start server that is already running")
	}

	select {
	case <-s.done:
		return errors.WrapInvalid(
			fmt.Errorf("server stopped"),
			"Server", "Start", "cannot restart a stopped server")
	default:
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return errors.WrapFatal(err, "Server", "Start",
			fmt.Sprintf("failed to listen on port %d", s.config.Port))
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.config.TLS,
	}
	s.server = server
	s.listener = listener

	go func() {
		var err error
		if server.TLSConfig != nil {
			err = server.ServeTLS(listener, "", "")
		} else {
			err = server.Serve(listener)
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped unexpectedly", "error", err)
		}
	}()

	s.logger.Info("HTTP server listening",
		"addr", listener.Addr().String(),
		"tls", server.TLSConfig != nil,
		"metrics_path", s.config.MetricsPath)
	return nil
}

// Addr returns the bound listener address, or "" before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes open streams and shuts the listener down, waiting for in-flight
// requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopOnce.Do(func() { close(s.done) })
	server := s.server
	s.server = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	var shutdownErr error
	if err := server.Shutdown(ctx); err != nil {
		shutdownErr = errors.WrapTransient(err, "Server", "Stop",
			"failed to stop HTTP server")
	}

	// Hijacked websocket connections are not tracked by Shutdown
	drained := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		if shutdownErr == nil {
			shutdownErr = errors.WrapTransient(ctx.Err(), "Server", "Stop",
				"streams still open at deadline")
		}
	}

	return shutdownErr
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<html>
<head><title>cachestats</title></head>
<body>
<h1>cachestats</h1>
<p><a href="%s">Metrics</a></p>
<p><a href="/health">Health</a></p>
<p><a href="%sattributes">Registered caches</a></p>
</body>
</html>`, s.config.MetricsPath, gateway.NormalizePrefix(s.config.APIPrefix))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := s.monitor.Check(systemName)
	for _, sub := range status.SubStatuses {
		s.core.RecordHealthStatus(sub.Component, sub.IsHealthy())
	}

	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, status)
}

type keysResponse struct {
	Count int              `json:"count"`
	Keys  []management.Key `json:"keys"`
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("X-Request-ID", getOrGenerateRequestID(r))

	keys := s.registry.Keys()
	s.writeJSON(w, http.StatusOK, keysResponse{Count: len(keys), Keys: keys})
	s.core.RecordQuery(gateway.TransportHTTP, gateway.Outcome(""), time.Since(start))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getOrGenerateRequestID(r)
	w.Header().Set("X-Request-ID", requestID)

	resp := s.registry.Query(management.QueryRequest{
		Namespace: r.PathValue("namespace"),
		Name:      r.PathValue("name"),
		Attribute: r.PathValue("attribute"),
	})
	if !resp.OK() {
		s.logger.Debug("Attribute query failed",
			"request_id", requestID,
			"key", resp.Key.String(),
			"attribute", resp.Attribute,
			"code", resp.Code)
	}

	s.writeJSON(w, gateway.StatusForCode(resp.Code), resp)
	s.core.RecordQuery(gateway.TransportHTTP, gateway.Outcome(resp.Code), time.Since(start))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("Failed to encode response", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("Failed to write response", "error", err)
	}
}

// getOrGenerateRequestID extracts the request ID header or mints a new one
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}
	return uuid.NewString()
}

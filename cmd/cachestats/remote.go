package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	"github.com/c360/cachestats/config"
	"github.com/c360/cachestats/gateway/natsquery"
	"github.com/c360/cachestats/management"
	"github.com/c360/cachestats/natsclient"
	"github.com/c360/cachestats/pkg/retry"
)

// parseQueryTarget splits namespace/name[/attribute]
func parseQueryTarget(target string) (management.QueryRequest, error) {
	parts := strings.Split(target, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return management.QueryRequest{}, fmt.Errorf("invalid query %q: want namespace/name[/attribute]", target)
	}
	// Segments are path-escaped so URI namespaces can carry '/' as %2F
	for i, part := range parts {
		unescaped, err := url.PathUnescape(part)
		if err != nil {
			return management.QueryRequest{}, fmt.Errorf("invalid query %q: %w", target, err)
		}
		if strings.TrimSpace(unescaped) == "" {
			return management.QueryRequest{}, fmt.Errorf("invalid query %q: empty segment", target)
		}
		parts[i] = unescaped
	}

	req := management.QueryRequest{Namespace: parts[0], Name: parts[1]}
	if len(parts) == 3 {
		req.Attribute = parts[2]
	}
	return req, nil
}

// dialNATS connects a short-lived client that does not reconnect
func dialNATS(ctx context.Context, cfg *config.Config, role string, logger *slog.Logger) (*natsclient.Client, error) {
	opts := append(natsOptions(cfg.NATS),
		natsclient.WithLogger(logger),
		natsclient.WithName(appName+"-"+role),
		natsclient.WithMaxReconnects(0))
	client, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, cfg.NATS.ConnectTimeout.Std())
	defer cancel()

	if err := client.Connect(connCtx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	if err := client.WaitForConnection(connCtx); err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}
	return client, nil
}

// runQuery asks a running instance over NATS and prints the response
func runQuery(ctx context.Context, cfg *config.Config, target string, logger *slog.Logger) error {
	req, err := parseQueryTarget(target)
	if err != nil {
		return err
	}

	client, err := dialNATS(ctx, cfg, "query", logger)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	queryCtx, cancel := context.WithTimeout(ctx, cfg.NATS.RequestTimeout.Std())
	defer cancel()

	// A responder that is still subscribing answers "no responders"
	resp, err := retry.DoWithResult(queryCtx, retry.DefaultConfig(), func() (management.QueryResponse, error) {
		return natsquery.Query(queryCtx, client, cfg.NATS.SubjectPrefix, req)
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Println(string(out))

	if !resp.OK() {
		return fmt.Errorf("query %s: %s", target, resp.Code)
	}
	return nil
}

// runWatch prints registry events as JSON lines until SIGINT or SIGTERM
func runWatch(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := dialNATS(signalCtx, cfg, "watch", logger)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	if err := natsquery.WatchEvents(signalCtx, client, cfg.NATS.SubjectPrefix, printEvents(out, logger)); err != nil {
		return err
	}
	logger.Info("Watching registry events", "subject", natsquery.EventsSubject(cfg.NATS.SubjectPrefix))

	<-signalCtx.Done()
	return nil
}

// printEvents writes each event as one JSON line
func printEvents(out io.Writer, logger *slog.Logger) func(management.Event) {
	enc := json.NewEncoder(out)
	return func(e management.Event) {
		if err := enc.Encode(e); err != nil {
			logger.Warn("Failed to print registry event", "error", err)
		}
	}
}

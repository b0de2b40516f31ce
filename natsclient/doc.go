// Package natsclient manages a NATS connection for cachestats with a circuit
// breaker around connection attempts.
//
// After a threshold of consecutive connection failures the circuit opens and
// Connect returns ErrCircuitOpen until the backoff elapses; the backoff doubles
// per round up to a maximum. Reconnects handled by nats.go reset the circuit.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithLogger(logger),
//	    natsclient.WithMetrics(registry),
//	)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	err = client.Reply(ctx, "cachestats.attr", "cachestats", func(ctx context.Context, req []byte) []byte {
//	    return answer(req)
//	})
//
// Publish and Subscribe carry fire-and-forget traffic such as registry events.
// A subscription lives until its context ends or the client closes.
//
// TestClient starts a NATS server with testcontainers for integration tests,
// which run under the "integration" build tag.
package natsclient

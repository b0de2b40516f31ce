package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testNATSImage = "nats:2.11.7-alpine"

// TestClient is a connected Client backed by a throwaway NATS container
type TestClient struct {
	Client *Client
	URL    string
}

// NewTestClient starts a NATS container, connects a Client to it and registers
// cleanup of both with t. Extra options are applied after the test defaults.
func NewTestClient(t testing.TB, opts ...ClientOption) *TestClient {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testNATSImage,
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			Cmd:          []string{"--port", "4222", "--http_port", "8222"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4222/tcp"),
				wait.ForHTTP("/healthz").WithPort("8222/tcp").WithStartupTimeout(30*time.Second),
			),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start NATS container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := containerURL(ctx, container)
	if err != nil {
		t.Fatalf("resolve NATS address: %v", err)
	}

	client, err := NewClient(url, append([]ClientOption{
		WithName("cachestats-test"),
		WithTimeout(5 * time.Second),
		WithMaxReconnects(0),
	}, opts...)...)
	if err != nil {
		t.Fatalf("create NATS client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		t.Fatalf("connect to NATS: %v", err)
	}
	if err := client.WaitForConnection(connectCtx); err != nil {
		t.Fatalf("NATS connection not ready: %v", err)
	}

	return &TestClient{Client: client, URL: url}
}

func containerURL(ctx context.Context, container testcontainers.Container) (string, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("nats://%s:%s", host, port.Port()), nil
}

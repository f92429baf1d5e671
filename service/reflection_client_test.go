package service

import (
	"context"
	"net"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/test/bufconn"
)

func startReflectingServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	reflection.Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestReflectionClient_ListServices_ExcludesReflectionAndHealth(t *testing.T) {
	conn := startReflectingServer(t)
	client := NewReflectionClient(conn, log.NewNopLogger())

	names, err := client.ListServices(context.Background())
	require.NoError(t, err)
	for _, n := range names {
		assert.NotContains(t, n, "ServerReflection")
		assert.NotEqual(t, "grpc.health.v1.Health", n)
	}
}

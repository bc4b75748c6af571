package health

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func setupServer(t *testing.T) (*Server, healthpb.HealthClient) {
	lis := bufconn.Listen(1 << 20)
	srv := NewServer("storefront-checkout")
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.GracefulStop()
	})
	return srv, healthpb.NewHealthClient(conn)
}

func TestHealth_NotServingUntilReady(t *testing.T) {
	_, client := setupServer(t)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "storefront-checkout"})

	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestHealth_Serving(t *testing.T) {
	srv, client := setupServer(t)
	srv.SetServing(true)

	for _, name := range []string{"", "storefront-checkout"} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: name})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
	}
}

func TestHealth_UnknownService(t *testing.T) {
	_, client := setupServer(t)

	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "payments"})

	assert.Equal(t, codes.NotFound, status.Code(err))
}

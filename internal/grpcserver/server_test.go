package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"novel-forge/backend/pkg/health"
	"novel-forge/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthFollowsChecker(t *testing.T) {
	dbUp := true
	checker := health.NewChecker(logger.Discard(), time.Minute)
	checker.RegisterDatabaseCheck(func(context.Context) error {
		if dbUp {
			return nil
		}
		return errors.New("connection refused")
	})
	checker.RunChecks(context.Background())

	srv := New(checker, logger.Discard())
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ChatService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	dbUp = false
	checker.RunChecks(context.Background())
	srv.Sync()

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

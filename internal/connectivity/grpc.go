package connectivity

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealthChecker asks a gRPC health endpoint (usually the backend
// gateway) whether Service is SERVING.
type GRPCHealthChecker struct {
	conn    *grpc.ClientConn
	client  healthpb.HealthClient
	service string
	timeout time.Duration
}

// NewGRPCHealthChecker dials target lazily; no connection is made until the
// first check.
func NewGRPCHealthChecker(target, service string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCHealthChecker, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("health client for %s: %w", target, err)
	}
	return &GRPCHealthChecker{
		conn:    conn,
		client:  healthpb.NewHealthClient(conn),
		service: service,
		timeout: timeout,
	}, nil
}

func (c *GRPCHealthChecker) Online(ctx context.Context) bool {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: c.service})
	if err != nil {
		return false
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

func (c *GRPCHealthChecker) Close() error {
	return c.conn.Close()
}

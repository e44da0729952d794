package health

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported alongside the overall status
const ServiceName = "conversation.webhook"

// GRPCServer exposes the checker through the standard gRPC health protocol
type GRPCServer struct {
	server *grpc.Server
	health *grpchealth.Server
}

// NewGRPCServer creates a gRPC server whose serving status follows the checker
func NewGRPCServer(checker *Checker) *GRPCServer {
	hs := grpchealth.NewServer()
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	g := &GRPCServer{server: server, health: hs}
	g.SetServing(checker.IsSystemHealthy())
	checker.OnUpdate(g.SetServing)
	return g
}

// SetServing updates the status reported for the overall server and ServiceName
func (g *GRPCServer) SetServing(healthy bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if healthy {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// Check answers a health request in-process
func (g *GRPCServer) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := g.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve listens on addr and blocks until the server stops
func (g *GRPCServer) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return g.server.Serve(lis)
}

// Stop marks every service as not serving and stops the server gracefully
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}

package app

import (
	"fmt"
	"net"

	"github.com/golang/glog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "qbroker"

// HealthServer exposes the standard gRPC health service. It starts out
// NOT_SERVING; PubSub.Run flips it once recovery is done.
type HealthServer struct {
	lis    net.Listener
	srv    *grpc.Server
	Status *health.Server
}

// ListenHealth binds addr, e.g. ":50051", and registers the health service.
func ListenHealth(addr string) (*HealthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &HealthServer{lis: lis, srv: srv, Status: hs}, nil
}

// Addr returns the bound address.
func (h *HealthServer) Addr() string { return h.lis.Addr().String() }

// Serve blocks until Stop is called.
func (h *HealthServer) Serve() error {
	glog.Infof("[Health] serving on %s", h.Addr())
	return h.srv.Serve(h.lis)
}

func (h *HealthServer) Stop() {
	h.Status.Shutdown()
	h.srv.Stop()
}

func (h *HealthServer) set(status healthpb.HealthCheckResponse_ServingStatus) {
	if h == nil {
		return
	}
	h.Status.SetServingStatus("", status)
	h.Status.SetServingStatus(ServiceName, status)
}

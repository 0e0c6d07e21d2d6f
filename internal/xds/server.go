// Package xds implements the Aggregated Discovery Service (ADS) gRPC
// endpoint: a hand-rolled state-of-the-world stream handler with explicit
// per-connection version/nonce tracking, rather than go-control-plane's
// snapshot cache. The control plane's notion of "what Envoy should see" is
// the Store plus the Materializer, not a precomputed snapshot tree.
package xds

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	discoverygrpc "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	"github.com/envoyproxy/go-control-plane/pkg/resource/v3"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/envoyage/envoyage/internal/breaker"
	"github.com/envoyage/envoyage/internal/broadcast"
	"github.com/envoyage/envoyage/internal/materializer"
	"github.com/envoyage/envoyage/internal/version"
)

// typeURLOrder fixes the iteration order used when a broadcast push must
// emit one response per type in types_seen, so streams watching the same
// set of types see responses in a stable order.
var typeURLOrder = []string{resource.ClusterType, resource.RouteType, resource.ListenerType}

func isSupportedTypeURL(typeURL string) bool {
	switch typeURL {
	case resource.ClusterType, resource.RouteType, resource.ListenerType:
		return true
	default:
		return false
	}
}

// Server implements envoy.service.discovery.v3.AggregatedDiscoveryService.
// Only the SotW StreamAggregatedResources RPC is implemented; Delta is
// unsupported (embedding Unimplemented satisfies the rest of the interface).
type Server struct {
	discoverygrpc.UnimplementedAggregatedDiscoveryServiceServer

	mat     *materializer.Materializer
	tracker *version.Tracker
	bcast   *broadcast.Broadcaster
	cb      *breaker.Breaker
	metrics *Metrics
	log     *slog.Logger

	connections counter
}

// NewServer constructs the ADS server over the given collaborators. metrics
// may be nil, in which case instrumentation is a no-op.
func NewServer(mat *materializer.Materializer, tracker *version.Tracker, bcast *broadcast.Broadcaster, cb *breaker.Breaker, metrics *Metrics, log *slog.Logger) *Server {
	return &Server{
		mat:     mat,
		tracker: tracker,
		bcast:   bcast,
		cb:      cb,
		metrics: metrics,
		log:     log,
	}
}

// Serve listens on addr and blocks, serving ADS until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	discoverygrpc.RegisterAggregatedDiscoveryServiceServer(grpcServer, s)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.log.Info("xDS server listening", "addr", addr)

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down xDS server")
		grpcServer.GracefulStop()
	}()

	return grpcServer.Serve(lis)
}

// counter hands out a distinct id per accepted connection, for log
// correlation. Zero value is ready to use. Safe for concurrent use since
// gRPC invokes StreamAggregatedResources from one goroutine per connection.
type counter struct {
	n atomic.Uint64
}

func (c *counter) next() uint64 {
	return c.n.Add(1)
}

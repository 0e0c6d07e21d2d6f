package xds

import (
	"context"
	"io"

	discoverygrpc "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// adsStream is the minimal surface StreamAggregatedResources needs from the
// generated grpc.ServerStream, narrowed so tests can substitute a fake
// without implementing the full generated interface.
type adsStream interface {
	Context() context.Context
	Send(*discoverygrpc.DiscoveryResponse) error
	Recv() (*discoverygrpc.DiscoveryRequest, error)
}

// connState is the per-stream bookkeeping the ADS handler needs to classify
// requests and decide when a broadcast tick owes this stream a response.
type connState struct {
	typesSeen       map[string]bool
	lastVersionSent uint64
	awaitingAck     map[string]string // type_url -> last nonce issued
}

func newConnState() *connState {
	return &connState{
		typesSeen:   make(map[string]bool),
		awaitingAck: make(map[string]string),
	}
}

// StreamAggregatedResources is the single bidirectional streaming RPC of
// the ADS protocol. One call of this method handles one Envoy connection
// for its entire lifetime.
func (s *Server) StreamAggregatedResources(stream discoverygrpc.AggregatedDiscoveryService_StreamAggregatedResourcesServer) error {
	return s.stream(stream)
}

// stream runs the state machine over the narrowed adsStream interface.
func (s *Server) stream(stream adsStream) error {
	log := s.log.With("connection", s.connections.next())
	ctx := stream.Context()

	sub, unsubscribe := s.bcast.Subscribe()
	defer unsubscribe()

	reqCh := make(chan *discoverygrpc.DiscoveryRequest)
	recvErrCh := make(chan error, 1)
	go func() {
		for {
			req, err := stream.Recv()
			if err != nil {
				recvErrCh <- err
				return
			}
			select {
			case reqCh <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	st := newConnState()
	log.Info("stream opened")
	s.metrics.streamOpened()
	defer s.metrics.streamClosed()

	for {
		select {
		case <-ctx.Done():
			log.Info("stream terminated", "reason", classifyTermination(ctx.Err()))
			return ctx.Err()

		case err := <-recvErrCh:
			if err == io.EOF {
				log.Info("stream closed by client")
				return nil
			}
			log.Info("stream terminated", "reason", classifyTermination(err))
			return err

		case req := <-reqCh:
			if err := s.handleRequest(stream, st, log, req); err != nil {
				return err
			}

		case <-sub:
			if err := s.handleBroadcast(stream, st, log); err != nil {
				return err
			}
		}
	}
}

// handleRequest classifies one inbound DiscoveryRequest and responds where
// the protocol calls for it. ACKs and stale ACK/NACKs produce no response;
// NACKs are logged only; initial requests and unsupported type URLs always
// produce a response.
func (s *Server) handleRequest(stream adsStream, st *connState, log logger, req *discoverygrpc.DiscoveryRequest) error {
	typeURL := req.GetTypeUrl()
	s.metrics.observeRequest(typeURL)

	if !isSupportedTypeURL(typeURL) {
		return s.sendRejection(stream, typeURL, "unsupported type_url")
	}

	st.typesSeen[typeURL] = true

	nonce := req.GetResponseNonce()
	switch {
	case nonce == "":
		// Initial request for this type: demand-driven first response.
		return s.respond(stream, st, log, typeURL)

	case nonce == st.awaitingAck[typeURL]:
		if req.GetErrorDetail() != nil {
			s.metrics.observeNack(typeURL)
			log.Warn("received NACK", "type_url", typeURL,
				"code", req.GetErrorDetail().GetCode(), "message", req.GetErrorDetail().GetMessage())
			return nil
		}
		// ACK: client accepted the previous push. No action required; the
		// next push for this type happens on the next store mutation.
		return nil

	default:
		// Stale ACK/NACK: nonce doesn't match the last one issued.
		log.Debug("ignoring stale ack/nack", "type_url", typeURL, "nonce", nonce)
		return nil
	}
}

// handleBroadcast reacts to a "something changed" notification: if this
// stream is behind the current version and has at least one type of
// interest, it emits one response per seen type.
func (s *Server) handleBroadcast(stream adsStream, st *connState, log logger) error {
	current := s.tracker.CurrentVersion()
	if st.lastVersionSent >= current || len(st.typesSeen) == 0 {
		return nil
	}
	for _, typeURL := range typeURLOrder {
		if !st.typesSeen[typeURL] {
			continue
		}
		if err := s.respond(stream, st, log, typeURL); err != nil {
			return err
		}
	}
	return nil
}

// respond materializes typeURL and sends a DiscoveryResponse, consulting
// the circuit breaker first.
func (s *Server) respond(stream adsStream, st *connState, log logger, typeURL string) error {
	if s.cb.IsOpen() {
		s.metrics.observeBreakerOpen()
		log.Warn("circuit breaker open, refusing materialization", "type_url", typeURL)
		return status.Error(codes.Unavailable, "control plane temporarily unavailable")
	}

	resources, err := s.mat.GetResourcesByType(typeURL)
	if err != nil {
		s.cb.RecordFailure()
		log.Error("materialization failed", "type_url", typeURL, "error", err)
		return status.Errorf(codes.Internal, "materializing %s: %v", typeURL, err)
	}
	s.cb.RecordSuccess()

	version := s.tracker.CurrentVersionString()
	nonce := s.tracker.NextNonce()

	resp := &discoverygrpc.DiscoveryResponse{
		VersionInfo: version,
		Resources:   resources,
		TypeUrl:     typeURL,
		Nonce:       nonce,
		Canary:      false,
	}
	if err := stream.Send(resp); err != nil {
		return err
	}

	st.awaitingAck[typeURL] = nonce
	st.lastVersionSent = s.tracker.CurrentVersion()
	s.metrics.observeResponse(typeURL)
	log.Debug("sent discovery response", "type_url", typeURL, "version_info", version, "nonce", nonce, "resources", len(resources))
	return nil
}

// sendRejection answers a malformed or unrecognized request in-band: empty
// version_info signals the client to discard per the xDS protocol.
func (s *Server) sendRejection(stream adsStream, typeURL, reason string) error {
	resp := &discoverygrpc.DiscoveryResponse{
		VersionInfo: "",
		Resources:   nil,
		TypeUrl:     typeURL,
		Nonce:       s.tracker.NextNonce(),
		Canary:      false,
		ErrorDetail: &rpcstatus.Status{
			Code:    int32(codes.InvalidArgument),
			Message: reason + ": " + typeURL,
		},
	}
	return stream.Send(resp)
}

// classifyTermination maps a stream-ending error to the coarse categories
// the handler distinguishes for logging: deadline-exceeded, cancelled,
// unavailable, resource-exhausted, or other.
func classifyTermination(err error) string {
	if err == nil || err == context.Canceled {
		return "cancelled"
	}
	if err == context.DeadlineExceeded {
		return "deadline-exceeded"
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Canceled:
			return "cancelled"
		case codes.DeadlineExceeded:
			return "deadline-exceeded"
		case codes.Unavailable:
			return "unavailable"
		case codes.ResourceExhausted:
			return "resource-exhausted"
		}
	}
	return "other"
}

// logger is the minimal structured-logging surface stream.go depends on,
// satisfied by *slog.Logger.
type logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

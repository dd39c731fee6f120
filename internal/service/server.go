package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/guard"
	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/logging"
)

// #region server
// Server exposes a Guard over gRPC.
type Server struct {
	guard *guard.Guard
	grpc  *grpc.Server
}

// NewServer builds a gRPC server with EnvelopeService registered.
func NewServer(g *guard.Guard, opts ...grpc.ServerOption) *Server {
	s := &Server{guard: g, grpc: grpc.NewServer(opts...)}
	RegisterEnvelopeServiceServer(s.grpc, s)
	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	logging.Info("service", "listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop drains in-flight calls and stops the server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

// Clip implements EnvelopeServiceServer.
func (s *Server) Clip(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	proposed, state, err := DecodeClipRequest(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if s.guard.Active() == nil {
		return nil, status.Error(codes.FailedPrecondition, guard.ErrNoProfile.Error())
	}
	return EncodeOutcome(s.guard.Clip(proposed, state)), nil
}

// ActiveBounds implements EnvelopeServiceServer.
func (s *Server) ActiveBounds(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	a := s.guard.Active()
	if a == nil {
		return nil, status.Error(codes.FailedPrecondition, guard.ErrNoProfile.Error())
	}
	return EncodeProfile(a), nil
}

// #endregion server

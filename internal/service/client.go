package service

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/danielpatrickdp/safety-envelope/go-controller/internal/safety"
)

// #region client-struct
// Client calls a remote envelope service.
type Client struct {
	conn   *grpc.ClientConn
	client EnvelopeServiceClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to the envelope gRPC server at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, client: NewEnvelopeServiceClient(conn)}, nil
}

// NewClientWithService wraps an existing stub. Used by tests.
func NewClientWithService(svc EnvelopeServiceClient) *Client {
	return &Client{client: svc}
}

// Close shuts down the connection if the client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region calls
// Clip sends one proposed action through the remote envelope.
func (c *Client) Clip(ctx context.Context, proposed safety.Action, state safety.ContextState) (RemoteResult, error) {
	resp, err := c.client.Clip(ctx, EncodeClipRequest(proposed, state))
	if err != nil {
		return RemoteResult{}, fmt.Errorf("clip rpc: %w", err)
	}
	out, err := DecodeOutcome(resp)
	if err != nil {
		return RemoteResult{}, fmt.Errorf("decode clip response: %w", err)
	}
	return out, nil
}

// ActiveBounds fetches the profile the remote guard is enforcing.
func (c *Client) ActiveBounds(ctx context.Context) (RemoteProfile, error) {
	resp, err := c.client.ActiveBounds(ctx, &emptypb.Empty{})
	if err != nil {
		return RemoteProfile{}, fmt.Errorf("active bounds rpc: %w", err)
	}
	out, err := DecodeProfile(resp)
	if err != nil {
		return RemoteProfile{}, fmt.Errorf("decode active bounds: %w", err)
	}
	return out, nil
}

// #endregion calls

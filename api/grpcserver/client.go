package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"tradebook/api/wire"
)

// Client calls a remote Matching service.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial opens a plaintext connection to addr.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	return grpc.NewClient(addr, opts...)
}

func (c *Client) Submit(ctx context.Context, in *wire.SubmitRequest, opts ...grpc.CallOption) (*wire.SubmitResponse, error) {
	out := new(wire.SubmitResponse)
	if err := c.conn.Invoke(ctx, submitMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Depth(ctx context.Context, in *wire.DepthRequest, opts ...grpc.CallOption) (*wire.DepthResponse, error) {
	out := new(wire.DepthResponse)
	if err := c.conn.Invoke(ctx, depthMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LastTrade(ctx context.Context, in *wire.LastTradeRequest, opts ...grpc.CallOption) (*wire.LastTradeResponse, error) {
	out := new(wire.LastTradeResponse)
	if err := c.conn.Invoke(ctx, lastTradeMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.ForceCodec(wire.Codec{})}, opts...)
}

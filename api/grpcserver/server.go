package grpcserver

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradebook/api/wire"
	"tradebook/domain/orderbook"
	"tradebook/service"
)

// Server adapts OrderService to gRPC.
type Server struct {
	svc *service.OrderService
}

func NewServer(svc *service.OrderService) *Server {
	return &Server{svc: svc}
}

// NewServerOptions returns the options a grpc.Server hosting Server needs:
// the wire codec and a logging interceptor.
func NewServerOptions(log logrus.FieldLogger) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ForceServerCodec(wire.Codec{}),
		grpc.UnaryInterceptor(logUnary(log.WithField("component", "grpc"))),
	}
}

// -------------------- Commands --------------------

func (s *Server) Submit(ctx context.Context, req *wire.SubmitRequest) (*wire.SubmitResponse, error) {
	side, ok := toSide(req.Side)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown side %d", req.Side)
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "price %q: %v", req.Price, err)
	}

	res, err := s.svc.Submit(ctx, service.SubmitCommand{
		Side:       side,
		Instrument: int(req.Instrument),
		Price:      price,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &wire.SubmitResponse{
		OrderID: res.OrderID.String(),
		Seq:     res.Seq,
		Trades:  make([]*wire.Trade, 0, len(res.Trades)),
	}
	for _, t := range res.Trades {
		resp.Trades = append(resp.Trades, wire.FromTrade(t))
	}
	return resp, nil
}

// -------------------- Queries --------------------

func (s *Server) Depth(ctx context.Context, req *wire.DepthRequest) (*wire.DepthResponse, error) {
	snap, err := s.svc.Depth(ctx, int(req.Instrument))
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.FromSnapshot(snap), nil
}

func (s *Server) LastTrade(ctx context.Context, req *wire.LastTradeRequest) (*wire.LastTradeResponse, error) {
	q, found, err := s.svc.LastTrade(ctx, int(req.Instrument))
	if err != nil {
		return nil, toStatus(err)
	}
	if !found {
		return &wire.LastTradeResponse{}, nil
	}
	return &wire.LastTradeResponse{
		Found:     true,
		Price:     q.Price.String(),
		Quantity:  q.Quantity,
		Seq:       q.Seq,
		Timestamp: q.Time,
	}, nil
}

// -------------------- Converters --------------------

func toSide(s wire.Side) (orderbook.Side, bool) {
	switch s {
	case wire.SideBuy:
		return orderbook.Buy, true
	case wire.SideSell:
		return orderbook.Sell, true
	default:
		return 0, false
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, orderbook.ErrInvalidOrder):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrLastTradeUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func logUnary(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		entry := log.WithFields(logrus.Fields{
			"method":  info.FullMethod,
			"code":    status.Code(err).String(),
			"elapsed": time.Since(start),
		})
		if err != nil && status.Code(err) != codes.InvalidArgument {
			entry.WithError(err).Warn("rpc failed")
		} else {
			entry.Debug("rpc")
		}
		return resp, err
	}
}

var _ MatchingServer = (*Server)(nil)

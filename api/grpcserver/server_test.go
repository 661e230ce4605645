package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"tradebook/api/wire"
	"tradebook/domain/orderbook"
	"tradebook/infra/cache"
	"tradebook/service"
)

type fakeLastTrades map[int]cache.Quote

func (f fakeLastTrades) Get(_ context.Context, instrument int) (cache.Quote, bool, error) {
	q, ok := f[instrument]
	return q, ok, nil
}

func startServer(t *testing.T, instruments int, lastTrades ...service.LastTradeSource) *Client {
	t.Helper()
	log, _ := logtest.NewNullLogger()

	svc := service.NewOrderService(orderbook.NewOrderBook(instruments), nil, log)
	for _, src := range lastTrades {
		svc.WithLastTrades(src)
	}
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(NewServerOptions(log)...)
	Register(srv, NewServer(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn)
}

func TestSubmitAndDepthOverGRPC(t *testing.T) {
	c := startServer(t, 8)
	ctx := context.Background()

	first, err := c.Submit(ctx, &wire.SubmitRequest{Side: wire.SideBuy, Instrument: 3, Price: "50", Quantity: 10})
	require.NoError(t, err)
	assert.Empty(t, first.Trades)
	assert.NotEmpty(t, first.OrderID)

	_, err = c.Submit(ctx, &wire.SubmitRequest{Side: wire.SideBuy, Instrument: 3, Price: "52", Quantity: 5})
	require.NoError(t, err)

	resp, err := c.Submit(ctx, &wire.SubmitRequest{Side: wire.SideSell, Instrument: 3, Price: "49", Quantity: 8})
	require.NoError(t, err)
	require.Len(t, resp.Trades, 2)
	assert.Equal(t, int64(5), resp.Trades[0].Quantity)
	assert.Equal(t, "49", resp.Trades[0].Price)
	assert.Equal(t, int64(3), resp.Trades[1].Quantity)
	assert.Equal(t, first.OrderID, resp.Trades[1].BuyOrderID)
	assert.Equal(t, resp.OrderID, resp.Trades[1].SellOrderID)
	assert.Less(t, resp.Trades[0].Seq, resp.Trades[1].Seq)

	depth, err := c.Depth(ctx, &wire.DepthRequest{Instrument: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), depth.Instrument)
	assert.Empty(t, depth.Asks)
	require.Len(t, depth.Bids, 1)
	assert.Equal(t, first.OrderID, depth.Bids[0].OrderID)
	assert.Equal(t, "50", depth.Bids[0].Price)
	assert.Equal(t, int64(7), depth.Bids[0].Remaining)
	assert.Equal(t, int64(1), depth.BidLevels)
	assert.Zero(t, depth.AskLevels)
}

func TestInvalidRequestsMapToInvalidArgument(t *testing.T) {
	c := startServer(t, 4)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *wire.SubmitRequest
	}{
		{"unspecified side", &wire.SubmitRequest{Instrument: 0, Price: "1", Quantity: 1}},
		{"bad price", &wire.SubmitRequest{Side: wire.SideBuy, Price: "abc", Quantity: 1}},
		{"zero quantity", &wire.SubmitRequest{Side: wire.SideBuy, Price: "1"}},
		{"instrument out of range", &wire.SubmitRequest{Side: wire.SideSell, Instrument: 4, Price: "1", Quantity: 1}},
		{"negative price", &wire.SubmitRequest{Side: wire.SideSell, Price: "-1", Quantity: 1}},
		{"price exponent too large", &wire.SubmitRequest{Side: wire.SideSell, Price: "1e2000000000", Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Submit(ctx, tc.req)
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}

	_, err := c.Depth(ctx, &wire.DepthRequest{Instrument: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.Canceled, status.Code(toStatus(context.Canceled)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
}

func TestLastTrade(t *testing.T) {
	c := startServer(t, 4, fakeLastTrades{
		2: {Price: decimal.RequireFromString("49.5"), Quantity: 3, Seq: 12, Time: 1700},
	})
	ctx := context.Background()

	resp, err := c.LastTrade(ctx, &wire.LastTradeRequest{Instrument: 2})
	require.NoError(t, err)
	assert.True(t, resp.Found)
	assert.Equal(t, "49.5", resp.Price)
	assert.Equal(t, int64(3), resp.Quantity)
	assert.Equal(t, uint64(12), resp.Seq)
	assert.Equal(t, int64(1700), resp.Timestamp)

	resp, err = c.LastTrade(ctx, &wire.LastTradeRequest{Instrument: 1})
	require.NoError(t, err)
	assert.False(t, resp.Found)

	_, err = c.LastTrade(ctx, &wire.LastTradeRequest{Instrument: 9})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestLastTradeWithoutCache(t *testing.T) {
	c := startServer(t, 1)
	_, err := c.LastTrade(context.Background(), &wire.LastTradeRequest{Instrument: 0})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

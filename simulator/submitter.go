package simulator

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradebook/api/grpcserver"
	"tradebook/api/wire"
	"tradebook/domain/orderbook"
	"tradebook/jobs/tradefeed"
	"tradebook/service"
)

// Submitter places one order and reports how many trades it caused.
// Rejections wrap orderbook.ErrInvalidOrder.
type Submitter interface {
	Submit(ctx context.Context, cmd service.SubmitCommand) (int, error)
}

type SubmitterFunc func(ctx context.Context, cmd service.SubmitCommand) (int, error)

func (f SubmitterFunc) Submit(ctx context.Context, cmd service.SubmitCommand) (int, error) {
	return f(ctx, cmd)
}

// Local drives an engine in the same process.
func Local(svc *service.OrderService) Submitter {
	return SubmitterFunc(func(ctx context.Context, cmd service.SubmitCommand) (int, error) {
		res, err := svc.Submit(ctx, cmd)
		return len(res.Trades), err
	})
}

const feedShards = 16

// InProcess builds an engine for the simulation. Trades reach handlers
// through a tradefeed dispatcher, off the instrument locks. stop drains
// the feed.
func InProcess(instruments int, log logrus.FieldLogger, handlers ...tradefeed.Handler) (Submitter, func()) {
	var opts []orderbook.Option
	stop := func() {}
	if len(handlers) > 0 {
		feed := tradefeed.New(feedShards, log, handlers...)
		feed.Start(context.Background())
		opts = append(opts, orderbook.WithSink(feed))
		stop = feed.Close
	}
	book := orderbook.NewOrderBook(instruments, opts...)
	return Local(service.NewOrderService(book, nil, log)), stop
}

// Remote drives an engine over gRPC.
func Remote(c *grpcserver.Client) Submitter {
	return SubmitterFunc(func(ctx context.Context, cmd service.SubmitCommand) (int, error) {
		side := wire.SideBuy
		if cmd.Side == orderbook.Sell {
			side = wire.SideSell
		}
		resp, err := c.Submit(ctx, &wire.SubmitRequest{
			Side:       side,
			Instrument: int64(cmd.Instrument),
			Price:      cmd.Price.String(),
			Quantity:   cmd.Quantity,
		})
		if err != nil {
			if status.Code(err) == codes.InvalidArgument {
				return 0, errors.Wrap(orderbook.ErrInvalidOrder, status.Convert(err).Message())
			}
			return 0, errors.Wrap(err, "remote submit")
		}
		return len(resp.Trades), nil
	})
}

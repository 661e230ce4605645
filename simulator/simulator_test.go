package simulator

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/domain/orderbook"
	"tradebook/jobs/tradefeed"
	"tradebook/service"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Producers = 4
	cfg.OrdersPerProducer = 200
	cfg.Instruments = 16
	cfg.Pause = 0
	cfg.Seed = 7
	return cfg
}

func TestRunConservesQuantity(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	cfg := smallConfig()

	var mu sync.Mutex
	var traded int64
	book := orderbook.NewOrderBook(cfg.Instruments, orderbook.WithSink(orderbook.TradeSinkFunc(func(events []orderbook.TradeEvent) {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			traded += e.Quantity
		}
	})))

	var submitted int64
	var subMu sync.Mutex
	local := Local(service.NewOrderService(book, nil, log))
	counting := SubmitterFunc(func(ctx context.Context, cmd service.SubmitCommand) (int, error) {
		subMu.Lock()
		submitted += cmd.Quantity
		subMu.Unlock()
		return local.Submit(ctx, cmd)
	})

	sum, err := Run(context.Background(), cfg, counting, log)
	require.NoError(t, err)
	assert.Equal(t, int64(cfg.Producers*cfg.OrdersPerProducer), sum.Orders)
	assert.Zero(t, sum.Rejected)

	var resting int64
	for i := 0; i < cfg.Instruments; i++ {
		snap, err := book.Depth(i)
		require.NoError(t, err)
		for _, o := range snap.Bids {
			resting += o.Remaining
		}
		for _, o := range snap.Asks {
			resting += o.Remaining
		}
		if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
			assert.True(t, snap.Bids[0].Price.LessThan(snap.Asks[0].Price), "instrument %d left crossed", i)
		}
	}
	assert.Equal(t, submitted, resting+2*traded)
}

func TestRandomOrdersInRange(t *testing.T) {
	cfg := smallConfig()
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		o := randomOrder(rng, cfg)
		assert.GreaterOrEqual(t, o.Instrument, 0)
		assert.Less(t, o.Instrument, cfg.Instruments)
		assert.True(t, o.Price.IntPart() >= cfg.MinPrice && o.Price.IntPart() <= cfg.MaxPrice)
		assert.True(t, o.Quantity >= 1 && o.Quantity <= cfg.MaxQuantity)
	}
}

func TestRejectionsCountedNotFatal(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	cfg := smallConfig()
	cfg.Producers = 2
	cfg.OrdersPerProducer = 10

	sub := SubmitterFunc(func(context.Context, service.SubmitCommand) (int, error) {
		return 0, errors.Wrap(orderbook.ErrInvalidOrder, "nope")
	})
	sum, err := Run(context.Background(), cfg, sub, log)
	require.NoError(t, err)
	assert.Equal(t, int64(20), sum.Rejected)
}

func TestFailureStopsRun(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	boom := errors.New("engine gone")

	sub := SubmitterFunc(func(context.Context, service.SubmitCommand) (int, error) { return 0, boom })
	sum, err := Run(context.Background(), smallConfig(), sub, log)
	assert.ErrorIs(t, err, boom)
	assert.Less(t, sum.Orders, int64(800))
}

func TestInvalidConfig(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	cfg := smallConfig()
	cfg.MaxPrice = cfg.MinPrice - 1
	_, err := Run(context.Background(), cfg, nil, log)
	assert.Error(t, err)
}

func TestInProcessHandlersRunOffTheLock(t *testing.T) {
	log, _ := logtest.NewNullLogger()

	release := make(chan struct{})
	handled := make(chan int, 2)
	slow := tradefeed.HandlerFunc(func(_ context.Context, events []orderbook.TradeEvent) error {
		if events[0].Instrument == 0 {
			<-release
		}
		handled <- events[0].Instrument
		return nil
	})
	sub, stop := InProcess(2, log, slow)

	cross := func(instrument int) {
		ctx := context.Background()
		_, err := sub.Submit(ctx, service.SubmitCommand{Side: orderbook.Sell, Instrument: instrument, Price: decimal.NewFromInt(10), Quantity: 1})
		assert.NoError(t, err)
		n, err := sub.Submit(ctx, service.SubmitCommand{Side: orderbook.Buy, Instrument: instrument, Price: decimal.NewFromInt(10), Quantity: 1})
		assert.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		cross(0)
		cross(1)
		cross(0)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submission waited on a trade handler")
	}
	select {
	case instr := <-handled:
		assert.Equal(t, 1, instr)
	case <-time.After(2 * time.Second):
		t.Fatal("instrument 1 trades waited on instrument 0")
	}

	close(release)
	stop()
	assert.Len(t, handled, 2)
}

// Package simulator generates random order flow against an engine from
// several concurrent producers.
package simulator

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tradebook/domain/orderbook"
	"tradebook/service"
)

type Config struct {
	Producers         int
	OrdersPerProducer int
	Instruments       int
	MinPrice          int64
	MaxPrice          int64
	MaxQuantity       int64
	Pause             time.Duration
	Seed              uint64
}

func DefaultConfig() Config {
	return Config{
		Producers:         4,
		OrdersPerProducer: 500,
		Instruments:       orderbook.DefaultInstruments,
		MinPrice:          10,
		MaxPrice:          500,
		MaxQuantity:       100,
		Pause:             10 * time.Millisecond,
		Seed:              uint64(time.Now().UnixNano()),
	}
}

func (c Config) validate() error {
	switch {
	case c.Producers <= 0:
		return errors.Newf("producers must be positive, got %d", c.Producers)
	case c.OrdersPerProducer < 0:
		return errors.Newf("orders per producer must not be negative, got %d", c.OrdersPerProducer)
	case c.Instruments <= 0:
		return errors.Newf("instruments must be positive, got %d", c.Instruments)
	case c.MinPrice < 0 || c.MaxPrice < c.MinPrice:
		return errors.Newf("bad price range [%d, %d]", c.MinPrice, c.MaxPrice)
	case c.MaxQuantity <= 0:
		return errors.Newf("max quantity must be positive, got %d", c.MaxQuantity)
	}
	return nil
}

type Summary struct {
	Orders   int64
	Rejected int64
	Trades   int64
	Elapsed  time.Duration
}

// Run starts cfg.Producers goroutines, each placing cfg.OrdersPerProducer
// random orders. A rejected order is counted; any other error stops the run.
func Run(ctx context.Context, cfg Config, sub Submitter, log logrus.FieldLogger) (Summary, error) {
	if err := cfg.validate(); err != nil {
		return Summary{}, err
	}

	var orders, rejected, trades atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < cfg.Producers; p++ {
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(p)))
		plog := log.WithField("producer", p)

		g.Go(func() error {
			for i := 0; i < cfg.OrdersPerProducer; i++ {
				n, err := sub.Submit(ctx, randomOrder(rng, cfg))
				orders.Add(1)
				switch {
				case errors.Is(err, orderbook.ErrInvalidOrder):
					rejected.Add(1)
					plog.WithError(err).Debug("order rejected")
				case err != nil:
					return errors.Wrapf(err, "producer %d order %d", p, i)
				}
				trades.Add(int64(n))

				if cfg.Pause > 0 {
					t := time.NewTimer(cfg.Pause)
					select {
					case <-ctx.Done():
						t.Stop()
						return ctx.Err()
					case <-t.C:
					}
				}
			}
			plog.Debug("producer done")
			return nil
		})
	}

	err := g.Wait()
	sum := Summary{
		Orders:   orders.Load(),
		Rejected: rejected.Load(),
		Trades:   trades.Load(),
		Elapsed:  time.Since(start),
	}
	log.WithFields(logrus.Fields{
		"orders":   sum.Orders,
		"rejected": sum.Rejected,
		"trades":   sum.Trades,
		"elapsed":  sum.Elapsed,
	}).Info("simulation finished")
	return sum, err
}

func randomOrder(rng *rand.Rand, cfg Config) service.SubmitCommand {
	side := orderbook.Buy
	if rng.IntN(2) == 1 {
		side = orderbook.Sell
	}
	return service.SubmitCommand{
		Side:       side,
		Instrument: rng.IntN(cfg.Instruments),
		Price:      decimal.NewFromInt(cfg.MinPrice + rng.Int64N(cfg.MaxPrice-cfg.MinPrice+1)),
		Quantity:   1 + rng.Int64N(cfg.MaxQuantity),
	}
}

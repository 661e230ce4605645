package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tradebook/api/wire"
	"tradebook/domain/orderbook"
	"tradebook/infra/cache"
	"tradebook/infra/journal"
	"tradebook/jobs/tradefeed"
)

// ConsoleHandler logs every execution.
func ConsoleHandler(log logrus.FieldLogger) tradefeed.Handler {
	log = log.WithField("component", "trades")
	return tradefeed.HandlerFunc(func(_ context.Context, events []orderbook.TradeEvent) error {
		for _, e := range events {
			log.WithFields(logrus.Fields{
				"seq":        e.Seq,
				"instrument": e.Instrument,
				"price":      e.Price,
				"qty":        e.Quantity,
				"buy":        e.BuyOrderID,
				"sell":       e.SellOrderID,
			}).Infof("matched %d of instrument %d at %s", e.Quantity, e.Instrument, e.Price)
		}
		return nil
	})
}

// JournalHandler stores each batch in the outbox for the broadcaster.
func JournalHandler(j *journal.Journal) tradefeed.Handler {
	return tradefeed.HandlerFunc(func(_ context.Context, events []orderbook.TradeEvent) error {
		entries := make([]journal.Entry, 0, len(events))
		for _, e := range events {
			entries = append(entries, journal.Entry{
				Seq:        e.Seq,
				Instrument: e.Instrument,
				Payload:    wire.FromTrade(e).MarshalWire(),
			})
		}
		return j.Append(entries...)
	})
}

// CacheHandler records each trade as the instrument's last trade.
func CacheHandler(c *cache.LastTrade, timeout time.Duration) tradefeed.Handler {
	return tradefeed.HandlerFunc(func(ctx context.Context, events []orderbook.TradeEvent) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		for _, e := range events {
			if err := c.Record(ctx, e, wire.FromTrade(e).MarshalWire()); err != nil {
				return err
			}
		}
		return nil
	})
}

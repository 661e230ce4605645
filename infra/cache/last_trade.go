package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"tradebook/domain/orderbook"
)

const (
	keyPrefix = "tradebook:last:"
	Channel   = "tradebook:trades"
)

// LastTrade keeps the latest execution per instrument in a redis hash and
// publishes every trade on Channel.
type LastTrade struct {
	client redis.Cmdable
}

func NewLastTrade(client redis.Cmdable) *LastTrade {
	return &LastTrade{client: client}
}

func Key(instrument int) string {
	return fmt.Sprintf("%s%d", keyPrefix, instrument)
}

// Record writes the hash and publishes payload in one transaction.
func (c *LastTrade) Record(ctx context.Context, ev orderbook.TradeEvent, payload []byte) error {
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, Key(ev.Instrument),
		"price", ev.Price.String(),
		"qty", ev.Quantity,
		"seq", ev.Seq,
		"ts", ev.Timestamp,
	)
	pipe.Publish(ctx, Channel, payload)
	_, err := pipe.Exec(ctx)
	return errors.Wrapf(err, "redis: record trade %d", ev.Seq)
}

// Quote is the cached last trade of one instrument.
type Quote struct {
	Price    decimal.Decimal
	Quantity int64
	Seq      uint64
	Time     int64
}

// Get returns false when the instrument has not traded yet.
func (c *LastTrade) Get(ctx context.Context, instrument int) (Quote, bool, error) {
	fields, err := c.client.HGetAll(ctx, Key(instrument)).Result()
	if err != nil {
		return Quote{}, false, errors.Wrapf(err, "redis: last trade %d", instrument)
	}
	if len(fields) == 0 {
		return Quote{}, false, nil
	}
	q, err := parseQuote(fields)
	return q, err == nil, err
}

func parseQuote(fields map[string]string) (Quote, error) {
	var (
		q   Quote
		err error
	)
	if q.Price, err = decimal.NewFromString(fields["price"]); err != nil {
		return Quote{}, errors.Wrap(err, "redis: price")
	}
	if q.Quantity, err = strconv.ParseInt(fields["qty"], 10, 64); err != nil {
		return Quote{}, errors.Wrap(err, "redis: qty")
	}
	if q.Seq, err = strconv.ParseUint(fields["seq"], 10, 64); err != nil {
		return Quote{}, errors.Wrap(err, "redis: seq")
	}
	if q.Time, err = strconv.ParseInt(fields["ts"], 10, 64); err != nil {
		return Quote{}, errors.Wrap(err, "redis: ts")
	}
	return q, nil
}

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/domain/orderbook"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "tradebook:last:0", Key(0))
	assert.Equal(t, "tradebook:last:1023", Key(1023))
}

func TestParseQuote(t *testing.T) {
	q, err := parseQuote(map[string]string{"price": "49.5", "qty": "8", "seq": "12", "ts": "1700"})
	require.NoError(t, err)
	assert.Equal(t, "49.5", q.Price.String())
	assert.Equal(t, int64(8), q.Quantity)
	assert.Equal(t, uint64(12), q.Seq)
	assert.Equal(t, int64(1700), q.Time)
}

func TestParseQuoteRejectsGarbage(t *testing.T) {
	_, err := parseQuote(map[string]string{"price": "abc", "qty": "1", "seq": "1", "ts": "1"})
	assert.Error(t, err)

	_, err = parseQuote(map[string]string{"price": "1", "qty": "x", "seq": "1", "ts": "1"})
	assert.Error(t, err)
}

// Needs a disposable redis; set REDIS_TEST_ADDR to run.
func TestRecordAndGetAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	instrument := 1000 + int(time.Now().UnixNano()%1000)
	t.Cleanup(func() { rdb.Del(ctx, Key(instrument)) })

	c := NewLastTrade(rdb)
	_, ok, err := c.Get(ctx, instrument)
	require.NoError(t, err)
	assert.False(t, ok)

	sub := rdb.Subscribe(ctx, Channel)
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	ev := orderbook.TradeEvent{Seq: 77, Instrument: instrument, Price: decimal.RequireFromString("12.5"), Quantity: 4, Timestamp: 99}
	require.NoError(t, c.Record(ctx, ev, []byte("payload")))

	q, ok, err := c.Get(ctx, instrument)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, q.Price.Equal(ev.Price))
	assert.Equal(t, uint64(77), q.Seq)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "payload", msg.Payload)
}

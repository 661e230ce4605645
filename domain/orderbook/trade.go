package orderbook

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeEvent is one execution between the best bid and the best ask.
type TradeEvent struct {
	Seq         uint64
	Instrument  int
	Price       decimal.Decimal
	Quantity    int64
	Timestamp   int64 // unix nanos
	BuyOrderID  uuid.UUID
	SellOrderID uuid.UUID
}

func (t TradeEvent) String() string {
	return fmt.Sprintf("Trade{seq=%d, instrument=%d, price=%s, qty=%d}",
		t.Seq, t.Instrument, t.Price, t.Quantity)
}

// TradeSink receives the trades of one submission, in generation order,
// while the instrument is still locked. Implementations must not block
// for long: every submitter of that instrument waits on them.
type TradeSink interface {
	Publish(events []TradeEvent)
}

// TradeSinkFunc adapts a function to TradeSink.
type TradeSinkFunc func(events []TradeEvent)

func (f TradeSinkFunc) Publish(events []TradeEvent) { f(events) }

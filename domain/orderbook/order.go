package orderbook

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

func (s Side) valid() bool {
	return s == Buy || s == Sell
}

// Order is one side of a potential trade. The book rests its own copy of
// a submitted Order, so only the matching loop changes a resting order's
// remaining quantity.
type Order struct {
	id         uuid.UUID
	side       Side
	instrument int
	price      decimal.Decimal
	remaining  int64
	seq        uint64

	next *Order
	prev *Order
}

func NewOrder(side Side, instrument int, price decimal.Decimal, qty int64) *Order {
	return &Order{
		id:         uuid.New(),
		side:       side,
		instrument: instrument,
		price:      price,
		remaining:  qty,
	}
}

func (o *Order) ID() uuid.UUID          { return o.id }
func (o *Order) Side() Side             { return o.side }
func (o *Order) Instrument() int        { return o.instrument }
func (o *Order) Price() decimal.Decimal { return o.price }
func (o *Order) Remaining() int64       { return o.remaining }

// Seq is the arrival sequence stamped on acceptance; zero until submitted.
func (o *Order) Seq() uint64 { return o.seq }

// ReduceQuantity subtracts amount from the remaining quantity.
func (o *Order) ReduceQuantity(amount int64) error {
	if amount <= 0 || amount > o.remaining {
		return errors.Wrapf(ErrInvalidQuantity,
			"reduce %d from order %s with %d remaining", amount, o.id, o.remaining)
	}
	o.remaining -= amount
	return nil
}

// Next walks the FIFO queue of the price level this order rests on.
func (o *Order) Next() *Order {
	return o.next
}

func (o *Order) String() string {
	return fmt.Sprintf("Order{id=%s, side=%s, instrument=%d, price=%s, remaining=%d, seq=%d}",
		o.id, o.side, o.instrument, o.price, o.remaining, o.seq)
}

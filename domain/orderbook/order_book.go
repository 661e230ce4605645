package orderbook

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"tradebook/infra/sequence"
)

// DefaultInstruments matches the size of the instrument space the engine
// was first run with.
const DefaultInstruments = 1024

// Accepted prices have at most MaxPriceScale decimal places and
// MaxPriceIntDigits integer digits, so comparisons stay small.
const (
	MaxPriceScale     = 8
	MaxPriceIntDigits = 18

	// 26 digits fit in 87 bits.
	maxCoefficientBits = 90
)

type slot struct {
	mu   sync.Mutex
	book *Book
}

// OrderBook owns one Book per instrument in a fixed space [0, N). Each
// instrument has its own lock covering insert, match and the trade
// hand-off; instruments never contend with each other.
type OrderBook struct {
	slots    []slot
	sink     TradeSink
	arrivals *sequence.Sequencer
	trades   *sequence.Sequencer
}

type Option func(*OrderBook)

// WithSink hands every non-empty batch of trades to s under the
// instrument lock.
func WithSink(s TradeSink) Option {
	return func(ob *OrderBook) { ob.sink = s }
}

func NewOrderBook(instruments int, opts ...Option) *OrderBook {
	if instruments <= 0 {
		instruments = DefaultInstruments
	}
	ob := &OrderBook{
		slots:    make([]slot, instruments),
		arrivals: sequence.New(0),
		trades:   sequence.New(0),
	}
	for i := range ob.slots {
		ob.slots[i].book = NewBook(i, ob.trades.Next)
	}
	for _, opt := range opts {
		opt(ob)
	}
	return ob
}

func (ob *OrderBook) Instruments() int {
	return len(ob.slots)
}

// Submit validates o, rests a copy of it in its instrument's book and
// runs the matching loop. The book owns the copy: later changes to o do
// not reach the book, and o keeps its original quantity. o gets the
// arrival seq. The returned trades are in execution order. On error
// nothing was changed.
func (ob *OrderBook) Submit(o *Order) ([]TradeEvent, error) {
	if o == nil {
		return nil, errors.Wrap(ErrInvalidOrder, "nil order")
	}
	owned := &Order{
		id:         o.id,
		side:       o.side,
		instrument: o.instrument,
		price:      o.price,
		remaining:  o.remaining,
	}
	if err := ob.validate(owned); err != nil {
		return nil, err
	}

	s := &ob.slots[owned.instrument]
	s.mu.Lock()
	defer s.mu.Unlock()

	// checked under the lock: two goroutines may race the same order
	if o.seq != 0 {
		return nil, errors.Wrapf(ErrInvalidOrder, "order %s already submitted", o.id)
	}
	owned.seq = ob.arrivals.Next()
	o.seq = owned.seq

	trades := s.book.Place(owned)
	if ob.sink != nil && len(trades) > 0 {
		ob.sink.Publish(trades)
	}
	return trades, nil
}

func (ob *OrderBook) validate(o *Order) error {
	switch {
	case !o.side.valid():
		return errors.Wrapf(ErrInvalidOrder, "unknown side %d", int(o.side))
	case o.instrument < 0 || o.instrument >= len(ob.slots):
		return errors.Wrapf(ErrInvalidOrder, "instrument %d outside [0, %d)", o.instrument, len(ob.slots))
	case o.remaining <= 0:
		return errors.Wrapf(ErrInvalidOrder, "quantity %d must be positive", o.remaining)
	case o.price.IsNegative():
		return errors.Wrap(ErrInvalidOrder, "price must not be negative")
	}
	return validPriceRange(o.price)
}

// validPriceRange never formats the price: an out-of-range exponent
// would print billions of digits.
func validPriceRange(p decimal.Decimal) error {
	exp := int(p.Exponent())
	if exp < -MaxPriceScale {
		return errors.Wrapf(ErrInvalidOrder, "price has more than %d decimal places", MaxPriceScale)
	}
	if exp > MaxPriceIntDigits || p.Coefficient().BitLen() > maxCoefficientBits ||
		p.NumDigits()+exp > MaxPriceIntDigits {
		return errors.Wrapf(ErrInvalidOrder, "price has more than %d integer digits", MaxPriceIntDigits)
	}
	return nil
}

// ---- queries ----

// RestingOrder is a read-only copy of an order resting in a book.
type RestingOrder struct {
	ID        string
	Side      Side
	Price     decimal.Decimal
	Remaining int64
	Seq       uint64
}

// Snapshot lists resting orders best first on each side.
type Snapshot struct {
	Instrument int
	Bids       []RestingOrder
	Asks       []RestingOrder
	BidLevels  int
	AskLevels  int
}

// Depth copies the instrument's book under its lock.
func (ob *OrderBook) Depth(instrument int) (Snapshot, error) {
	if instrument < 0 || instrument >= len(ob.slots) {
		return Snapshot{}, errors.Wrapf(ErrInvalidOrder, "instrument %d outside [0, %d)", instrument, len(ob.slots))
	}

	s := &ob.slots[instrument]
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Instrument: instrument,
		BidLevels:  s.book.Bids.Size(),
		AskLevels:  s.book.Asks.Size(),
	}
	s.book.BidsWalk(func(lvl *PriceLevel) bool {
		snap.Bids = appendLevel(snap.Bids, lvl)
		return true
	})
	s.book.AsksWalk(func(lvl *PriceLevel) bool {
		snap.Asks = appendLevel(snap.Asks, lvl)
		return true
	})
	return snap, nil
}

func appendLevel(out []RestingOrder, lvl *PriceLevel) []RestingOrder {
	for o := lvl.Head(); o != nil; o = o.Next() {
		out = append(out, RestingOrder{
			ID:        o.id.String(),
			Side:      o.side,
			Price:     o.price,
			Remaining: o.remaining,
			Seq:       o.seq,
		})
	}
	return out
}

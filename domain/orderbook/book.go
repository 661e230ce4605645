package orderbook

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Book holds the two sides of one instrument. It is single-writer:
// OrderBook serializes every call under the instrument's lock.
type Book struct {
	Instrument int
	Bids       *RBTree
	Asks       *RBTree

	tradeSeq func() uint64
}

func NewBook(instrument int, tradeSeq func() uint64) *Book {
	return &Book{
		Instrument: instrument,
		Bids:       NewRBTree(),
		Asks:       NewRBTree(),
		tradeSeq:   tradeSeq,
	}
}

// Place rests o at the back of its price level, then matches until the
// book no longer crosses.
func (b *Book) Place(o *Order) []TradeEvent {
	if o.side == Buy {
		b.Bids.UpsertLevel(o.price).Enqueue(o)
	} else {
		b.Asks.UpsertLevel(o.price).Enqueue(o)
	}
	return b.match()
}

// ---- matching ----

func (b *Book) match() []TradeEvent {
	var trades []TradeEvent
	for {
		bidLvl := b.Bids.MaxLevel()
		askLvl := b.Asks.MinLevel()
		if bidLvl == nil || askLvl == nil {
			return trades
		}
		if bidLvl.Price.LessThan(askLvl.Price) {
			return trades
		}

		bid, ask := bidLvl.Head(), askLvl.Head()
		qty := min(bid.Remaining(), ask.Remaining())

		if err := bidLvl.Fill(qty); err != nil {
			panic(errors.NewAssertionErrorWithWrappedErrf(err, "fill bid at %s", bidLvl.Price))
		}
		if err := askLvl.Fill(qty); err != nil {
			panic(errors.NewAssertionErrorWithWrappedErrf(err, "fill ask at %s", askLvl.Price))
		}

		trades = append(trades, TradeEvent{
			Seq:         b.tradeSeq(),
			Instrument:  b.Instrument,
			Price:       askLvl.Price,
			Quantity:    qty,
			Timestamp:   time.Now().UnixNano(),
			BuyOrderID:  bid.ID(),
			SellOrderID: ask.ID(),
		})

		if bid.Remaining() == 0 {
			b.retire(b.Bids, bidLvl)
		}
		if ask.Remaining() == 0 {
			b.retire(b.Asks, askLvl)
		}
	}
}

func (b *Book) retire(side *RBTree, lvl *PriceLevel) {
	lvl.PopHead()
	if lvl.Empty() {
		side.DeleteLevel(lvl.Price)
	}
}

// ---- traversal ----

// BidsWalk visits bid levels best (highest) first.
func (b *Book) BidsWalk(fn func(*PriceLevel) bool) {
	b.Bids.ForEachDescending(fn)
}

// AsksWalk visits ask levels best (lowest) first.
func (b *Book) AsksWalk(fn func(*PriceLevel) bool) {
	b.Asks.ForEachAscending(fn)
}

package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func TestProperty_CrossingDecidesMatch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bid := rapid.Int64Range(1, 10000).Draw(t, "bid")
		ask := rapid.Int64Range(1, 10000).Draw(t, "ask")
		qty := rapid.Int64Range(1, 100).Draw(t, "qty")
		bidFirst := rapid.Bool().Draw(t, "bidFirst")

		ob := NewOrderBook(1)
		first, second := NewOrder(Sell, 0, decimal.NewFromInt(ask), qty), NewOrder(Buy, 0, decimal.NewFromInt(bid), qty)
		if bidFirst {
			first, second = second, first
		}
		if _, err := ob.Submit(first); err != nil {
			t.Fatalf("submit first: %v", err)
		}
		trades, err := ob.Submit(second)
		if err != nil {
			t.Fatalf("submit second: %v", err)
		}

		if bid >= ask {
			if len(trades) != 1 || trades[0].Quantity != qty {
				t.Fatalf("bid %d >= ask %d: want one trade of %d, got %v", bid, ask, qty, trades)
			}
			if !trades[0].Price.Equal(decimal.NewFromInt(ask)) {
				t.Fatalf("executed at %s, want ask %d", trades[0].Price, ask)
			}
		} else if len(trades) != 0 {
			t.Fatalf("bid %d < ask %d: got %d trades", bid, ask, len(trades))
		}
	})
}

func TestProperty_RandomFlowKeepsBookConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook(1)
		n := rapid.IntRange(1, 200).Draw(t, "orders")

		var submitted, traded int64
		lastTrade := uint64(0)
		for i := 0; i < n; i++ {
			side := Buy
			if rapid.Bool().Draw(t, "sell") {
				side = Sell
			}
			price := rapid.Int64Range(90, 110).Draw(t, "price")
			qty := rapid.Int64Range(1, 50).Draw(t, "qty")

			trades, err := ob.Submit(NewOrder(side, 0, decimal.NewFromInt(price), qty))
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			submitted += qty
			for _, tr := range trades {
				if tr.Quantity <= 0 {
					t.Fatalf("trade %d has quantity %d", tr.Seq, tr.Quantity)
				}
				if tr.Seq <= lastTrade {
					t.Fatalf("trade seq %d after %d", tr.Seq, lastTrade)
				}
				lastTrade = tr.Seq
				traded += tr.Quantity
			}
		}

		snap, err := ob.Depth(0)
		if err != nil {
			t.Fatalf("depth: %v", err)
		}
		var resting int64
		for _, side := range [][]RestingOrder{snap.Bids, snap.Asks} {
			for i, o := range side {
				resting += o.Remaining
				if i > 0 && side[i-1].Price.Equal(o.Price) && side[i-1].Seq > o.Seq {
					t.Fatalf("level %s out of arrival order", o.Price)
				}
			}
		}
		if submitted != resting+2*traded {
			t.Fatalf("submitted %d != resting %d + 2*traded %d", submitted, resting, traded)
		}
		if len(snap.Bids) > 0 && len(snap.Asks) > 0 && !snap.Bids[0].Price.LessThan(snap.Asks[0].Price) {
			t.Fatalf("book crossed at rest: bid %s ask %s", snap.Bids[0].Price, snap.Asks[0].Price)
		}
	})
}

package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceLevel is a FIFO queue of resting orders at a single price.
// Arrival order within the level is queue order.
type PriceLevel struct {
	Price decimal.Decimal

	head *Order
	tail *Order

	TotalQty   int64
	OrderCount int
}

func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty += o.Remaining()
	p.OrderCount++
}

// PopHead unlinks the oldest order. Callers pop only filled orders, so
// the level total was already reduced through Fill.
func (p *PriceLevel) PopHead() *Order {
	o := p.head
	if o == nil {
		return nil
	}

	p.head = o.next
	if p.head != nil {
		p.head.prev = nil
	} else {
		p.tail = nil
	}

	o.next = nil
	o.prev = nil

	p.TotalQty -= o.Remaining()
	p.OrderCount--

	return o
}

// Fill reduces the head order and keeps the level total in step.
func (p *PriceLevel) Fill(qty int64) error {
	if err := p.head.ReduceQuantity(qty); err != nil {
		return err
	}
	p.TotalQty -= qty
	return nil
}

func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

func (p *PriceLevel) Head() *Order {
	return p.head
}

func (p *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel{Price=%s, Orders=%d, TotalQty=%d}", p.Price, p.OrderCount, p.TotalQty)
}

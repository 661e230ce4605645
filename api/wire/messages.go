package wire

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradebook/domain/orderbook"
)

type Side int32

const (
	SideUnspecified Side = iota
	SideBuy
	SideSell
)

// -------------------- Submit --------------------

type SubmitRequest struct {
	Side       Side   // 1
	Instrument int64  // 2
	Price      string // 3, decimal text
	Quantity   int64  // 4
}

func (m *SubmitRequest) MarshalWire() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(m.Side))
	b = appendInt(b, 2, m.Instrument)
	b = appendString(b, 3, m.Price)
	b = appendInt(b, 4, m.Quantity)
	return b
}

func (m *SubmitRequest) UnmarshalWire(b []byte) error {
	*m = SubmitRequest{}
	d := &decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			m.Side = d.side(typ)
		case 2:
			m.Instrument = d.int(typ)
		case 3:
			m.Price = d.string(typ)
		case 4:
			m.Quantity = d.int(typ)
		default:
			d.skip(num, typ)
		}
	}
	return d.err
}

type SubmitResponse struct {
	OrderID string   // 1
	Seq     uint64   // 2
	Trades  []*Trade // 3
}

func (m *SubmitResponse) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.OrderID)
	b = appendVarint(b, 2, m.Seq)
	for _, t := range m.Trades {
		b = appendMessage(b, 3, t)
	}
	return b
}

func (m *SubmitResponse) UnmarshalWire(b []byte) error {
	*m = SubmitResponse{}
	d := &decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			m.OrderID = d.string(typ)
		case 2:
			m.Seq = d.varint(typ)
		case 3:
			t := new(Trade)
			d.message(typ, t)
			m.Trades = append(m.Trades, t)
		default:
			d.skip(num, typ)
		}
	}
	return d.err
}

// -------------------- Trade --------------------

type Trade struct {
	Seq         uint64 // 1
	Instrument  int64  // 2
	Price       string // 3
	Quantity    int64  // 4
	Timestamp   int64  // 5, unix nanos
	BuyOrderID  string // 6
	SellOrderID string // 7
}

func (m *Trade) MarshalWire() []byte {
	var b []byte
	b = appendVarint(b, 1, m.Seq)
	b = appendInt(b, 2, m.Instrument)
	b = appendString(b, 3, m.Price)
	b = appendInt(b, 4, m.Quantity)
	b = appendInt(b, 5, m.Timestamp)
	b = appendString(b, 6, m.BuyOrderID)
	b = appendString(b, 7, m.SellOrderID)
	return b
}

func (m *Trade) UnmarshalWire(b []byte) error {
	*m = Trade{}
	d := &decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			m.Seq = d.varint(typ)
		case 2:
			m.Instrument = d.int(typ)
		case 3:
			m.Price = d.string(typ)
		case 4:
			m.Quantity = d.int(typ)
		case 5:
			m.Timestamp = d.int(typ)
		case 6:
			m.BuyOrderID = d.string(typ)
		case 7:
			m.SellOrderID = d.string(typ)
		default:
			d.skip(num, typ)
		}
	}
	return d.err
}

func FromTrade(t orderbook.TradeEvent) *Trade {
	return &Trade{
		Seq:         t.Seq,
		Instrument:  int64(t.Instrument),
		Price:       t.Price.String(),
		Quantity:    t.Quantity,
		Timestamp:   t.Timestamp,
		BuyOrderID:  t.BuyOrderID.String(),
		SellOrderID: t.SellOrderID.String(),
	}
}

// TradeEvent converts back to the domain type.
func (m *Trade) TradeEvent() (orderbook.TradeEvent, error) {
	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return orderbook.TradeEvent{}, errors.Wrapf(err, "trade %d price", m.Seq)
	}
	buy, err := uuid.Parse(m.BuyOrderID)
	if err != nil {
		return orderbook.TradeEvent{}, errors.Wrapf(err, "trade %d buy order id", m.Seq)
	}
	sell, err := uuid.Parse(m.SellOrderID)
	if err != nil {
		return orderbook.TradeEvent{}, errors.Wrapf(err, "trade %d sell order id", m.Seq)
	}
	return orderbook.TradeEvent{
		Seq:         m.Seq,
		Instrument:  int(m.Instrument),
		Price:       price,
		Quantity:    m.Quantity,
		Timestamp:   m.Timestamp,
		BuyOrderID:  buy,
		SellOrderID: sell,
	}, nil
}

// -------------------- Depth --------------------

type DepthRequest struct {
	Instrument int64 // 1
}

func (m *DepthRequest) MarshalWire() []byte {
	return appendInt(nil, 1, m.Instrument)
}

func (m *DepthRequest) UnmarshalWire(b []byte) error {
	*m = DepthRequest{}
	d := &decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		if num == 1 {
			m.Instrument = d.int(typ)
			continue
		}
		d.skip(num, typ)
	}
	return d.err
}

type RestingOrder struct {
	OrderID   string // 1
	Price     string // 2
	Remaining int64  // 3
	Seq       uint64 // 4
}

func (m *RestingOrder) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.OrderID)
	b = appendString(b, 2, m.Price)
	b = appendInt(b, 3, m.Remaining)
	b = appendVarint(b, 4, m.Seq)
	return b
}

func (m *RestingOrder) UnmarshalWire(b []byte) error {
	*m = RestingOrder{}
	d := &decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			m.OrderID = d.string(typ)
		case 2:
			m.Price = d.string(typ)
		case 3:
			m.Remaining = d.int(typ)
		case 4:
			m.Seq = d.varint(typ)
		default:
			d.skip(num, typ)
		}
	}
	return d.err
}

type DepthResponse struct {
	Instrument int64           // 1
	Bids       []*RestingOrder // 2
	Asks       []*RestingOrder // 3
	BidLevels  int64           // 4
	AskLevels  int64           // 5
}

func (m *DepthResponse) MarshalWire() []byte {
	b := appendInt(nil, 1, m.Instrument)
	for _, o := range m.Bids {
		b = appendMessage(b, 2, o)
	}
	for _, o := range m.Asks {
		b = appendMessage(b, 3, o)
	}
	b = appendInt(b, 4, m.BidLevels)
	b = appendInt(b, 5, m.AskLevels)
	return b
}

func (m *DepthResponse) UnmarshalWire(b []byte) error {
	*m = DepthResponse{}
	d := &decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			m.Instrument = d.int(typ)
		case 2, 3:
			o := new(RestingOrder)
			d.message(typ, o)
			if num == 2 {
				m.Bids = append(m.Bids, o)
			} else {
				m.Asks = append(m.Asks, o)
			}
		case 4:
			m.BidLevels = d.int(typ)
		case 5:
			m.AskLevels = d.int(typ)
		default:
			d.skip(num, typ)
		}
	}
	return d.err
}

func FromSnapshot(s orderbook.Snapshot) *DepthResponse {
	resp := &DepthResponse{
		Instrument: int64(s.Instrument),
		BidLevels:  int64(s.BidLevels),
		AskLevels:  int64(s.AskLevels),
	}
	for _, o := range s.Bids {
		resp.Bids = append(resp.Bids, fromResting(o))
	}
	for _, o := range s.Asks {
		resp.Asks = append(resp.Asks, fromResting(o))
	}
	return resp
}

func fromResting(o orderbook.RestingOrder) *RestingOrder {
	return &RestingOrder{
		OrderID:   o.ID,
		Price:     o.Price.String(),
		Remaining: o.Remaining,
		Seq:       o.Seq,
	}
}

// -------------------- LastTrade --------------------

type LastTradeRequest struct {
	Instrument int64 // 1
}

func (m *LastTradeRequest) MarshalWire() []byte {
	return appendInt(nil, 1, m.Instrument)
}

func (m *LastTradeRequest) UnmarshalWire(b []byte) error {
	*m = LastTradeRequest{}
	d := &decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		if num == 1 {
			m.Instrument = d.int(typ)
			continue
		}
		d.skip(num, typ)
	}
	return d.err
}

// LastTradeResponse has Found false when the instrument has not traded.
type LastTradeResponse struct {
	Found     bool   // 1
	Price     string // 2
	Quantity  int64  // 3
	Seq       uint64 // 4
	Timestamp int64  // 5
}

func (m *LastTradeResponse) MarshalWire() []byte {
	var b []byte
	if m.Found {
		b = appendVarint(b, 1, 1)
	}
	b = appendString(b, 2, m.Price)
	b = appendInt(b, 3, m.Quantity)
	b = appendVarint(b, 4, m.Seq)
	b = appendInt(b, 5, m.Timestamp)
	return b
}

func (m *LastTradeResponse) UnmarshalWire(b []byte) error {
	*m = LastTradeResponse{}
	d := &decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			m.Found = d.varint(typ) != 0
		case 2:
			m.Price = d.string(typ)
		case 3:
			m.Quantity = d.int(typ)
		case 4:
			m.Seq = d.varint(typ)
		case 5:
			m.Timestamp = d.int(typ)
		default:
			d.skip(num, typ)
		}
	}
	return d.err
}

// compile-time checks
var (
	_ Message = (*SubmitRequest)(nil)
	_ Message = (*SubmitResponse)(nil)
	_ Message = (*Trade)(nil)
	_ Message = (*DepthRequest)(nil)
	_ Message = (*DepthResponse)(nil)
	_ Message = (*RestingOrder)(nil)
	_ Message = (*LastTradeRequest)(nil)
	_ Message = (*LastTradeResponse)(nil)
)

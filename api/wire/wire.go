// Package wire defines the messages exchanged with the engine and their
// protobuf wire encoding. The same Trade encoding is used on gRPC, in the
// trade journal and on Kafka, so every consumer decodes one format.
package wire

import (
	"math"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every type in this package.
type Message interface {
	MarshalWire() []byte
	UnmarshalWire(b []byte) error
}

// Codec plugs Message types into gRPC (see grpc.ForceServerCodec).
type Codec struct{}

func (Codec) Name() string { return "tradebook" }

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, errors.Newf("wire: cannot marshal %T", v)
	}
	return m.MarshalWire(), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return errors.Newf("wire: cannot unmarshal into %T", v)
	}
	return m.UnmarshalWire(data)
}

// ---- encoding helpers ----

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt(b []byte, num protowire.Number, v int64) []byte {
	return appendVarint(b, num, protowire.EncodeZigZag(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, m Message) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.MarshalWire())
}

// ---- decoding helpers ----

type decoder struct {
	b   []byte
	err error
}

// next reads the next field tag; false at end of input or on error.
func (d *decoder) next() (protowire.Number, protowire.Type, bool) {
	if d.err != nil || len(d.b) == 0 {
		return 0, 0, false
	}
	num, typ, n := protowire.ConsumeTag(d.b)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return 0, 0, false
	}
	d.b = d.b[n:]
	return num, typ, true
}

func (d *decoder) varint(typ protowire.Type) uint64 {
	if !d.expect(typ, protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(d.b)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return 0
	}
	d.b = d.b[n:]
	return v
}

// side rejects values outside int32 instead of truncating them.
func (d *decoder) side(typ protowire.Type) Side {
	v := d.varint(typ)
	if d.err == nil && v > math.MaxInt32 {
		d.err = errors.Newf("wire: side %d out of range", v)
		return SideUnspecified
	}
	return Side(v)
}

func (d *decoder) int(typ protowire.Type) int64 {
	return protowire.DecodeZigZag(d.varint(typ))
}

func (d *decoder) bytes(typ protowire.Type) []byte {
	if !d.expect(typ, protowire.BytesType) {
		return nil
	}
	v, n := protowire.ConsumeBytes(d.b)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return nil
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) string(typ protowire.Type) string {
	return string(d.bytes(typ))
}

func (d *decoder) message(typ protowire.Type, m Message) {
	raw := d.bytes(typ)
	if d.err != nil {
		return
	}
	if err := m.UnmarshalWire(raw); err != nil {
		d.err = err
	}
}

func (d *decoder) skip(num protowire.Number, typ protowire.Type) {
	n := protowire.ConsumeFieldValue(num, typ, d.b)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return
	}
	d.b = d.b[n:]
}

func (d *decoder) expect(got, want protowire.Type) bool {
	if d.err != nil {
		return false
	}
	if got != want {
		d.err = errors.Newf("wire: wire type %d, want %d", got, want)
		return false
	}
	return true
}

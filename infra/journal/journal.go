package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

// Record is one trade waiting to leave the process. Acked records are
// deleted, so everything stored is pending.
type Record struct {
	Seq         uint64
	Instrument  int
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const headerLen = 1 + 4 + 8 + 4 + 4

// binary encoding: [state:1][retries:4][lastAttempt:8][instrument:4][crc:4][payload]
// crc is CRC-32 (IEEE) of the payload.
func encodeRecord(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint32(buf[13:17], uint32(r.Instrument))
	binary.BigEndian.PutUint32(buf[17:21], crc32.ChecksumIEEE(r.Payload))
	copy(buf[headerLen:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, errors.Newf("journal: record %d is %d bytes", seq, len(b))
	}
	if sum := binary.BigEndian.Uint32(b[17:21]); crc32.ChecksumIEEE(b[headerLen:]) != sum {
		return Record{}, errors.Newf("journal: record %d fails checksum", seq)
	}
	payload := make([]byte, len(b)-headerLen)
	copy(payload, b[headerLen:])
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Instrument:  int(binary.BigEndian.Uint32(b[13:17])),
		Payload:     payload,
	}, nil
}

// -------------------- Journal --------------------

// Journal is a pebble-backed outbox of executed trades keyed by trade
// sequence, so a scan yields trades in execution order.
type Journal struct {
	db *pebble.DB
}

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "journal: open %s", dir)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Entry is a trade to be journaled.
type Entry struct {
	Seq        uint64
	Instrument int
	Payload    []byte
}

// Append stores entries as NEW in one synced batch.
func (j *Journal) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	b := j.db.NewBatch()
	defer b.Close()

	for _, e := range entries {
		rec := Record{Seq: e.Seq, Instrument: e.Instrument, State: StateNew, Payload: e.Payload}
		if err := b.Set(keyFor(e.Seq), encodeRecord(rec), nil); err != nil {
			return errors.Wrapf(err, "journal: stage %d", e.Seq)
		}
	}
	return errors.Wrap(b.Commit(pebble.Sync), "journal: commit")
}

// MarkFailed records a failed publish attempt.
func (j *Journal) MarkFailed(seq uint64) error {
	rec, err := j.Get(seq)
	if err != nil {
		return err
	}
	rec.State = StateFailed
	rec.Retries++
	rec.LastAttempt = time.Now().UnixNano()
	return errors.Wrapf(j.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync), "journal: mark %d failed", seq)
}

// Ack removes a record the broker has accepted.
func (j *Journal) Ack(seq uint64) error {
	return errors.Wrapf(j.db.Delete(keyFor(seq), pebble.Sync), "journal: ack %d", seq)
}

func (j *Journal) Get(seq uint64) (Record, error) {
	val, closer, err := j.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, errors.Wrapf(err, "journal: get %d", seq)
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// -------------------- Scan --------------------

// ScanPending visits pending records in sequence order. A non-nil error
// from fn stops the scan and is returned.
func (j *Journal) ScanPending(fn func(Record) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return errors.Wrap(err, "journal: iterator")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Pending counts stored records.
func (j *Journal) Pending() (int, error) {
	n := 0
	err := j.ScanPending(func(Record) error {
		n++
		return nil
	})
	return n, err
}

// -------------------- Helpers --------------------

const keyPrefix = "trade/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, errors.Wrapf(err, "journal: key %q", b)
}

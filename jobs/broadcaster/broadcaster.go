package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"tradebook/infra/journal"
)

// Publisher delivers one keyed message to the broker.
type Publisher interface {
	Send(ctx context.Context, key, value []byte) error
}

// Observer is told the outcome of every publish attempt.
type Observer interface {
	ObservePublish(err error)
}

// Broadcaster drains the trade journal into a Publisher. Records go out
// in sequence order; the first failure ends the pass so no trade of an
// instrument overtakes an earlier one.
type Broadcaster struct {
	journal  *journal.Journal
	pub      Publisher
	interval time.Duration
	observer Observer
	log      logrus.FieldLogger
}

func New(j *journal.Journal, pub Publisher, interval time.Duration, log logrus.FieldLogger) *Broadcaster {
	return &Broadcaster{
		journal:  j,
		pub:      pub,
		interval: interval,
		log:      log.WithField("component", "broadcaster"),
	}
}

func (b *Broadcaster) WithObserver(o Observer) *Broadcaster {
	b.observer = o
	return b
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run flushes every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.log.WithField("interval", b.interval).Info("broadcaster started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("broadcaster stopped")
			return nil
		case <-ticker.C:
			if _, err := b.Flush(ctx); err != nil {
				b.log.WithError(err).Warn("publish pass stopped, retrying next tick")
			}
		}
	}
}

// ------------------------------------------------
// FLUSH
// ------------------------------------------------

// Flush publishes pending records and acks each one the broker took.
func (b *Broadcaster) Flush(ctx context.Context) (int, error) {
	sent := 0
	err := b.journal.ScanPending(func(rec journal.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := []byte(strconv.Itoa(rec.Instrument))
		err := b.pub.Send(ctx, key, rec.Payload)
		b.observe(err)
		if err != nil {
			if markErr := b.journal.MarkFailed(rec.Seq); markErr != nil {
				return errors.CombineErrors(err, markErr)
			}
			return errors.Wrapf(err, "publish trade %d (attempt %d)", rec.Seq, rec.Retries+1)
		}

		if err := b.journal.Ack(rec.Seq); err != nil {
			return err
		}
		sent++
		return nil
	})
	return sent, err
}

func (b *Broadcaster) observe(err error) {
	if b.observer != nil {
		b.observer.ObservePublish(err)
	}
}

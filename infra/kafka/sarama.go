package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"
)

// SaramaProducer publishes with IBM/sarama's synchronous producer.
type SaramaProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSaramaProducer(brokers []string, topic string) (*SaramaProducer, error) {
	producer, err := sarama.NewSyncProducer(brokers, SaramaConfig())
	if err != nil {
		return nil, errors.Wrap(err, "sarama: new producer")
	}
	return &SaramaProducer{producer: producer, topic: topic}, nil
}

// SaramaConfig waits for all in-sync replicas and hashes keys to
// partitions, so one instrument's trades stay on one partition in order.
func SaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Idempotent = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// Send ignores ctx: SyncProducer has no per-call cancellation.
func (p *SaramaProducer) Send(_ context.Context, key, value []byte) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	return errors.Wrap(err, "sarama: send")
}

func (p *SaramaProducer) Close() error {
	return p.producer.Close()
}

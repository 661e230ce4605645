package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaramaConfigValid(t *testing.T) {
	cfg := SaramaConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Idempotent)
}

func TestProducerTargetsTopic(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "trades")
	defer p.Close()
	assert.Equal(t, "trades", p.writer.Topic)
	assert.Equal(t, "localhost:9092", p.writer.Addr.String())
}

func TestSaramaProducerSendsKeyedMessage(t *testing.T) {
	mock := mocks.NewSyncProducer(t, SaramaConfig())
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "3" || msg.Topic != "trades" {
			return errors.Newf("unexpected message %s/%s", msg.Topic, key)
		}
		return nil
	})
	mock.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	p := &SaramaProducer{producer: mock, topic: "trades"}
	require.NoError(t, p.Send(context.Background(), []byte("3"), []byte("payload")))

	err := p.Send(context.Background(), []byte("3"), []byte("payload"))
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	require.NoError(t, p.Close())
}

package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Instruments)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, 16, cfg.FeedShards)
	assert.Equal(t, "./journal", cfg.Journal.Dir)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, KafkaGo, cfg.Kafka.Client)
	assert.Equal(t, 250*time.Millisecond, cfg.Kafka.BroadcastInterval)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRADEBOOK_INSTRUMENTS", "64")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_CLIENT", "sarama")
	t.Setenv("BROADCAST_INTERVAL", "1s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Instruments)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, Sarama, cfg.Kafka.Client)
	assert.Equal(t, time.Second, cfg.Kafka.BroadcastInterval)
	assert.Equal(t, 2, cfg.Redis.DB)

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"TRADEBOOK_INSTRUMENTS": "0",
		"FEED_SHARDS":           "many",
		"BROADCAST_INTERVAL":    "-1s",
		"KAFKA_CLIENT":          "franz",
		"REDIS_DB":              "x",
		"LOG_LEVEL":             "loud",
		"LOG_FORMAT":            "xml",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultInstruments       = 1024
	defaultGRPCAddr          = ":50051"
	defaultMetricsAddr       = ":9090"
	defaultFeedShards        = 16
	defaultJournalDir        = "./journal"
	defaultKafkaTopic        = "trades"
	defaultKafkaClient       = KafkaGo
	defaultBroadcastInterval = 250 * time.Millisecond
	defaultRedisDB           = 0
	defaultLogLevel          = "info"
	defaultLogFormat         = "json"
)

const (
	KafkaGo = "kafka-go"
	Sarama  = "sarama"
)

// Config keeps the runtime configuration of the engine process.
type Config struct {
	Instruments int
	GRPCAddr    string
	MetricsAddr string
	FeedShards  int
	Journal     JournalConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Log         LogConfig
}

// JournalConfig locates the pebble trade outbox.
type JournalConfig struct {
	Dir string
}

// KafkaConfig enables trade publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Client            string
	BroadcastInterval time.Duration
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// RedisConfig enables the last-trade cache when Addr is non-empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file, then builds Config from the
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	instruments, err := getInt("TRADEBOOK_INSTRUMENTS", defaultInstruments)
	if err != nil {
		return nil, err
	}
	if instruments <= 0 {
		return nil, errors.Newf("TRADEBOOK_INSTRUMENTS must be positive, got %d", instruments)
	}

	shards, err := getInt("FEED_SHARDS", defaultFeedShards)
	if err != nil {
		return nil, err
	}
	if shards <= 0 {
		return nil, errors.Newf("FEED_SHARDS must be positive, got %d", shards)
	}

	interval, err := getDuration("BROADCAST_INTERVAL", defaultBroadcastInterval)
	if err != nil {
		return nil, err
	}

	client := getString("KAFKA_CLIENT", defaultKafkaClient)
	if client != KafkaGo && client != Sarama {
		return nil, errors.Newf("KAFKA_CLIENT must be %q or %q, got %q", KafkaGo, Sarama, client)
	}

	redisDB, err := getInt("REDIS_DB", defaultRedisDB)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Instruments: instruments,
		GRPCAddr:    getString("GRPC_ADDR", defaultGRPCAddr),
		MetricsAddr: getString("METRICS_ADDR", defaultMetricsAddr),
		FeedShards:  shards,
		Journal:     JournalConfig{Dir: getString("JOURNAL_DIR", defaultJournalDir)},
		Kafka: KafkaConfig{
			Brokers:           getList("KAFKA_BROKERS"),
			Topic:             getString("KAFKA_TOPIC", defaultKafkaTopic),
			Client:            client,
			BroadcastInterval: interval,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Log: LogConfig{
			Level:  getString("LOG_LEVEL", defaultLogLevel),
			Format: getString("LOG_FORMAT", defaultLogFormat),
		},
	}

	if _, err := cfg.NewLogger(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the process logger from LogConfig.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "parse LOG_LEVEL")
	}

	logger := logrus.New()
	logger.SetLevel(level)
	switch c.Log.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Newf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return logger, nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to duration: %w", key, value, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, parsed)
	}
	return parsed, nil
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"tradebook/api/grpcserver"
	"tradebook/config"
	"tradebook/domain/orderbook"
	"tradebook/infra/cache"
	"tradebook/infra/journal"
	"tradebook/infra/kafka"
	"tradebook/infra/metrics"
	"tradebook/jobs/broadcaster"
	"tradebook/jobs/tradefeed"
	"tradebook/service"
)

const (
	cacheTimeout    = time.Second
	shutdownTimeout = 10 * time.Second
)

type publisher interface {
	broadcaster.Publisher
	Close() error
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		logrus.WithError(err).Fatal("failed to build logger")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("engine stopped with error")
	}
	logger.Info("engine stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	m := metrics.New()

	// ---------------- Trade journal ----------------

	j, err := journal.Open(cfg.Journal.Dir)
	if err != nil {
		return err
	}
	defer j.Close()

	if n, err := j.Pending(); err == nil && n > 0 {
		logger.WithField("pending", n).Info("journal has unpublished trades")
	}

	// ---------------- Trade handlers ----------------

	handlers := []tradefeed.Handler{service.ConsoleHandler(logger), service.JournalHandler(j)}

	var lastTrades *cache.LastTrade

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return errors.Wrapf(err, "connect to redis %s", cfg.Redis.Addr)
		}
		defer rdb.Close()
		lastTrades = cache.NewLastTrade(rdb)
		handlers = append(handlers, service.CacheHandler(lastTrades, cacheTimeout))
	}

	feed := tradefeed.New(cfg.FeedShards, logger, handlers...)
	feed.Start(context.Background())

	// ---------------- Domain ----------------

	book := orderbook.NewOrderBook(cfg.Instruments, orderbook.WithSink(feed))
	svc := service.NewOrderService(book, m, logger)
	if lastTrades != nil {
		svc.WithLastTrades(lastTrades)
	}

	// ---------------- Broadcaster ----------------

	var bc *broadcaster.Broadcaster
	if cfg.Kafka.Enabled() {
		pub, err := newPublisher(cfg.Kafka)
		if err != nil {
			return err
		}
		defer pub.Close()
		bc = broadcaster.New(j, pub, cfg.Kafka.BroadcastInterval, logger).WithObserver(m)
	}

	// ---------------- Servers ----------------

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", cfg.GRPCAddr)
	}
	grpcSrv := grpc.NewServer(grpcserver.NewServerOptions(logger)...)
	grpcserver.Register(grpcSrv, grpcserver.NewServer(svc))

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithFields(logrus.Fields{"addr": cfg.GRPCAddr, "instruments": svc.Instruments()}).Info("gRPC server listening")
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		logger.WithField("addr", cfg.MetricsAddr).Info("metrics server listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "metrics server")
		}
		return nil
	})
	if bc != nil {
		g.Go(func() error { return bc.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		grpcSrv.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// No submissions are running now; drain the feed into the journal and
	// push what the broker will still take.
	feed.Close()
	if bc != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if n, ferr := bc.Flush(flushCtx); ferr != nil {
			logger.WithError(ferr).WithField("sent", n).Warn("final publish pass incomplete")
		}
	}
	return err
}

func newPublisher(cfg config.KafkaConfig) (publisher, error) {
	switch cfg.Client {
	case config.Sarama:
		return kafka.NewSaramaProducer(cfg.Brokers, cfg.Topic)
	default:
		return kafka.NewProducer(cfg.Brokers, cfg.Topic), nil
	}
}

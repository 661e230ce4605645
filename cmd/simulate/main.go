package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"tradebook/api/grpcserver"
	"tradebook/jobs/tradefeed"
	"tradebook/service"
	"tradebook/simulator"
)

func main() {
	def := simulator.DefaultConfig()

	app := &cli.App{
		Name:  "simulate",
		Usage: "send random limit orders to a matching engine",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "producers", Aliases: []string{"p"}, Value: def.Producers, Usage: "concurrent order producers"},
			&cli.IntFlag{Name: "orders", Aliases: []string{"n"}, Value: def.OrdersPerProducer, Usage: "orders per producer"},
			&cli.IntFlag{Name: "instruments", Value: def.Instruments, Usage: "instrument ids drawn from [0, instruments)"},
			&cli.Int64Flag{Name: "min-price", Value: def.MinPrice},
			&cli.Int64Flag{Name: "max-price", Value: def.MaxPrice},
			&cli.Int64Flag{Name: "max-qty", Value: def.MaxQuantity},
			&cli.DurationFlag{Name: "pause", Value: def.Pause, Usage: "pause between orders of one producer"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 picks one from the clock"},
			&cli.StringFlag{Name: "target", EnvVars: []string{"TRADEBOOK_TARGET"}, Usage: "gRPC address of a running engine; empty runs an engine in process"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every trade"},
		},
		Action: simulate,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func simulate(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if c.Bool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := simulator.Config{
		Producers:         c.Int("producers"),
		OrdersPerProducer: c.Int("orders"),
		Instruments:       c.Int("instruments"),
		MinPrice:          c.Int64("min-price"),
		MaxPrice:          c.Int64("max-price"),
		MaxQuantity:       c.Int64("max-qty"),
		Pause:             c.Duration("pause"),
		Seed:              c.Uint64("seed"),
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	var sub simulator.Submitter
	if target := c.String("target"); target != "" {
		conn, err := grpcserver.Dial(target)
		if err != nil {
			return err
		}
		defer conn.Close()
		sub = simulator.Remote(grpcserver.NewClient(conn))
		log.WithField("target", target).Info("simulating against remote engine")
	} else {
		var handlers []tradefeed.Handler
		if c.Bool("verbose") {
			handlers = append(handlers, service.ConsoleHandler(log))
		}
		local, stop := simulator.InProcess(cfg.Instruments, log, handlers...)
		defer stop()
		sub = local
	}

	sum, err := simulator.Run(ctx, cfg, sub, log)
	if err != nil {
		return err
	}
	fmt.Printf("Trading session completed: %d orders, %d rejected, %d trades in %s\n",
		sum.Orders, sum.Rejected, sum.Trades, sum.Elapsed.Round(time.Millisecond))
	return nil
}

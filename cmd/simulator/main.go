// cmd/simulator/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/javajoker/fifo-inventory/internal/config"
	"github.com/javajoker/fifo-inventory/internal/simulator"
)

const (
	modeHTTP  = "http"
	modeKafka = "kafka"
)

func main() {
	app := &cli.App{
		Name:  "simulator",
		Usage: "publish purchase and sale events to the FIFO inventory service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Value:   modeHTTP,
				Usage:   "transport to publish on: http or kafka",
				EnvVars: []string{"SIMULATOR_MODE"},
			},
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:8080",
				Usage:   "base URL of the inventory API (http mode)",
				EnvVars: []string{"SIMULATOR_URL"},
			},
			&cli.StringFlag{
				Name:    "username",
				Usage:   "operator username; when set the simulator logs in first (http mode)",
				EnvVars: []string{"AUTH_USERNAME"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "operator password (http mode)",
				EnvVars: []string{"AUTH_PASSWORD"},
			},
			&cli.StringSliceFlag{
				Name:    "brokers",
				Value:   cli.NewStringSlice("localhost:9092"),
				Usage:   "Kafka brokers (kafka mode)",
				EnvVars: []string{"KAFKA_BROKERS"},
			},
			&cli.StringFlag{
				Name:    "topic",
				Value:   "inventory-events",
				Usage:   "Kafka topic (kafka mode)",
				EnvVars: []string{"KAFKA_TOPIC"},
			},
			&cli.StringSliceFlag{
				Name:    "products",
				Value:   cli.NewStringSlice(simulator.DefaultProducts...),
				Usage:   "product ids to pick from",
				EnvVars: []string{"SIMULATOR_PRODUCTS"},
			},
			&cli.IntFlag{
				Name:  "count",
				Value: 10,
				Usage: "number of random events",
			},
			&cli.BoolFlag{
				Name:  "scripted",
				Usage: "send the fixed demo sequence instead of random events",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: 2 * time.Second,
				Usage: "pause between events of one worker",
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: 1,
				Usage: "publish different products in parallel",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "random seed; 0 picks one from the clock",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
				Usage: "HTTP request timeout",
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "log as JSON",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("Simulator failed")
	}
}

func run(c *cli.Context) error {
	logger := logrus.StandardLogger()
	if c.Bool("json-logs") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, err := newPublisher(ctx, c)
	if err != nil {
		return err
	}
	defer publisher.Close()

	seed := c.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runner := simulator.NewRunner(
		simulator.NewGenerator(c.StringSlice("products"), seed),
		publisher,
		logger.WithFields(logrus.Fields{
			"service": config.ServiceName + "-simulator",
			"mode":    c.String("mode"),
		}),
	)

	summary, err := runner.Run(ctx, simulator.RunOptions{
		Count:    c.Int("count"),
		Scripted: c.Bool("scripted"),
		Interval: c.Duration("interval"),
		Workers:  c.Int("workers"),
	})
	logger.WithFields(logrus.Fields{
		"sent":     summary.Sent,
		"rejected": summary.Rejected,
	}).Info("Simulation finished")
	return err
}

func newPublisher(ctx context.Context, c *cli.Context) (simulator.Publisher, error) {
	switch c.String("mode") {
	case modeHTTP:
		publisher := simulator.NewHTTPPublisher(c.String("url"), c.Duration("timeout"))
		if username := c.String("username"); username != "" {
			if err := publisher.Login(ctx, username, c.String("password")); err != nil {
				return nil, err
			}
		}
		return publisher, nil
	case modeKafka:
		return simulator.NewKafkaPublisher(c.StringSlice("brokers"), c.String("topic")), nil
	default:
		return nil, fmt.Errorf("unknown mode %q: want %s or %s", c.String("mode"), modeHTTP, modeKafka)
	}
}

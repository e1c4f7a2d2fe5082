// internal/simulator/runner.go
package simulator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/javajoker/fifo-inventory/internal/models"
)

type RunOptions struct {
	// Count is the number of random events; ignored when Scripted is set.
	Count    int
	Scripted bool
	Interval time.Duration
	// Workers above one publish different products in parallel. Events of
	// one product always go out in generation order.
	Workers int
}

type Summary struct {
	Sent     int `json:"sent"`
	Rejected int `json:"rejected"`
}

type Runner struct {
	generator *Generator
	publisher Publisher
	logger    logrus.FieldLogger
}

func NewRunner(generator *Generator, publisher Publisher, logger logrus.FieldLogger) *Runner {
	return &Runner{
		generator: generator,
		publisher: publisher,
		logger:    logger,
	}
}

func (r *Runner) Events(opts RunOptions) []models.RawEvent {
	if opts.Scripted {
		return r.generator.Script()
	}

	events := make([]models.RawEvent, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		events = append(events, r.generator.Random())
	}
	return events
}

// Run publishes the events opts describes. Rejected events are logged and
// counted; any other publish error stops the run.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	events := r.Events(opts)

	var mu sync.Mutex
	var summary Summary

	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 1 {
		g.SetLimit(opts.Workers)
	}

	for _, batch := range partition(events, opts.Workers > 1) {
		batch := batch
		g.Go(func() error {
			for i, raw := range batch {
				if i > 0 && opts.Interval > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(opts.Interval):
					}
				}

				fields := logrus.Fields{
					"product_id": raw.ProductID,
					"event_type": raw.EventType,
					"quantity":   *raw.Quantity,
				}

				err := r.publisher.Publish(ctx, raw)
				var rejected *RejectedError
				switch {
				case err == nil:
					r.logger.WithFields(fields).Info("Event sent")
				case errors.As(err, &rejected):
					r.logger.WithFields(fields).WithError(err).Warn("Event rejected")
				default:
					return err
				}

				mu.Lock()
				summary.Sent++
				if rejected != nil {
					summary.Rejected++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	return summary, err
}

// partition splits events into per-product runs when byProduct is set,
// keeping each product's order; otherwise it returns one run.
func partition(events []models.RawEvent, byProduct bool) [][]models.RawEvent {
	if !byProduct {
		return [][]models.RawEvent{events}
	}

	index := make(map[string]int)
	var runs [][]models.RawEvent
	for _, raw := range events {
		i, exists := index[raw.ProductID]
		if !exists {
			i = len(runs)
			index[raw.ProductID] = i
			runs = append(runs, nil)
		}
		runs[i] = append(runs[i], raw)
	}
	return runs
}

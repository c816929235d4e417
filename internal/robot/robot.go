// Package robot drives one run of the quality-control robot: it populates the
// work queue of a process and then notifies for every queued item.
package robot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kvcheck/internal/notify"
	"kvcheck/internal/platform/config"
	"kvcheck/internal/platform/metrics"
	"kvcheck/internal/queue"
	"kvcheck/pkg/platform/sentinel"
)

// ErrTooManyFailures aborts a run after MaxRetryCount consecutive item
// failures when FailOnTooManyErrors is set.
var ErrTooManyFailures = errors.New("too many consecutive failures")

// Populator fills the queue partition of a check.
type Populator interface {
	Populate(ctx context.Context, name string) (queue.Result, error)
}

// Dispatcher hands a work item to its notification worker.
type Dispatcher interface {
	Refresh(ctx context.Context) error
	Dispatch(ctx context.Context, req notify.Request, item *queue.WorkItem) error
}

// Summary reports what a run did.
type Summary struct {
	Process   string
	Partition string
	Queued    int
	Skipped   int
	Processed int
	Failed    int
	// Stopped is set when the run ended early on consecutive failures.
	Stopped bool
}

// Robot runs the populate and process stages of one process.
type Robot struct {
	populator  Populator
	dispatcher Dispatcher
	queue      queue.Queue
	cfg        config.RobotConfig
	queueName  string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Robot.
type Option func(*Robot)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Robot) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Robot) {
		r.metrics = m
	}
}

// WithQueueName overrides the queue name prefix of the partitions.
func WithQueueName(name string) Option {
	return func(r *Robot) {
		r.queueName = name
	}
}

// New creates a Robot. Zero limits in cfg fall back to the defaults.
func New(p Populator, d Dispatcher, q queue.Queue, cfg config.RobotConfig, opts ...Option) *Robot {
	if cfg.MaxRetryCount <= 0 {
		cfg.MaxRetryCount = config.DefaultMaxRetryCount
	}
	if cfg.MaxTaskCount <= 0 {
		cfg.MaxTaskCount = config.DefaultMaxTaskCount
	}
	r := &Robot{
		populator:  p,
		dispatcher: d,
		queue:      q,
		cfg:        cfg,
		queueName:  config.DefaultQueueName,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize populates the queue partition of req.Process.
func (r *Robot) Initialize(ctx context.Context, req notify.Request) (queue.Result, error) {
	r.logger.InfoContext(ctx, "initializing", "process", req.Process)
	res, err := r.populator.Populate(ctx, req.Process)
	if err != nil {
		return res, fmt.Errorf("populate queue: %w", err)
	}
	return res, nil
}

// Process consumes up to MaxTaskCount items from the partition of
// req.Process. A failed item is marked failed and the loop moves on, unless
// MaxRetryCount items fail in a row.
func (r *Robot) Process(ctx context.Context, req notify.Request) (Summary, error) {
	sum := Summary{Process: req.Process, Partition: queue.Partition(r.queueName, req.Process)}

	if err := r.dispatcher.Refresh(ctx); err != nil {
		if req.NotificationType == "" {
			return sum, fmt.Errorf("load control table: %w", err)
		}
		r.logger.WarnContext(ctx, "control table unavailable", "process", req.Process, "error", err)
	}

	consecutive := 0
	for sum.Processed+sum.Failed < r.cfg.MaxTaskCount {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		item, err := r.queue.Next(ctx, sum.Partition)
		if errors.Is(err, sentinel.ErrEmpty) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("fetch work item: %w", err)
		}

		if err := r.handle(ctx, req, item); err != nil {
			sum.Failed++
			consecutive++
			if consecutive >= r.cfg.MaxRetryCount {
				sum.Stopped = true
				r.logger.ErrorContext(ctx, "stopping after consecutive failures",
					"process", req.Process,
					"failures", consecutive,
				)
				if r.cfg.FailOnTooManyErrors {
					return sum, fmt.Errorf("%w: %d in %s: %w", ErrTooManyFailures, consecutive, sum.Partition, err)
				}
				break
			}
			continue
		}
		sum.Processed++
		consecutive = 0
	}

	r.logger.InfoContext(ctx, "processing finished",
		"process", req.Process,
		"processed", sum.Processed,
		"failed", sum.Failed,
	)
	return sum, nil
}

// handle dispatches one item and records its outcome in the queue. A queue
// that cannot record the outcome counts as a failed item.
func (r *Robot) handle(ctx context.Context, req notify.Request, item *queue.WorkItem) error {
	dispatchErr := r.dispatcher.Dispatch(ctx, req, item)
	if dispatchErr == nil {
		r.metrics.IncrementProcessed(req.Process, string(queue.StatusDone))
		if err := r.queue.Complete(ctx, item); err != nil {
			return fmt.Errorf("complete %s: %w", item.Reference, err)
		}
		return nil
	}

	r.metrics.IncrementProcessed(req.Process, string(queue.StatusFailed))
	r.logger.WarnContext(ctx, "work item failed",
		"process", req.Process,
		"reference", item.Reference,
		"error", dispatchErr,
	)
	if err := r.queue.Fail(ctx, item, dispatchErr.Error()); err != nil {
		return fmt.Errorf("fail %s: %w", item.Reference, errors.Join(dispatchErr, err))
	}
	return dispatchErr
}

// Run initializes and then processes req.Process.
func (r *Robot) Run(ctx context.Context, req notify.Request) (Summary, error) {
	res, err := r.Initialize(ctx, req)
	if err != nil {
		return Summary{Process: req.Process, Partition: res.Partition}, err
	}

	sum, err := r.Process(ctx, req)
	sum.Queued, sum.Skipped = res.Created, res.Skipped
	return sum, err
}

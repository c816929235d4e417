package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"kvcheck/internal/checks"
	"kvcheck/internal/datasource"
	"kvcheck/internal/platform/config"
	"kvcheck/internal/platform/metrics"
)

// DateLayout is the DD-MM-YYYY form dates take in work item payloads.
const DateLayout = "02-01-2006"

// referenceDateLayout is the DDMMYY part of a work item reference.
const referenceDateLayout = "020106"

// Result summarizes one populate run.
type Result struct {
	Process   string
	Partition string
	Created   int
	Skipped   int
}

// Populator runs a check and turns each discrepancy into a work item.
type Populator struct {
	registry  *checks.Registry
	env       checks.Env
	queue     Queue
	queueName string
	createdBy string
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// PopulatorOption configures a Populator.
type PopulatorOption func(*Populator)

func WithQueueName(name string) PopulatorOption {
	return func(p *Populator) {
		p.queueName = name
	}
}

func WithCreatedBy(createdBy string) PopulatorOption {
	return func(p *Populator) {
		p.createdBy = createdBy
	}
}

// WithClock injects the clock used for references.
func WithClock(now func() time.Time) PopulatorOption {
	return func(p *Populator) {
		p.now = now
	}
}

func WithLogger(logger *slog.Logger) PopulatorOption {
	return func(p *Populator) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) PopulatorOption {
	return func(p *Populator) {
		p.metrics = m
	}
}

// NewPopulator creates a Populator.
func NewPopulator(registry *checks.Registry, env checks.Env, q Queue, opts ...PopulatorOption) *Populator {
	p := &Populator{
		registry:  registry,
		env:       env,
		queue:     q,
		queueName: config.DefaultQueueName,
		createdBy: config.DefaultCreatedBy,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Partition is the queue partition a check's items go to, e.g.
// "per.sdloen.KV1".
func Partition(queueName, process string) string {
	return queueName + "." + process
}

// Populate runs the named check and enqueues one work item per record.
func (p *Populator) Populate(ctx context.Context, name string) (Result, error) {
	check, err := p.registry.Lookup(name)
	if err != nil {
		return Result{}, err
	}
	process := check.Name()
	res := Result{Process: process, Partition: Partition(p.queueName, process)}

	rows, elapsed, err := checks.Execute(ctx, check, p.env)
	if err != nil {
		p.metrics.ObserveCheck(process, "error", elapsed)
		return res, fmt.Errorf("run check %s: %w", process, err)
	}
	if len(rows) == 0 {
		p.metrics.ObserveCheck(process, "empty", elapsed)
		p.logger.InfoContext(ctx, "check found no discrepancies, nothing queued", "process", process)
		return res, nil
	}
	p.metrics.ObserveCheck(process, "ok", elapsed)

	items, err := BuildItems(process, rows, p.now())
	if err != nil {
		return res, err
	}

	created, err := p.queue.BulkCreate(ctx, res.Partition, items, p.createdBy)
	if err != nil {
		return res, fmt.Errorf("enqueue %s items: %w", process, err)
	}
	res.Created = created
	res.Skipped = len(items) - created
	p.metrics.AddQueued(process, res.Created, res.Skipped)

	p.logger.InfoContext(ctx, "queued discrepancies",
		"process", process,
		"partition", res.Partition,
		"created", res.Created,
		"skipped", res.Skipped,
	)
	return res, nil
}

// BuildItems formats rows and assigns references <process>_<DDMMYY>_<n>,
// numbered from 1 in row order.
func BuildItems(process string, rows []datasource.Record, now time.Time) ([]NewItem, error) {
	day := now.Format(referenceDateLayout)
	items := make([]NewItem, 0, len(rows))
	for i, r := range rows {
		data, err := json.Marshal(FormatRecord(r))
		if err != nil {
			return nil, fmt.Errorf("encode %s record %d: %w", process, i+1, err)
		}
		items = append(items, NewItem{
			Reference: fmt.Sprintf("%s_%s_%d", process, day, i+1),
			Data:      data,
		})
	}
	return items, nil
}

// FormatRecord renders dates as DD-MM-YYYY and leaves other values alone.
func FormatRecord(r datasource.Record) datasource.Record {
	out := make(datasource.Record, len(r))
	for k, v := range r {
		switch t := v.(type) {
		case time.Time:
			out[k] = t.Format(DateLayout)
		case *time.Time:
			if t == nil {
				out[k] = nil
			} else {
				out[k] = t.Format(DateLayout)
			}
		default:
			out[k] = v
		}
	}
	return out
}

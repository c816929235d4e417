// Package notify routes work items to notification workers and renders the
// mails they send.
package notify

//go:generate mockgen -destination=mocks/mocks.go -package=mocks kvcheck/internal/notify ControlSource,Worker

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"kvcheck/internal/control"
	"kvcheck/internal/platform/metrics"
	"kvcheck/internal/queue"
	dErrors "kvcheck/pkg/domain-errors"
	pkgstrings "kvcheck/pkg/platform/strings"
)

// Request is the routing part of the process arguments.
type Request struct {
	Process              string `json:"process"`
	NotificationType     string `json:"notification_type,omitempty"`
	NotificationReceiver string `json:"notification_receiver,omitempty"`
}

// ControlSource loads the control table.
type ControlSource interface {
	Load(ctx context.Context) (control.Table, error)
}

// Router selects the worker, recipient and subject of a work item and hands
// it over.
type Router struct {
	control  ControlSource
	workers  WorkerMap
	fallback func(process string) (string, bool)
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	table  control.Table
	loaded bool
}

// RouterOption configures a Router.
type RouterOption func(*Router)

func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithFallbackSubject supplies the subject used when the control table has
// no description for a process.
func WithFallbackSubject(fn func(process string) (string, bool)) RouterOption {
	return func(r *Router) {
		r.fallback = fn
	}
}

// NewRouter creates a Router.
func NewRouter(src ControlSource, workers WorkerMap, opts ...RouterOption) *Router {
	r := &Router{
		control:  src,
		workers:  workers,
		fallback: func(string) (string, bool) { return "", false },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh replaces the cached control table with a fresh load.
func (r *Router) Refresh(ctx context.Context) error {
	table, err := r.control.Load(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.table, r.loaded = table, true
	r.mu.Unlock()
	return nil
}

// controlTable returns the cached table, loading it on first use.
func (r *Router) controlTable(ctx context.Context) (control.Table, error) {
	r.mu.Lock()
	table, loaded := r.table, r.loaded
	r.mu.Unlock()
	if loaded {
		return table, nil
	}
	if err := r.Refresh(ctx); err != nil {
		return control.Table{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table, nil
}

// Dispatch routes one work item. Without a notification type in req the
// control table row of the process decides worker and recipient; with one,
// req names both directly and the control table only supplies the subject.
func (r *Router) Dispatch(ctx context.Context, req Request, item *queue.WorkItem) error {
	ctx, span := otel.Tracer("kvcheck/notify").Start(ctx, "notify.dispatch")
	defer span.End()

	process := pkgstrings.NormalizeKey(req.Process)
	span.SetAttributes(
		attribute.String("process", process),
		attribute.String("work_item.reference", item.Reference),
	)

	job, workerType, worker, err := r.resolve(ctx, process, req)
	if err == nil {
		job.Item = item
		err = worker.Handle(ctx, job)
	}

	outcome := "sent"
	if err != nil {
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	r.metrics.IncrementNotification(process, workerType, outcome)
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "work item dispatched",
		"process", process,
		"worker", workerType,
		"recipient", job.Recipient.String(),
		"reference", item.Reference,
	)
	return nil
}

func (r *Router) resolve(ctx context.Context, process string, req Request) (Job, string, Worker, error) {
	if process == "" {
		return Job{}, "", nil, dErrors.New(dErrors.CodeConfiguration, "no process defined in process arguments")
	}
	if strings.TrimSpace(req.NotificationType) != "" {
		return r.resolveDirect(ctx, process, req)
	}

	table, err := r.controlTable(ctx)
	if err != nil {
		return Job{}, "", nil, err
	}
	entry, ok := table.Lookup(process)
	if !ok {
		return Job{}, "", nil, dErrors.Newf(dErrors.CodeConfiguration, "no control defined in control table for process %s", process)
	}
	worker, ok := r.workers.Lookup(entry.WorkerType)
	if !ok {
		return Job{}, entry.WorkerType, nil, dErrors.Newf(dErrors.CodeConfiguration, "no worker defined for worker type %q (known: %s)", entry.WorkerType, strings.Join(r.workers.Types(), ", "))
	}
	if entry.WorkerData == nil {
		return Job{}, entry.WorkerType, nil, dErrors.Newf(dErrors.CodeConfiguration, "no recipient configured for process %s", process)
	}
	recipient, err := ParseRecipient(*entry.WorkerData)
	if err != nil {
		return Job{}, entry.WorkerType, nil, err
	}

	subject := entry.Description
	if subject == "" {
		subject, _ = r.fallback(process)
	}
	return Job{Process: process, Subject: subject, Recipient: recipient}, entry.WorkerType, worker, nil
}

func (r *Router) resolveDirect(ctx context.Context, process string, req Request) (Job, string, Worker, error) {
	workerType := strings.TrimSpace(req.NotificationType)
	worker, ok := r.workers.Lookup(workerType)
	if !ok {
		return Job{}, workerType, nil, dErrors.Newf(dErrors.CodeConfiguration, "no worker defined for notification type %q (known: %s)", workerType, strings.Join(r.workers.Types(), ", "))
	}
	recipient, err := ParseRecipient(req.NotificationReceiver)
	if err != nil {
		return Job{}, workerType, nil, err
	}
	return Job{Process: process, Subject: r.subject(ctx, process), Recipient: recipient}, workerType, worker, nil
}

// subject prefers the control table description and falls back to the
// built-in one. An unavailable control table is not fatal here.
func (r *Router) subject(ctx context.Context, process string) string {
	table, err := r.controlTable(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "control table unavailable, using built-in subject", "process", process, "error", err)
	} else if entry, ok := table.Lookup(process); ok && entry.Description != "" {
		return entry.Description
	}
	subject, _ := r.fallback(process)
	return subject
}

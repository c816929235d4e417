package notify

import (
	"context"
	"sort"

	"kvcheck/internal/queue"
	pkgstrings "kvcheck/pkg/platform/strings"
)

// WorkerSendMail is the worker type of the mail worker in the control table.
const WorkerSendMail = "Send mail"

// Job is everything a worker needs to notify about one work item.
type Job struct {
	Process   string
	Subject   string
	Recipient Recipient
	Item      *queue.WorkItem
}

// Worker delivers one notification.
type Worker interface {
	Handle(ctx context.Context, job Job) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, job Job) error

func (f WorkerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }

// WorkerMap resolves worker types case-insensitively. It is built once and
// never mutated.
type WorkerMap struct {
	workers map[string]Worker
	names   map[string]string
}

// NewWorkerMap registers workers under their type names.
func NewWorkerMap(workers map[string]Worker) WorkerMap {
	m := WorkerMap{workers: make(map[string]Worker, len(workers)), names: make(map[string]string, len(workers))}
	for name, w := range workers {
		key := pkgstrings.NormalizeKey(name)
		m.workers[key] = w
		m.names[key] = name
	}
	return m
}

// DefaultWorkers maps the mail worker under "Send mail" and the short
// aliases "mail" and "email".
func DefaultWorkers(mail Worker) WorkerMap {
	return NewWorkerMap(map[string]Worker{
		WorkerSendMail: mail,
		"mail":         mail,
		"email":        mail,
	})
}

// Lookup returns the worker of a type.
func (m WorkerMap) Lookup(workerType string) (Worker, bool) {
	w, ok := m.workers[pkgstrings.NormalizeKey(workerType)]
	return w, ok
}

// Types lists the registered type names, sorted.
func (m WorkerMap) Types() []string {
	out := make([]string, 0, len(m.names))
	for _, n := range m.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

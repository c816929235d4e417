package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kvcheck/internal/checks"
	"kvcheck/internal/control"
	"kvcheck/internal/datasource"
	"kvcheck/internal/notify"
	"kvcheck/internal/platform/config"
	"kvcheck/internal/platform/metrics"
	platformredis "kvcheck/internal/platform/redis"
	"kvcheck/internal/queue"
	kafkastore "kvcheck/internal/queue/store/kafka"
	"kvcheck/internal/queue/store/memory"
	pgstore "kvcheck/internal/queue/store/postgres"
	redisstore "kvcheck/internal/queue/store/redis"
	"kvcheck/internal/robot"
	"kvcheck/pkg/email"
)

// app holds the wired dependencies of one invocation.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	registry *checks.Registry
	exec     *datasource.SQLExecutor
	queue    queue.Queue
	robot    *robot.Robot

	closers []func() error
}

// newApp wires sources, queue backend, control table and mail worker.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	pairs := checks.DefaultPairTable()
	a.registry = checks.NewRegistry(pairs)

	exec, err := datasource.Open(cfg.Sources.Driver, map[datasource.Target]string{
		datasource.TargetPayroll:    cfg.Sources.PayrollDSN,
		datasource.TargetMasterdata: cfg.Sources.MasterdataDSN,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.exec = exec
	a.closers = append(a.closers, exec.Close)

	q, err := a.openQueue(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.queue = q

	docs, err := openDocumentStore(cfg.Control)
	if err != nil {
		a.Close()
		return nil, err
	}

	var senderOpts []email.Option
	if cfg.Mail.Username != "" {
		senderOpts = append(senderOpts, email.WithPlainAuth(cfg.Mail.Username, cfg.Mail.Password))
	}
	sender := email.NewSMTPSender(cfg.Mail.SMTPServer, cfg.Mail.SMTPPort, senderOpts...)
	mail := notify.NewMailWorker(sender, cfg.Mail.Sender, notify.NewRenderer(pairs), notify.WithMailLogger(logger))

	router := notify.NewRouter(
		control.NewResolver(docs, cfg.Control.FileName, control.WithLogger(logger)),
		notify.DefaultWorkers(mail),
		notify.WithLogger(logger),
		notify.WithMetrics(a.metrics),
		notify.WithFallbackSubject(a.description),
	)

	loc := cfg.Robot.Location
	if loc == nil {
		loc = time.Local
	}
	populator := queue.NewPopulator(a.registry, checks.NewEnv(exec, logger), q,
		queue.WithQueueName(cfg.Queue.Name),
		queue.WithCreatedBy(cfg.Robot.CreatedBy),
		queue.WithClock(func() time.Time { return time.Now().In(loc) }),
		queue.WithLogger(logger),
		queue.WithMetrics(a.metrics),
	)

	a.robot = robot.New(populator, router, q, cfg.Robot,
		robot.WithQueueName(cfg.Queue.Name),
		robot.WithLogger(logger),
		robot.WithMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) openQueue(ctx context.Context) (queue.Queue, error) {
	switch a.cfg.Queue.Backend {
	case "", "memory":
		a.logger.Warn("using in-memory work queue, items do not survive the process")
		return memory.New(), nil

	case "postgres":
		db, err := pgstore.Open(ctx, a.cfg.Queue.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		store := pgstore.New(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case "redis":
		client, err := platformredis.New(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("redis queue backend requires KVCHECK_REDIS_URL")
		}
		a.closers = append(a.closers, client.Close)
		return redisstore.New(client.Client), nil

	case "kafka":
		store, err := kafkastore.New(ctx, a.cfg.Kafka, kafkastore.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		return store, nil

	default:
		return nil, fmt.Errorf("unknown queue backend %q", a.cfg.Queue.Backend)
	}
}

func openDocumentStore(cfg config.ControlConfig) (control.DocumentStore, error) {
	switch cfg.Store {
	case "dir":
		if cfg.Dir == "" {
			return nil, errors.New("dir control store requires KVCHECK_CONTROL_DIR")
		}
		return control.DirStore{Dir: cfg.Dir}, nil
	case "", "sharepoint":
		var opts []control.SharePointOption
		if cfg.BearerToken != "" {
			opts = append(opts, control.WithBearerToken(cfg.BearerToken))
		}
		return control.NewSharePointStore(cfg.SiteURL, cfg.Library, opts...)
	default:
		return nil, fmt.Errorf("unknown control store %q", cfg.Store)
	}
}

// description is the built-in subject of a process.
func (a *app) description(process string) (string, bool) {
	c, err := a.registry.Lookup(process)
	if err != nil {
		return "", false
	}
	return c.Description(), true
}

func (a *app) health(ctx context.Context) error {
	return a.exec.Ping(ctx)
}

// Close releases every opened resource in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}

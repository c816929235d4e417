package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kvcheck/internal/notify"
	"kvcheck/internal/platform/config"
	"kvcheck/internal/platform/httpserver"
	"kvcheck/internal/platform/logger"
	"kvcheck/internal/robot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
	args    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "kvcheck",
		Short:        "Payroll data-quality checks with notification of discrepancies",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file loaded before the environment")
	root.PersistentFlags().StringVar(&opts.args, "args", "", `process arguments JSON, e.g. {"process": "KV1"} (default $KVCHECK_PROCESS_ARGUMENTS)`)

	root.AddCommand(
		newPopulateCmd(opts),
		newNotifyCmd(opts),
		newRunCmd(opts),
		newWorkerCmd(opts),
		newChecksCmd(),
	)
	return root
}

// setup loads configuration, wires the app and parses the process arguments.
func setup(ctx context.Context, opts *rootOptions) (*app, notify.Request, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, notify.Request{}, fmt.Errorf("load config: %w", err)
	}
	raw := opts.args
	if raw == "" {
		raw = cfg.Robot.ProcessArguments
	}
	req, err := robot.ParseArguments(raw)
	if err != nil {
		return nil, notify.Request{}, err
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return nil, notify.Request{}, err
	}
	return a, req, nil
}

func newPopulateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "populate",
		Short: "Run the check of the process and queue its discrepancies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, req, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.robot.Initialize(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d queued, %d skipped\n", res.Partition, res.Created, res.Skipped)
			return nil
		},
	}
}

func newNotifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Send notifications for the queued items of the process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, req, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.robot.Process(cmd.Context(), req)
			printSummary(cmd, sum)
			return err
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Populate the queue and notify in one run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, req, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.robot.Run(cmd.Context(), req)
			printSummary(cmd, sum)
			return err
		},
	}
}

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Repeat runs at the poll interval and serve /metrics and /healthz",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, req, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := httpserver.New(a.cfg.MetricsAddr, httpserver.NewOpsRouter(a.metrics.Registry, a.health))
			go func() {
				a.logger.Info("serving ops endpoints", "addr", a.cfg.MetricsAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("ops server failed", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			interval := a.cfg.Robot.PollInterval
			if interval <= 0 {
				interval = time.Minute
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				sum, err := a.robot.Run(ctx, req)
				if err != nil && ctx.Err() == nil {
					a.logger.Error("run failed", "process", req.Process, "error", err)
				} else if err == nil {
					a.logger.Info("run finished",
						"process", sum.Process,
						"queued", sum.Queued,
						"processed", sum.Processed,
						"failed", sum.Failed,
					)
				}

				select {
				case <-ctx.Done():
					a.logger.Info("worker stopping")
					return nil
				case <-ticker.C:
				}
			}
		},
	}
}

func newChecksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checks",
		Short: "List the registered checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listChecks(cmd.OutOrStdout())
		},
	}
}

func printSummary(cmd *cobra.Command, sum robot.Summary) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d queued, %d skipped, %d processed, %d failed\n",
		sum.Partition, sum.Queued, sum.Skipped, sum.Processed, sum.Failed)
}

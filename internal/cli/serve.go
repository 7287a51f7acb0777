package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/rematch/internal/engine"
	"github.com/roach88/rematch/internal/worker"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Concurrency int
	NATSURL     string // overrides nats.url
	MetricsAddr string // overrides metrics.addr, "-" disables the endpoint
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run queued tasks from NATS",
		Long: `Subscribe to the task subject as a member of the worker queue group and
run every task id received. Lifecycle events are published under the
events prefix and Prometheus metrics are served on /metrics.

Example:
  rematch serve --concurrency 4
  rematch serve --nats nats://broker:4222 --metrics-addr :9464`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 1, "tasks run at once by this worker")
	cmd.Flags().StringVar(&opts.NATSURL, "nats", "", "NATS server URL, overrides nats.url")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "metrics listen address, overrides metrics.addr (\"-\" disables)")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg := opts.Config
	logger := opts.Logger

	url := cfg.NATS.URL
	if opts.NATSURL != "" {
		url = opts.NATSURL
	}
	addr := cfg.Metrics.Addr
	if opts.MetricsAddr != "" {
		addr = opts.MetricsAddr
	}

	st, err := opts.openStore()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
	}
	defer opts.closeStore(st)

	nc, err := nats.Connect(url,
		nats.Name("rematch-worker"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDispatch, "failed to connect to NATS", err, nil)
	}
	defer nc.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	runner := opts.newRunner(st,
		engine.WithMetrics(engine.NewMetrics(reg)),
		engine.WithObserver(worker.NewEventPublisher(nc, cfg.NATS.EventsPrefix, logger)),
	)
	consumer := worker.NewConsumer(nc, runner, cfg.NATS.Subject,
		worker.WithQueue(cfg.NATS.Queue),
		worker.WithConcurrency(opts.Concurrency),
		worker.WithConsumerLogger(logger),
	)

	var srv *http.Server
	if addr != "-" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Worker started on %s (subject %s, queue %s). Press Ctrl-C to stop.\n",
		url, cfg.NATS.Subject, cfg.NATS.Queue)

	runErr := consumer.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", "error", err)
		}
	}

	if runErr != nil {
		return f.Fail(ExitFailure, ErrCodeRun, "worker stopped with error", runErr, nil)
	}
	logger.Info("worker stopped gracefully")
	return nil
}

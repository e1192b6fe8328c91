package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mockharness/pkg/cli/internal/output"
	"github.com/getmockd/mockharness/pkg/config"
	"github.com/getmockd/mockharness/pkg/harness"
	"github.com/getmockd/mockharness/pkg/httputil"
	"github.com/getmockd/mockharness/pkg/logging"
	"github.com/getmockd/mockharness/pkg/metrics"
	"github.com/getmockd/mockharness/pkg/requestlog"
)

type runOptions struct {
	file        string
	addr        string
	output      string
	format      string
	logLevel    string
	logFormat   string
	maxRunTime  time.Duration
	metricsAddr string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run -f scenario.yaml",
		Short: "Serve a scenario until every response has been used",
		Long: `Serve a scenario until every response has been used.

The bound address is printed to stderr as soon as the adapter listens. When the
run ends the request journal is written to --output (stdout by default). If the
run is interrupted or exceeds --max-run-time, the requests received so far are
still written and the command fails.`,
		Example: `  # Serve on a free port and print the journal as JSON
  mockharness run -f users.yaml

  # Fixed address, YAML journal written to a file
  mockharness run -f users.yaml --addr 127.0.0.1:8080 --format yaml --output journal.yaml

  # Give up after 30 seconds and expose Prometheus metrics
  mockharness run -f users.yaml --max-run-time 30s --metrics-addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenario(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "Scenario file (YAML or JSON)")
	f.StringVar(&opts.addr, "addr", "", "Override the scenario address")
	f.StringVarP(&opts.output, "output", "o", "", "Write the journal to this file instead of stdout")
	f.StringVar(&opts.format, "format", "json", "Journal format: json or yaml")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	f.DurationVar(&opts.maxRunTime, "max-run-time", 0, "Abort the run after this long (overrides the scenario's maxRunTime)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runScenario(ctx context.Context, stdout, stderr io.Writer, opts *runOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	level, err := logging.LookupLevel(opts.logLevel)
	if err != nil {
		return err
	}
	log := logging.New(logging.Config{
		Level:  level,
		Format: logging.ParseFormat(opts.logFormat),
		Output: stderr,
	})

	s, err := config.LoadFile(opts.file)
	if err != nil {
		return err
	}
	runner, err := s.Build(config.BuildOptions{Address: opts.addr, Logger: log})
	if err != nil {
		return err
	}

	runOpts := []harness.Option{
		harness.WithOnReady(func(addr net.Addr) {
			fmt.Fprintf(stderr, "%s mock listening on %s (%d requests expected)\n", runner.Protocol(), addr, runner.Slots())
		}),
	}
	if opts.maxRunTime > 0 {
		runOpts = append(runOpts, harness.WithMaxRunTime(opts.maxRunTime))
	}
	if opts.metricsAddr != "" {
		stop, obs, err := serveMetrics(opts.metricsAddr, log)
		if err != nil {
			return err
		}
		defer stop()
		runOpts = append(runOpts, harness.WithObserver(obs))
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	journal, runErr := runner.Run(ctx, runOpts...)
	if journal != nil {
		if err := writeJournal(stdout, opts.output, format, journal); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func writeJournal(stdout io.Writer, path string, format output.Format, journal *requestlog.Journal) error {
	if path == "" {
		return output.Write(stdout, format, journal)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create journal file: %w", err)
	}
	if err := output.Write(f, format, journal); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return f.Close()
}

// serveMetrics exposes a fresh registry on addr and returns a stop function.
func serveMetrics(addr string, log *slog.Logger) (func(), *metrics.Observer, error) {
	reg := metrics.NewRegistry()
	obs, err := metrics.NewObserver(reg)
	if err != nil {
		return nil, nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := httputil.NewServer(mux, 2*time.Second, log)
	go func() {
		if err := srv.Serve(ln); err != nil {
			log.Error("metrics server failed", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())

	stop := func() {
		_ = srv.Shutdown(context.Background())
	}
	return stop, obs, nil
}

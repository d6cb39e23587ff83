package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/upstreamprobe/internal/app"
	"github.com/hamed0406/upstreamprobe/internal/config"
	"github.com/hamed0406/upstreamprobe/internal/influx"
	"github.com/hamed0406/upstreamprobe/internal/logging"
	"github.com/hamed0406/upstreamprobe/internal/metrics"
	"github.com/hamed0406/upstreamprobe/internal/notify"
	"github.com/hamed0406/upstreamprobe/internal/scheduler"
)

const (
	exitOK      = 0
	exitConfig  = 2
	exitRuntime = 3
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

type rootOptions struct {
	configPath  string
	write       bool
	interval    time.Duration
	metricsAddr string
	textfile    string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// flag parsing and usage problems
	fmt.Fprintln(stderr, "config_error:", err)
	return exitConfig
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "upstream-probe",
		Short:         "Probe DNS resolvers and HTTP endpoints and report to InfluxDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), opts, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to config YAML")
	f.BoolVar(&opts.write, "write", false, "Enable InfluxDB writes (default: dry-run)")
	f.DurationVar(&opts.interval, "interval", 0, "Repeat rounds at this interval (0 = run once)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address while looping")
	f.StringVar(&opts.textfile, "textfile", "", "Write Prometheus textfile after every round")
	_ = cmd.MarkFlagRequired("config")

	cmd.AddCommand(newValidateCmd(stdout))
	return cmd
}

func runProbe(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "config_error:", err)
		return &exitError{code: exitConfig, err: err}
	}

	logger, err := logging.NewLogger(cfg.App.LogLevel, cfg.App.LogDir)
	if err != nil {
		fmt.Fprintln(stderr, "config_error:", err)
		return &exitError{code: exitConfig, err: err}
	}
	defer func() { _ = logger.Sync() }()

	sink := notify.NewLogger(logger)
	sink.Event("startup",
		zap.String("app", cfg.App.Name),
		zap.String("vlan", cfg.App.Vlan),
		zap.Bool("write", opts.write),
		zap.Duration("interval", opts.interval),
	)

	token := config.TokenFromEnv()
	if opts.write && token == "" && opts.interval > 0 {
		sink.Event("write_skipped", zap.String("reason", "missing_influx_token"))
		return &exitError{code: exitRuntime, err: influx.ErrMissingToken}
	}

	var rec *metrics.Recorder
	if opts.metricsAddr != "" || opts.textfile != "" {
		rec = metrics.NewRecorder()
	}
	prober := app.New(cfg, app.Options{
		Write:    opts.write,
		Token:    token,
		Sink:     sink,
		Recorder: rec,
		Textfile: opts.textfile,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" && opts.interval > 0 {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           metrics.Router(rec),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			sink.Event("metrics_listen", zap.String("addr", opts.metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sink.Event("metrics_server_failed", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	loop := scheduler.NewLoop(opts.interval, prober.Round, sink)
	if err := loop.Run(ctx); err != nil {
		return &exitError{code: exitRuntime, err: err}
	}
	return nil
}

func newValidateCmd(stdout io.Writer) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file and the environment without probing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }
			warn := func(msg string) { fmt.Fprintln(stdout, "⚠", msg) }

			cfg, err := config.Load(configPath)
			if err != nil {
				for _, e := range multierr.Errors(err) {
					fmt.Fprintln(stdout, "✖", e)
				}
				return &exitError{code: exitConfig, err: err}
			}
			ok(fmt.Sprintf("config %s parsed", configPath))
			ok(fmt.Sprintf("%d dns resolvers, query %s", len(cfg.DNS.Resolvers), cfg.DNS.QueryName))
			ok(fmt.Sprintf("%d http targets, method %s", len(cfg.HTTP.Targets), cfg.HTTP.Method))
			if len(cfg.DNS.Resolvers)+len(cfg.HTTP.Targets) == 0 {
				warn("no targets configured; rounds will write nothing")
			}
			if config.TokenFromEnv() == "" {
				warn(config.TokenEnv + " is empty (--write will exit 3)")
			} else {
				ok(config.TokenEnv + " present")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config YAML")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

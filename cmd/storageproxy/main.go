package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/storageproxy/backend"
	"github.com/tailored-agentic-units/storageproxy/observability"
	"github.com/tailored-agentic-units/storageproxy/remote"
	"github.com/tailored-agentic-units/storageproxy/table"
)

const envPrefix = "STORAGEPROXY"

// exitFatal is the process exit code after the storage executor is lost.
const exitFatal = 2

type options struct {
	configFile string
	kind       string
	endpoint   string
	topic      string
	localPath  string
	maxRetry   int
	verbose    bool
	observers  []string

	// Set by setup.
	cfg      *backend.Config
	observer observability.Observer
	metrics  *prometheus.Registry
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "storageproxy",
		Short:         "Query and commit ledger table data through a storage backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to backend config file (JSON, YAML or TOML)")
	flags.StringVar(&opts.kind, "kind", "", "Backend kind: remote or local (overrides config)")
	flags.StringVar(&opts.endpoint, "endpoint", "", "Executor base URL for the remote backend (overrides config)")
	flags.StringVar(&opts.topic, "topic", "", "Executor topic (overrides config)")
	flags.StringVar(&opts.localPath, "local-path", "", "Pebble directory for the local backend (overrides config)")
	flags.IntVar(&opts.maxRetry, "max-retry", -1, "Retries after the first attempt (overrides config)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging to stderr")
	flags.StringSliceVar(&opts.observers, "observer", []string{"slog"}, "Observers receiving storage events: slog, prometheus, noop")

	rootCmd.AddCommand(newSelectCmd(&opts), newCommitCmd(&opts), newRelayCmd(&opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *options) config() (*backend.Config, error) {
	cfg := backend.DefaultConfig()
	if o.configFile != "" {
		loaded, err := backend.LoadConfig(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if err := backend.ApplyEnv(envPrefix, &cfg); err != nil {
		return nil, err
	}

	if o.kind != "" {
		cfg.Kind = o.kind
	}
	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
	}
	if o.topic != "" {
		cfg.Remote.Topic = o.topic
	}
	if o.localPath != "" {
		cfg.Local.Path = o.localPath
	}
	if o.maxRetry >= 0 {
		cfg.Remote.MaxRetry = o.maxRetry
	}
	return &cfg, nil
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setup resolves the configuration and the observers named on the command
// line. Its results are kept on o.
func (o *options) setup() error {
	cfg, err := o.config()
	if err != nil {
		return err
	}

	o.metrics = prometheus.NewRegistry()
	observability.RegisterObserver("slog", observability.NewSlogObserver(o.logger()))
	observability.RegisterObserver("prometheus", observability.NewPrometheusObserver(o.metrics))
	observer, err := observability.ResolveObservers(o.observers...)
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.observer = observer
	return nil
}

// open builds the configured backend. The returned close function releases
// it and is safe to call for backends that hold no resources.
func (o *options) open() (table.Storage, func(), error) {
	if err := o.setup(); err != nil {
		return nil, nil, err
	}
	cfg, observer := o.cfg, o.observer
	logger := o.logger()

	st, err := backend.New(cfg, backend.Deps{
		Observer: observer,
		FatalHandler: func(err *remote.FatalError) {
			logger.Error("storage executor unavailable",
				slog.String("op", err.Op),
				slog.Int("attempts", err.Attempts),
				slog.String("class", err.Class.String()),
				slog.String("error", err.Err.Error()),
			)
			os.Exit(exitFatal)
		},
	})
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	if closer, ok := st.(io.Closer); ok {
		closeFn = func() {
			if err := closer.Close(); err != nil {
				logger.Warn("close backend", slog.String("error", err.Error()))
			}
		}
	}
	return st, closeFn, nil
}

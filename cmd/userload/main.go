package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"userload/internal/config"
	"userload/internal/logsink"
	"userload/internal/metrics"
	"userload/internal/metrics/datadog"
	"userload/internal/metrics/prompush"
	"userload/internal/storage"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "userload/internal/storage/all"
)

// main loads the configuration, opens the log sink, installs the metrics
// backend and executes one run. The exit status comes from the run report.
func main() {
	os.Exit(realMain(flag.CommandLine, os.Getenv, os.Args[1:]))
}

func realMain(fs *flag.FlagSet, getenv func(string) string, args []string) int {
	validate := fs.Bool("validate", false, "validate the configuration and exit")

	cfg, err := config.LoadFromArgs(fs, getenv, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	issues := config.Validate(cfg, storage.ListKinds())
	for _, iss := range issues {
		fmt.Fprintln(os.Stderr, iss.Error())
	}
	if config.HasErrors(issues) {
		fmt.Fprintln(os.Stderr, "configuration is invalid")
		return 2
	}
	if *validate {
		fmt.Fprintln(os.Stderr, "configuration is valid")
		return 0
	}

	sink, err := logsink.Open(logsink.Options{
		Path:    cfg.Resolve(cfg.LogFile),
		Level:   cfg.LogLevel,
		Console: cfg.LogConsole,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer sink.Close()
	log := sink.Logger()

	if flush := installMetrics(cfg, log); flush != nil {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := run(ctx, cfg, log)
	return rep.ExitCode()
}

// installMetrics sets the global metrics backend named by the config and
// returns the function that flushes it at exit, or nil when metrics are off.
// A backend that fails to initialize is logged and left as a no-op.
func installMetrics(cfg *config.Config, log *zap.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "", "none":
		log.Debug("metrics disabled")
		return nil
	case "prompush":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.DatadogAddr,
			Namespace:  "userload.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
	default:
		log.Warn("unknown metrics backend; metrics disabled", zap.String("backend", cfg.Metrics.Backend))
		return nil
	}
	if err != nil {
		log.Warn("metrics backend init failed; using nop", zap.String("backend", cfg.Metrics.Backend), zap.Error(err))
		return nil
	}

	metrics.SetBackend(b)
	log.Info("metrics enabled", zap.String("backend", cfg.Metrics.Backend))
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}
}

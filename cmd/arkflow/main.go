// Command arkflow runs the streams described by a configuration
// document until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ark-flow/arkflow/internal/app"
	"github.com/ark-flow/arkflow/internal/config"
	_ "github.com/ark-flow/arkflow/internal/impl"
	"github.com/ark-flow/arkflow/internal/log"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	metricsAddr string
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "arkflow: %v\n", err)
		return exitCode
	}
	return 0
}

// exitCode is set by runE before returning its error, so main can
// distinguish a config load or component build failure (1) from one or
// more streams' Run returning an error (2).
var exitCode = 1

var rootCmd = &cobra.Command{
	Use:   "arkflow",
	Short: "ArkFlow is a configurable stream-processing engine",
	Long: `ArkFlow wires configured Input, Pipeline and Output components into
running streams, with at-least-once delivery and cooperative shutdown.`,
	RunE: runE,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to the stream configuration document (required)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "json", "log format: json, text")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve /metrics on")
	_ = rootCmd.MarkFlagRequired("config")
}

func runE(cmd *cobra.Command, args []string) error {
	logger := log.New(log.Config{Level: logLevel, Format: logFormat})

	doc, err := config.Load(configPath)
	if err != nil {
		exitCode = 1
		return fmt.Errorf("loading config: %w", err)
	}

	reg := prometheus.NewRegistry()
	streams, err := app.BuildStreams(doc, logger, reg)
	if err != nil {
		exitCode = 1
		return fmt.Errorf("building streams: %w", err)
	}

	metricsSrv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, len(streams))
	for _, s := range streams {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", s.Name, err)
			}
		}()
	}

	wg.Wait()
	close(errs)

	var failed bool
	for err := range errs {
		failed = true
		logger.Errorf("stream failed: %v", err)
	}
	if failed {
		exitCode = 2
		return fmt.Errorf("one or more streams exited with an error")
	}
	return nil
}

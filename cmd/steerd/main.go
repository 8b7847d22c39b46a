package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/steer/config"
	"github.com/angeloszaimis/steer/internal/backend"
	"github.com/angeloszaimis/steer/internal/circuitbreaker"
	"github.com/angeloszaimis/steer/internal/dispatch"
	"github.com/angeloszaimis/steer/internal/healthcheck"
	"github.com/angeloszaimis/steer/internal/httpserver"
	"github.com/angeloszaimis/steer/internal/metrics"
	"github.com/angeloszaimis/steer/pkg/logger"
	"github.com/angeloszaimis/steer/pkg/picker"
	"github.com/angeloszaimis/steer/pkg/steer"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "steerd",
	Short: "HTTP request-steering daemon",
	Long: "steerd routes each inbound HTTP request to exactly one of a fixed set of " +
		"backends, chosen by the configured policy, gated on the readiness of the " +
		"whole backend set.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		return err
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, "steerd")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	invokeTimeout, err := time.ParseDuration(cfg.Deadline.InvokeTimeout)
	if err != nil {
		log.Error("Invalid invoke timeout", slog.Any("err", err))
		return err
	}

	collector := metrics.NewCollector(1000, log)
	collector.Start(ctx)

	backends, err := initializeBackends(ctx, cfg, log, collector)
	if err != nil {
		log.Error("Failed to initialize backends", slog.Any("err", err))
		return err
	}

	handlers := make([]steer.Handler[*dispatch.Request, *dispatch.Response], len(backends))
	for i, b := range backends {
		handlers[i] = b
	}

	steerer, err := steer.New(handlers, buildPicker(log, cfg.Policy.Type))
	if err != nil {
		log.Error("Failed to create steering combinator", slog.Any("err", err))
		return err
	}

	dispatcher := dispatch.NewDispatcher(log, steerer, collector)
	go dispatcher.Run(ctx)

	frontDoor := dispatch.NewFrontDoor(log, dispatcher, invokeTimeout, collector)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(frontDoor, collector, cfg.Policy.Type))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("steerd listening",
		slog.String("address", cfg.Server.Address),
		slog.String("policy", cfg.Policy.Type),
		slog.Int("backends", len(backends)))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
		return nil
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting steering daemon", slog.Any("err", err))
			return err
		}
		return nil
	}
}

func initializeBackends(ctx context.Context, cfg *config.Config, log *slog.Logger, collector *metrics.Collector) ([]*backend.Backend, error) {
	healthCheckInterval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		return nil, err
	}

	resetTimeout, err := time.ParseDuration(cfg.Breaker.ResetTimeout)
	if err != nil {
		return nil, err
	}

	registry := circuitbreaker.NewRegistry(cfg.Breaker.FailureThreshold, resetTimeout)
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	var backends []*backend.Backend

	for _, bc := range cfg.Backends {
		u, err := url.Parse(bc.URL)
		if err != nil {
			log.Error("Failed to parse URL",
				slog.String("url", bc.URL),
				slog.String("error", err.Error()))
			continue
		}

		b := backend.New(u, bc.Capacity, registry.GetBreaker(bc.URL), client)
		backends = append(backends, b)
		go healthcheck.HealthCheck(ctx, b, healthCheckInterval, log, collector)
	}

	if len(backends) == 0 {
		return nil, os.ErrInvalid
	}

	return backends, nil
}

func buildPicker(log *slog.Logger, policyType string) steer.Picker[*dispatch.Request, *dispatch.Response] {
	switch policyType {
	case config.PolicyRandom:
		return picker.Random[*dispatch.Request, *dispatch.Response]()
	case config.PolicyIPHash:
		return picker.Hash[*dispatch.Request, *dispatch.Response](func(req *dispatch.Request) string {
			return req.ClientIP
		})
	case config.PolicyRoundRobin:
		return picker.RoundRobin[*dispatch.Request, *dispatch.Response]()
	default:
		log.Warn("Unknown policy, defaulting to round-robin", slog.String("requested", policyType))
		return picker.RoundRobin[*dispatch.Request, *dispatch.Response]()
	}
}

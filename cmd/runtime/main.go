// Package main runs the service runtime daemon: it loads the manifest,
// registers the configured services, brings them up in dependency
// order, and serves the control API until a shutdown signal arrives.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/R3E-Network/service_runtime/api"
	"github.com/R3E-Network/service_runtime/internal/config"
	"github.com/R3E-Network/service_runtime/internal/engine/monitor"
	"github.com/R3E-Network/service_runtime/orchestrator"
	"github.com/R3E-Network/service_runtime/pkg/logger"
	"github.com/R3E-Network/service_runtime/service"
)

func main() {
	// Parse flags
	addr := flag.String("addr", "", "API listen address (overrides config)")
	configPath := flag.String("config", "", "Path to runtime config file")
	failFast := flag.Bool("fail-fast", false, "Abort startup on the first init failure")
	flag.Parse()

	// Environment variable overrides
	if v := os.Getenv("RUNTIME_ADDR"); v != "" {
		*addr = v
	}
	if v := os.Getenv("RUNTIME_CONFIG"); v != "" {
		*configPath = v
	}
	if os.Getenv("RUNTIME_FAIL_FAST") == "true" {
		*failFast = true
	}

	cfg := config.LoadOrDefault()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Runtime.ListenAddr = *addr
	}
	if *failFast {
		cfg.Runtime.FailFast = true
	}

	lg := logger.New(cfg.Logging).WithField("component", "runtime")

	orch := orchestrator.New(orchestrator.Config{
		Logger:           lg,
		MetricsNamespace: cfg.Runtime.MetricsNamespace,
		FailFast:         cfg.Runtime.FailFast,
		EventBufferSize:  cfg.Runtime.EventBufferSize,
	})

	for _, reg := range builtinServices() {
		reg, enabled := cfg.ServiceFor(reg.Type).Apply(reg)
		if !enabled {
			lg.WithField("service", reg.Type).Info("service disabled by config")
			continue
		}
		if err := orch.Register(reg); err != nil {
			log.Fatalf("Failed to register %s: %v", reg.Type, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report, err := orch.InitializeAll(ctx)
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	if report.Failed > 0 {
		lg.WithField("failed", report.Failed).Warn("runtime started degraded")
	}

	var mon *monitor.Monitor
	if cfg.Runtime.HealthInterval > 0 {
		mon, err = monitor.New(monitor.Config{
			Interval: cfg.Runtime.HealthInterval.Std(),
			Manager:  orch.Manager(),
			Logger:   lg.WithField("component", "monitor"),
			Events:   orch.Events(),
			Metrics:  orch.Metrics(),
		})
		if err != nil {
			log.Fatalf("Failed to create health monitor: %v", err)
		}
		if err := mon.Start(); err != nil {
			log.Fatalf("Failed to start health monitor: %v", err)
		}
	}

	server := api.New(cfg.Runtime.ListenAddr, orch, lg.WithField("component", "api"))
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	lg.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		lg.WithError(err).Warn("api server shutdown error")
	}
	if mon != nil {
		mon.Stop()
	}

	shutdown := orch.ShutdownAll(shutdownCtx)
	if shutdown.Faults > 0 {
		lg.WithField("faults", shutdown.Faults).Warn("shutdown completed with faults")
	}
	lg.Info("runtime stopped")
}

// builtinServices returns the registrations compiled into this binary.
// Deployments layer their own services on top via the orchestrator API.
func builtinServices() []service.Registration {
	return []service.Registration{
		{
			Type:                "eventstore",
			Factory:             newEventStore,
			Priority:            80,
			SupportsHealthCheck: true,
			SupportsRestart:     true,
		},
		{
			Type:                "scheduler",
			Factory:             newScheduler,
			Requires:            []string{"eventstore"},
			Priority:            50,
			SupportsHealthCheck: true,
			SupportsRestart:     true,
		},
		{
			Type:     "reporter",
			Factory:  newReporter,
			Requires: []string{"eventstore"},
			Optional: []string{"scheduler"},
			Priority: 20,
		},
	}
}

// CLADC orchestrator: subscribes the Coordinator to the learning bus,
// runs its periodic loops, and fronts every component with the Control
// API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"github.com/codeready-toolchain/cladc/internal/bus"
	"github.com/codeready-toolchain/cladc/internal/capability"
	"github.com/codeready-toolchain/cladc/internal/config"
	"github.com/codeready-toolchain/cladc/internal/controlapi"
	"github.com/codeready-toolchain/cladc/internal/coordinator"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/expbuffer"
	"github.com/codeready-toolchain/cladc/internal/improvement"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
	"github.com/codeready-toolchain/cladc/internal/notify"
	"github.com/codeready-toolchain/cladc/internal/persistence"
	"github.com/codeready-toolchain/cladc/internal/reporting"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// alwaysConnectedDialer stands in for a real broker dial; the concrete
// Kafka/AMQP client lives outside this package's scope.
func alwaysConnectedDialer(context.Context) error { return nil }

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	store, err := persistence.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to initialize persistence layer: %v", err)
	}

	adapter := bus.NewAdapter(bus.DefaultRoutingTable(), alwaysConnectedDialer, alwaysConnectedDialer)

	events := eventstore.New(cfg.MaxEvents, nil)
	sim := capability.NewSimulated()
	buffer := expbuffer.New(sim, cfg.MaxBufferSize, cfg.BatchSize)
	models := modelregistry.New(cfg.MaxModelVersions, adapter)
	pipeline := improvement.New(models, sim, improvement.Config{
		TestDeployPassRate:       cfg.TestDeployPassRate,
		PerformanceThreshold:     cfg.PerformanceThreshold,
		MaxConcurrentTasks:       cfg.MaxConcurrentTasks,
		BackupBeforeUpdate:       cfg.BackupBeforeUpdate,
		ValidationMinPerformance: cfg.ValidationMinPerformance,
	})

	meter := otel.Meter("cladc")
	metrics, err := monitoring.NewCollector(meter)
	if err != nil {
		log.Fatalf("failed to initialize metrics collector: %v", err)
	}
	alerts := monitoring.NewAlertBook(
		monitoring.Thresholds{
			CPUUsage:       cfg.AlertThresholds.CPUUsage,
			MemoryUsage:    cfg.AlertThresholds.MemoryUsage,
			ErrorRate:      cfg.AlertThresholds.ErrorRate,
			ThroughputDrop: cfg.AlertThresholds.ThroughputDrop,
			ResponseTime:   cfg.AlertThresholds.ResponseTime,
		},
		monitoring.EscalationTimeouts{
			Critical: cfg.EscalationRules.Critical.Timeout,
			High:     cfg.EscalationRules.High.Timeout,
			Medium:   cfg.EscalationRules.Medium.Timeout,
		},
	)
	incidents := monitoring.NewIncidentBook(3)

	reports := reporting.New(events, models, metrics, alerts, incidents, adapter, cfg.MaxReportHistory)
	schedule := reporting.NewScheduler(reporting.DefaultSlots())
	docs := reporting.NewDocStore()

	// notifier is nil (disabled) unless both SLACK_TOKEN and SLACK_CHANNEL
	// are set; escalation delivery degrades gracefully without them.
	notifier := notify.NewEscalationNotifier(getEnv("SLACK_TOKEN", ""), getEnv("SLACK_CHANNEL", ""))

	coord := coordinator.New(coordinator.Deps{
		Config: cfg, Bus: adapter, Snapshots: store,
		Events: events, Buffer: buffer, Models: models, Pipeline: pipeline,
		Metrics: metrics, Alerts: alerts, Incidents: incidents,
		Reports: reports, Schedule: schedule, Docs: docs, RL: sim,
		Notifier: notifier,
	})
	if err := coord.Start(ctx); err != nil {
		log.Fatalf("failed to start coordinator: %v", err)
	}

	server := controlapi.NewServer(controlapi.Deps{
		Coordinator: coord, Bus: adapter,
		Events: events, Buffer: buffer, Models: models, Pipeline: pipeline,
		Alerts: alerts, Incidents: incidents, Reports: reports, Docs: docs,
	})

	go func() {
		slog.Info("control API listening", "port", httpPort)
		if err := server.Start(":" + httpPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("control API server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("control API shutdown error", "error", err)
	}
	coord.Stop()
}

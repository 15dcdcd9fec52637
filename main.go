// Command effectkit runs the managed side-effect execution engine as a
// standalone process: it loads configuration, wires the built-in handlers,
// serves metrics/health endpoints, and executes effect requests from an
// optional YAML workload file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"effectkit/pkg/bus"
	"effectkit/pkg/config"
	"effectkit/pkg/effect"
	"effectkit/pkg/engine"
	"effectkit/pkg/httpserv"
	"effectkit/pkg/journal"
	"effectkit/pkg/logx"
	"effectkit/pkg/metrics"
)

// requestSpec is the YAML shape of one workload entry.
type requestSpec struct {
	EffectType            string         `yaml:"effect_type"`
	OperationID           string         `yaml:"operation_id"`
	OperationData         map[string]any `yaml:"operation_data"`
	TransactionEnabled    bool           `yaml:"transaction_enabled"`
	RetryEnabled          bool           `yaml:"retry_enabled"`
	MaxRetries            int            `yaml:"max_retries"`
	RetryDelayMs          int            `yaml:"retry_delay_ms"`
	CircuitBreakerEnabled bool           `yaml:"circuit_breaker_enabled"`
	TimeoutMs             int            `yaml:"timeout_ms"`
}

func (r requestSpec) toRequest() effect.Request {
	return effect.Request{
		EffectType:            effect.Type(r.EffectType),
		OperationID:           r.OperationID,
		OperationData:         r.OperationData,
		TransactionEnabled:    r.TransactionEnabled,
		RetryEnabled:          r.RetryEnabled,
		MaxRetries:            r.MaxRetries,
		RetryDelay:            time.Duration(r.RetryDelayMs) * time.Millisecond,
		CircuitBreakerEnabled: r.CircuitBreakerEnabled,
		Timeout:               time.Duration(r.TimeoutMs) * time.Millisecond,
	}
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	requestsPath := flag.String("requests", "", "Path to YAML workload file of effect requests")
	flag.Parse()

	if err := run(*configPath, *requestsPath); err != nil {
		fmt.Fprintf(os.Stderr, "effectkit: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, requestsPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logx.SetDebug(cfg.Debug)
	logx.SetDebugDomains(cfg.DebugDomains)
	logger := logx.NewLogger("main")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var jrnl *journal.Journal
	if cfg.Journal.Enabled {
		jrnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return logx.Wrap(err, "journal open")
		}
		defer func() {
			if err := jrnl.Close(); err != nil {
				logger.Error("Journal close failed: %v", err)
			}
		}()
	}

	eventBus := bus.NewMemoryBus()
	defer eventBus.Close()

	// Log published events so the demo workload has a visible consumer.
	events := eventBus.Subscribe()
	go func() {
		for event := range events {
			logger.Info("Event published: %s", event.Type)
		}
	}()

	eng := engine.New(cfg, metrics.NewPrometheusRecorder(), jrnl)
	eng.RegisterBuiltinHandlers(eventBus)

	httpserv.New(cfg.ListenAddr, eng).Start(ctx)

	if requestsPath != "" {
		if err := runWorkload(ctx, eng, logger, requestsPath); err != nil {
			return err
		}
	} else {
		logger.Info("No workload file given; serving metrics on %s until interrupted", cfg.ListenAddr)
		<-ctx.Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	eng.Shutdown(shutdownCtx)
	return nil
}

// runWorkload executes every request in the YAML workload file in order.
func runWorkload(ctx context.Context, eng *engine.Engine, logger *logx.Logger, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read workload file %s: %w", path, err)
	}

	var specs []requestSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("failed to parse workload file %s: %w", path, err)
	}

	logger.Info("Running %d effect requests from %s", len(specs), path)
	for i, spec := range specs {
		if ctx.Err() != nil {
			logger.Warn("Workload interrupted after %d requests", i)
			break
		}

		result, err := eng.Process(ctx, spec.toRequest())
		if err != nil {
			logger.Error("Request %d (%s) failed: %v", i, spec.EffectType, err)
			continue
		}
		logger.Info("Request %d (%s) succeeded in %v (retries=%d, kind=%s)",
			i, spec.EffectType, result.ProcessingTime, result.RetryCount, result.Kind)
	}
	return nil
}

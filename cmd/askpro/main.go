// askpro MCP server entry point.
//
// Configuration is read from the YAML file named by ASKPRO_CONFIG (default
// ./askpro.yaml, optional) with environment overrides:
//
//	OPENAI_API_KEY     reasoning backend API key (required)
//	OPENAI_MODEL       reasoning model (required)
//	OPENAI_BASE_URL    reasoning base URL (default: https://api.openai.com/v1)
//	OPENAI_BACKGROUND  enqueue ask_gpt as background jobs (default: true)
//	SEARCH_API_KEY     search backend API key (required)
//	SEARCH_MODEL       search model (required)
//	SEARCH_BASE_URL    search base URL (default: https://api.openai.com/v1)
//	REQUEST_TIMEOUT    per-exchange HTTP timeout (default: 5m)
//	LOG_LEVEL          debug|info|warn|error (default: info)
//	LOG_FORMAT         json|text (default: json)
//	METRICS_ADDR       Prometheus listen address (default: disabled)
//	JOBS_DRIVER        memory|redis (default: memory)
//	REDIS_ADDR         Redis address (default: localhost:6379)
//	REDIS_PASSWORD     Redis password (default: "")
//	REDIS_DB           Redis database (default: 0)
//	JOBS_TTL           ledger entry lifetime in Redis (default: 24h)
//
// The MCP protocol is served on stdin/stdout; logs go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexcong/askpro-mcp/pkg/config"
	"github.com/alexcong/askpro-mcp/pkg/dispatch"
	"github.com/alexcong/askpro-mcp/pkg/jobs"
	"github.com/alexcong/askpro-mcp/pkg/logger"
	"github.com/alexcong/askpro-mcp/pkg/mcp"
	"github.com/alexcong/askpro-mcp/pkg/metrics"
	"github.com/alexcong/askpro-mcp/pkg/prompts"
	"github.com/alexcong/askpro-mcp/pkg/provider"
	"github.com/alexcong/askpro-mcp/pkg/tools"
)

const (
	serverName    = "askpro-mcp-server"
	serverVersion = "1.0.0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "askpro: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Named("main")
	log.Info("starting askpro MCP server", cfg.Summary()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// -------------------------------------------------------------------------
	// Backends
	// -------------------------------------------------------------------------
	reasoning, err := provider.NewReasoningClient(cfg.Reasoning.Provider())
	if err != nil {
		return err
	}
	search, err := provider.NewSearchClient(cfg.Search.Provider())
	if err != nil {
		return err
	}

	// -------------------------------------------------------------------------
	// Job ledger
	// -------------------------------------------------------------------------
	ledger, err := openLedger(ctx, cfg.Jobs, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			log.Warn("close job ledger", "error", err)
		}
	}()

	// -------------------------------------------------------------------------
	// Tools, prompts and dispatch
	// -------------------------------------------------------------------------
	toolset := tools.New(tools.Config{
		Reasoning:  reasoning,
		Search:     search,
		Ledger:     ledger,
		Background: cfg.Reasoning.BackgroundEnabled(),
	})
	handler := dispatch.NewHandler(dispatch.Config{
		Tools:          toolset.Definitions(),
		Prompts:        prompts.Catalog(),
		RequestTimeout: max(cfg.Reasoning.Timeout, cfg.Search.Timeout),
	})

	// -------------------------------------------------------------------------
	// Metrics server
	// -------------------------------------------------------------------------
	if cfg.Metrics.Address != "" {
		go func() {
			log.Info("metrics server listening", "address", cfg.Metrics.Address)
			if err := metrics.Serve(ctx, cfg.Metrics.Address); err != nil {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	// -------------------------------------------------------------------------
	// MCP on stdio
	// -------------------------------------------------------------------------
	server := mcp.NewServer(handler, mcp.ServerInfo{Name: serverName, Version: serverVersion}, nil)
	err = server.Serve(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}

	log.Info("askpro MCP server shut down")
	return nil
}

// openLedger builds the configured job ledger. An unreachable Redis falls
// back to the in-memory ledger.
func openLedger(ctx context.Context, cfg config.JobsConfig, log *slog.Logger) (jobs.Ledger, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		ledger := jobs.NewRedisLedger(jobs.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := ledger.Ping(pingCtx); err != nil {
			_ = ledger.Close()
			log.Warn("redis connection failed, using in-memory job ledger", "addr", cfg.Redis.Addr, "error", err)
			return jobs.NewMemoryLedger(0), nil
		}
		log.Info("redis job ledger enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		return ledger, nil
	case config.DriverMemory:
		return jobs.NewMemoryLedger(0), nil
	default:
		return nil, fmt.Errorf("unknown job ledger driver %q", cfg.Driver)
	}
}

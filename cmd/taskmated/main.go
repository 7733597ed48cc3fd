// Taskmated is an AI task orchestration daemon.
//
// It turns free-form problem statements into agent-executed task plans,
// tracks them through their lifecycle and serves status over HTTP.
//
// Configuration is loaded from TASKMATE_-prefixed environment variables.
// See internal/config for details.
//
// Usage:
//
//	# Start daemon with defaults
//	taskmated
//
//	# Configure via environment
//	TASKMATE_SERVER_PORT=9090 TASKMATE_AI_GOOGLE_KEY=... taskmated
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmated/internal/agents"
	"github.com/fyrsmithlabs/taskmated/internal/ai"
	"github.com/fyrsmithlabs/taskmated/internal/config"
	"github.com/fyrsmithlabs/taskmated/internal/github"
	"github.com/fyrsmithlabs/taskmated/internal/logging"
	"github.com/fyrsmithlabs/taskmated/internal/memory"
	"github.com/fyrsmithlabs/taskmated/internal/orchestrator"
	"github.com/fyrsmithlabs/taskmated/internal/slack"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  taskmated           Start the taskmated daemon\n")
			fmt.Fprintf(os.Stderr, "  taskmated version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("taskmated by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the full dependency graph and blocks until ctx is cancelled:
// config, logger, AI gateway, embedder, memory store, agents, orchestrator
// and finally the HTTP server.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting taskmated",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("ai", cfg.AIConfigured()),
		zap.Bool("github", cfg.GitHubConfigured()),
		zap.Bool("slack", cfg.SlackConfigured()),
		zap.Bool("memory", cfg.Features.EnableMemory))

	gateway := buildGateway(cfg, logger)
	store := buildMemory(ctx, cfg, logger)
	set := buildAgents(ctx, cfg, gateway, logger)

	orch := orchestrator.New(orchestrator.Config{
		EnableMemory: cfg.Features.EnableMemory,
	}, set, store, logger.Named("orchestrator"))

	srv := newServer(cfg, orch, gateway, logger.Named("http"))
	return srv.Start(ctx)
}

// buildGateway returns nil when no provider credentials are configured;
// the agents then run their deterministic fallback paths.
func buildGateway(cfg *config.Config, logger *zap.Logger) *ai.Gateway {
	if !cfg.AIConfigured() {
		logger.Warn("no AI provider configured, agents will use fallbacks")
		return nil
	}
	return ai.New(ai.Config{
		OpenAIKey:    cfg.AI.OpenAIKey,
		AnthropicKey: cfg.AI.AnthropicKey,
		GoogleKey:    cfg.AI.GoogleKey,
		DefaultModel: cfg.AI.DefaultModel,
	}, logger.Named("ai"))
}

func buildMemory(ctx context.Context, cfg *config.Config, logger *zap.Logger) memory.Store {
	if !cfg.Features.EnableMemory {
		return nil
	}

	var embedder memory.Embedder
	if cfg.AI.OpenAIKey != "" {
		e, err := ai.NewEmbedder(ai.EmbedderConfig{
			BaseURL: cfg.AI.EmbeddingBaseURL,
			Model:   cfg.AI.EmbeddingModel,
			APIKey:  cfg.AI.OpenAIKey,
		})
		if err != nil {
			logger.Warn("embedder init failed, memory falls back to keyword search", zap.Error(err))
		} else {
			embedder = e
		}
	}

	fcfg := memory.FactoryConfig{}
	if cfg.QdrantConfigured() {
		fcfg.Vector = &memory.VectorConfig{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     cfg.Qdrant.VectorSize,
			UseTLS:         cfg.Qdrant.UseTLS,
		}
	}
	return memory.New(ctx, fcfg, embedder, logger.Named("memory"))
}

func buildAgents(ctx context.Context, cfg *config.Config, gateway *ai.Gateway, logger *zap.Logger) orchestrator.AgentSet {
	// A nil *Gateway must stay a nil interface so availability checks work.
	var gen agents.Generator
	if gateway != nil {
		gen = gateway
	}

	var host agents.CodeHost
	if cfg.GitHubConfigured() {
		client, err := github.New(ctx, github.Config{
			Token:      cfg.GitHub.Token,
			Owner:      cfg.GitHub.Owner,
			Repo:       cfg.GitHub.Repo,
			BaseBranch: cfg.GitHub.BaseBranch,
		}, logger.Named("github"))
		if err != nil {
			logger.Warn("github client init failed, PRs disabled", zap.Error(err))
		} else {
			host = client
		}
	}

	var notifier agents.Notifier
	if cfg.SlackConfigured() {
		notifier = slack.New(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Username:   cfg.Slack.Username,
			IconEmoji:  cfg.Slack.IconEmoji,
			Timeout:    10 * time.Second,
		}, logger.Named("slack"))
	}

	return orchestrator.AgentSet{
		Planner:   agents.NewPlanner(gen, logger.Named("planner")),
		Coder:     agents.NewCoder(gen, host, logger.Named("coder")),
		Debugger:  agents.NewDebugger(gen, logger.Named("debugger")),
		ProjectMg: agents.NewProjectManager(notifier, logger.Named("pm")),
	}
}

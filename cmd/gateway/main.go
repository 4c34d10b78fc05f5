package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SampleBias/Open-Clanker/internal/domain/entity"
	"github.com/SampleBias/Open-Clanker/internal/gateway"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/agent"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/channels"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/config"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/logger"
	"github.com/SampleBias/Open-Clanker/internal/infrastructure/monitoring"
	"go.uber.org/zap"

	// Provider factories register themselves on import.
	_ "github.com/SampleBias/Open-Clanker/internal/infrastructure/agent/anthropic"
	_ "github.com/SampleBias/Open-Clanker/internal/infrastructure/agent/openaicompat"
	_ "github.com/SampleBias/Open-Clanker/internal/infrastructure/agent/placeholder"
)

const appName = "open-clanker-gateway"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("%s v%s\n", appName, gateway.Version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Open Clanker Gateway",
		zap.String("name", appName),
		zap.String("version", gateway.Version),
	)

	master, err := agent.New(agent.Config{
		Provider:  cfg.Agent.Provider,
		Model:     cfg.Agent.Model,
		APIKey:    cfg.Agent.APIKey,
		MaxTokens: cfg.Agent.MaxTokens,
		BaseURL:   cfg.Agent.APIBaseURL,
	}, log)
	if err != nil {
		log.Fatal("Failed to create agent", zap.Error(err))
	}

	var fallback agent.Agent
	if fb := cfg.Agent.Fallback; fb != nil && fb.APIKey != "" {
		fallback, err = agent.New(agent.Config{
			Provider:  fb.Provider,
			Model:     fb.Model,
			APIKey:    fb.APIKey,
			MaxTokens: fb.MaxTokens,
		}, log)
		if err != nil {
			log.Fatal("Failed to create fallback agent", zap.Error(err))
		}
		log.Info("Fallback agent configured", zap.String("provider", fb.Provider))
	}

	var orch *agent.Orchestrator
	if cfg.Agent.Orchestration.Enabled {
		orch = agent.NewOrchestrator(master, agent.Config{
			Model:     cfg.Agent.Worker.Model,
			APIKey:    cfg.Agent.Worker.APIKey,
			MaxTokens: cfg.Agent.Worker.MaxTokens,
		}, cfg.MaxWorkers(), log)
		log.Info("Orchestration enabled", zap.Int("max_workers", cfg.MaxWorkers()))
	}

	chans := buildChannels(cfg, log)

	monitor := monitoring.NewMonitor()
	state := gateway.NewState(orch, chans, monitor, log)
	processor := gateway.NewProcessor(master, fallback, orch, monitor, log)
	server := gateway.NewServer(cfg, state, processor, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.Fatal("Gateway server failed", zap.Error(err))
	}
	log.Info("Gateway stopped")
}

// buildChannels creates an adapter per configured platform. A channel
// that fails to authenticate is skipped so the gateway still boots.
func buildChannels(cfg *config.Config, log *zap.Logger) []channels.Channel {
	var chans []channels.Channel

	if tg := cfg.Channels.Telegram; tg != nil && tg.BotToken != "" && tg.BotToken != "your-telegram-bot-token" {
		ch, err := channels.New(entity.ChannelTelegram, channels.Options{
			Token:        tg.BotToken,
			AllowedChats: tg.AllowedChats,
		}, log)
		if err != nil {
			log.Warn("Failed to create Telegram channel", zap.Error(err))
		} else {
			chans = append(chans, ch)
			log.Info("Telegram channel created")
		}
	}

	if dc := cfg.Channels.Discord; dc != nil && dc.BotToken != "" && dc.BotToken != "your-discord-bot-token" {
		ch, err := channels.New(entity.ChannelDiscord, channels.Options{
			Token:   dc.BotToken,
			GuildID: dc.GuildID,
		}, log)
		if err != nil {
			log.Warn("Failed to create Discord channel", zap.Error(err))
		} else {
			chans = append(chans, ch)
			log.Info("Discord channel created")
		}
	}

	return chans
}

func printUsage() {
	fmt.Printf(`%s v%s

Usage:
  gateway           Start the gateway server (default)
  gateway version   Show version
  gateway help      Show this help

Environment:
  OPENCLAW_*        Configuration overrides (see config.yaml)
`, appName, gateway.Version)
}

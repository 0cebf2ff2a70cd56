// Command voxbridge-gateway serves the live voice gateway: a WebSocket
// front end over a Bedrock Nova Sonic session manager with the health
// assistant tool set.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxbridge-ai/voxbridge/internal/dotenv"
	"github.com/voxbridge-ai/voxbridge/pkg/gateway"
	"github.com/voxbridge-ai/voxbridge/pkg/gateway/config"
	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
	"github.com/voxbridge-ai/voxbridge/pkg/sonic/bedrock"
	"github.com/voxbridge-ai/voxbridge/pkg/tools"
	"github.com/voxbridge-ai/voxbridge/pkg/tools/appointments"
	"github.com/voxbridge-ai/voxbridge/pkg/tools/kb"
)

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	transport, err := bedrock.New(ctx, bedrock.Config{
		Region: cfg.Region,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("bedrock transport: %w", err)
	}

	metrics := gateway.NewMetrics()

	executors := []tools.Executor{
		tools.Greeting{},
		tools.Safety{},
	}
	executors = append(executors, appointments.Tools(appointments.NewStore())...)

	if cfg.KnowledgeBaseID != "" {
		kbClient, err := kb.NewClient(ctx, kb.Config{
			Region:          cfg.Region,
			KnowledgeBaseID: cfg.KnowledgeBaseID,
			Logger:          logger,
		})
		if err != nil {
			return fmt.Errorf("knowledge base client: %w", err)
		}
		executors = append(executors, kb.HealthInfo{Retriever: kbClient, Logger: logger})
	} else {
		logger.Warn("VOX_KNOWLEDGE_BASE_ID not set, retrieve_health_info disabled")
	}

	registry := tools.NewRegistry(logger, executors, tools.WithObserver(metrics.ObserveTool))

	client := sonic.New(transport, registry, sonic.Config{
		ModelID:        cfg.ModelID,
		MaxAudioQueue:  cfg.MaxAudioQueue,
		AudioBatchSize: cfg.AudioBatchSize,
		OnAudioDropped: metrics.AudioDropped,
		Logger:         logger,
	})

	audioOut := sonic.DefaultAudioOutputConfig()
	audioOut.VoiceID = cfg.VoiceID
	core := gateway.SonicCore{
		Client:  client,
		Options: []sonic.SessionOption{sonic.WithAudioOutput(audioOut)},
	}

	srv := gateway.New(cfg, core, metrics, tools.SystemPrompt, logger)
	return srv.Run(ctx)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := dotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "voxbridge-gateway: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		fmt.Fprintf(os.Stderr, "voxbridge-gateway: %v\n", err)
		os.Exit(1)
	}
}

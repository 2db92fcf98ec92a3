package main

import (
	"context"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"dining-concierge/handler"
	appconfig "dining-concierge/internal/config"
	"dining-concierge/internal/integrations/queue"
	"dining-concierge/internal/logging"
	"dining-concierge/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := appconfig.LoadDialog()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logging.NewLogger(cfg.Log)

	// ---- AWS SDK config ----
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	queueClient, err := queue.New(awssqs.NewFromConfig(awsCfg), cfg.QueueURL)
	if err != nil {
		slog.Error("failed to create queue client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	dispatcher, err := usecase.NewDispatcher(queueClient)
	if err != nil {
		slog.Error("failed to create dispatcher", "err", err)
		os.Exit(1)
	}
	dialog, err := usecase.NewDialogService(dispatcher, cfg.IntentName, cfg.Location())
	if err != nil {
		slog.Error("failed to create dialog service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewLexHandler(dialog)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

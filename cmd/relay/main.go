package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awslex "github.com/aws/aws-sdk-go-v2/service/lexruntimev2"

	"dining-concierge/handler"
	appconfig "dining-concierge/internal/config"
	"dining-concierge/internal/integrations/lexruntime"
	"dining-concierge/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := appconfig.LoadRelay()
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
	bot, err := lexruntime.New(awslex.NewFromConfig(awsCfg), cfg.BotID, cfg.BotAliasID, cfg.LocaleID)
	if err != nil {
		slog.Error("failed to create Lex runtime client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewRelayHandler(bot)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsses "github.com/aws/aws-sdk-go-v2/service/ses"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"dining-concierge/handler"
	appconfig "dining-concierge/internal/config"
	"dining-concierge/internal/integrations/mailer"
	"dining-concierge/internal/integrations/opensearch"
	"dining-concierge/internal/integrations/paramstore"
	"dining-concierge/internal/logging"
	"dining-concierge/internal/repository"
	"dining-concierge/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := appconfig.LoadWorker()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logging.NewLogger(cfg.Log)

	// ---- AWS SDK config ----
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	searchClient, err := opensearch.NewClient(cfg.SearchEndpoint,
		opensearch.WithIndex(cfg.SearchIndex),
		opensearch.WithField(cfg.SearchField),
		opensearch.WithSigV4(awsCfg.Credentials, cfg.AWSRegion),
	)
	if err != nil {
		slog.Error("failed to create search client", "err", err)
		os.Exit(1)
	}
	dynamoClient := awsdynamodb.NewFromConfig(awsCfg)
	store, err := repository.NewRestaurantStore(dynamoClient, cfg.RestaurantTable)
	if err != nil {
		slog.Error("failed to create restaurant store", "err", err)
		os.Exit(1)
	}
	ledger, err := repository.NewLedger(dynamoClient, cfg.LedgerTable, cfg.LedgerTTL, cfg.LedgerLease)
	if err != nil {
		slog.Error("failed to create request ledger", "err", err)
		os.Exit(1)
	}
	mailClient, err := mailer.New(awsses.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	recommend, err := usecase.NewRecommendService(ssmClient, searchClient, store, mailClient, ledger,
		cfg.ParamPrefix, cfg.SearchSize, cfg.FetchConcurrency)
	if err != nil {
		slog.Error("failed to create recommend service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewQueueHandler(recommend)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

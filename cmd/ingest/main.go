// Command ingest runs the import pipeline once for a single message id
// and exits. Useful for reprocessing a message by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"card-alerts/internal/config"
	"card-alerts/internal/extract"
	"card-alerts/internal/ledger"
	"card-alerts/internal/logging"
	"card-alerts/internal/mailstore"
	"card-alerts/internal/overrides"
	"card-alerts/internal/pipeline"
	"card-alerts/internal/secrets"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (default: ./config.yaml)")
		messageID  = flag.String("message-id", "", "Mail message id to import")
	)
	flag.Parse()

	if *messageID == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -message-id <id> [-config <path>]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)
	ctx := context.Background()

	transactionID, err := run(ctx, cfg, log, *messageID)
	if err != nil {
		log.Error().Err(err).Str("message_id", *messageID).Msg("Import failed")
		os.Exit(1)
	}
	log.Info().
		Str("message_id", *messageID).
		Str("transaction_id", transactionID).
		Msg("Import complete")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, messageID string) (string, error) {
	var clientOpts []option.ClientOption
	if cfg.GCP.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.GCP.CredentialsFile))
	}

	bundle, err := secrets.Fetch(ctx, cfg.Secrets.Name, clientOpts...)
	if err != nil {
		return "", err
	}

	mailStore, err := mailstore.New(ctx, cfg.GCP.MailBucket, clientOpts...)
	if err != nil {
		return "", err
	}
	defer mailStore.Close()

	overrideStore, err := overrides.NewStore(ctx, cfg.GCP.Project, cfg.Overrides.Dataset, cfg.Overrides.Table, log, clientOpts...)
	if err != nil {
		return "", err
	}
	defer overrideStore.Close()

	var (
		extractor extract.Extractor
		matcher   extract.Matcher
	)
	if cfg.Extract.Strategy == "regex" {
		extractor = extract.NewRegexExtractor()
	}
	if extractor == nil || bundle.ExtractionAPIKey != "" {
		gemini, err := extract.NewGeminiExtractor(ctx, bundle.ExtractionAPIKey, cfg.Extract.Model, log)
		if err != nil {
			return "", err
		}
		if extractor == nil {
			extractor = gemini
		}
		matcher = gemini
	}

	location, err := cfg.App.Location()
	if err != nil {
		return "", err
	}

	deps := &pipeline.Deps{
		Sources:        cfg.Sources,
		Mail:           mailStore,
		Overrides:      overrideStore,
		Extractor:      extractor,
		Matcher:        matcher,
		Ledger:         ledger.NewClient(cfg.Ledger.BaseURL, bundle.LedgerToken, cfg.Ledger.RequestTimeout, log),
		BudgetID:       cfg.Ledger.BudgetID,
		Location:       location,
		Logger:         log,
		ExtractTimeout: cfg.Extract.Timeout,
	}

	return pipeline.Import(ctx, deps, messageID)
}

// Command worker runs the alert import service: an HTTP listener that
// accepts new-mail notifications and a background queue that runs each
// import through the pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"card-alerts/internal/api/handlers"
	"card-alerts/internal/api/middleware"
	"card-alerts/internal/config"
	"card-alerts/internal/extract"
	"card-alerts/internal/jobs"
	"card-alerts/internal/jobs/inmemory"
	"card-alerts/internal/ledger"
	"card-alerts/internal/logging"
	"card-alerts/internal/mailstore"
	"card-alerts/internal/overrides"
	"card-alerts/internal/pipeline"
	"card-alerts/internal/secrets"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)
	ctx := context.Background()

	deps, cleanup, err := buildDeps(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build dependencies")
	}
	defer cleanup()

	runImport := func(ctx context.Context, messageID string) (string, error) {
		return pipeline.Import(ctx, deps, messageID)
	}

	// Job infrastructure. Retries are left to the mail delivery layer:
	// jobs run once unless the operator flips nack_on_failure and the
	// infrastructure redelivers.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 2, jobStore)
	defer jobQueue.Close()

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		importJob, ok := job.(*jobs.ImportAlertJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		transactionID, err := runImport(ctx, importJob.MessageID)
		if err != nil {
			return err
		}
		importJob.TransactionID = transactionID
		return nil
	}

	go func() {
		log.Info().Msg("Starting import worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Import worker stopped with error")
		}
	}()

	notificationsHandler := handlers.NewNotificationsHandler(jobQueue, runImport, cfg.App.NackOnFailure, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			notificationsHandler.Notify(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/v1/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(mux),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting notification listener")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Queue shutdown failed")
	}
}

// buildDeps wires the pipeline collaborators from configuration and
// the secret bundle.
func buildDeps(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pipeline.Deps, func(), error) {
	var clientOpts []option.ClientOption
	if cfg.GCP.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.GCP.CredentialsFile))
	}

	bundle, err := secrets.Fetch(ctx, cfg.Secrets.Name, clientOpts...)
	if err != nil {
		return nil, nil, err
	}

	mailStore, err := mailstore.New(ctx, cfg.GCP.MailBucket, clientOpts...)
	if err != nil {
		return nil, nil, err
	}

	overrideStore, err := overrides.NewStore(ctx, cfg.GCP.Project, cfg.Overrides.Dataset, cfg.Overrides.Table, log, clientOpts...)
	if err != nil {
		mailStore.Close()
		return nil, nil, err
	}

	ledgerClient := ledger.NewClient(cfg.Ledger.BaseURL, bundle.LedgerToken, cfg.Ledger.RequestTimeout, log)

	var (
		extractor extract.Extractor
		matcher   extract.Matcher
	)
	switch cfg.Extract.Strategy {
	case "regex":
		extractor = extract.NewRegexExtractor()
	default:
		gemini, err := extract.NewGeminiExtractor(ctx, bundle.ExtractionAPIKey, cfg.Extract.Model, log)
		if err != nil {
			mailStore.Close()
			overrideStore.Close()
			return nil, nil, err
		}
		extractor = gemini
		matcher = gemini
	}
	// The regex strategy still matches payees with the model when an
	// extraction key is present.
	if matcher == nil && bundle.ExtractionAPIKey != "" {
		gemini, err := extract.NewGeminiExtractor(ctx, bundle.ExtractionAPIKey, cfg.Extract.Model, log)
		if err != nil {
			mailStore.Close()
			overrideStore.Close()
			return nil, nil, err
		}
		matcher = gemini
	}

	location, err := cfg.App.Location()
	if err != nil {
		mailStore.Close()
		overrideStore.Close()
		return nil, nil, err
	}

	deps := &pipeline.Deps{
		Sources:        cfg.Sources,
		Mail:           mailStore,
		Overrides:      overrideStore,
		Extractor:      extractor,
		Matcher:        matcher,
		Ledger:         ledgerClient,
		BudgetID:       cfg.Ledger.BudgetID,
		Location:       location,
		Logger:         log,
		ExtractTimeout: cfg.Extract.Timeout,
	}

	cleanup := func() {
		mailStore.Close()
		overrideStore.Close()
	}
	return deps, cleanup, nil
}

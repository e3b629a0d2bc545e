package main

import (
	"context"
	"errors"
	"os"

	"expenses/internal/amqp"
	"expenses/internal/backend"
	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/sheets"
	gsheet "expenses/internal/sheets/google"
	mem "expenses/internal/sheets/memory"
	"expenses/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(log.New(log.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker, nil)

	if err := run(logger, cfg); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func run(logger *log.Logger, cfg *config.Config) error {
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required: the worker consumes ledger events")
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	var exporter sheets.Exporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.OptionsFromConfig(cfg))
		if err != nil {
			return err
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = mem.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, exporting to memory only")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer consumer.Close()

	// The summary tab is rebuilt from the shared database. A memory backend
	// is private to the API process, so there is nothing to read from.
	var summaries worker.SummarySource
	if backend.BackendType(cfg.DataBackend).Persistent() {
		storeCfg := *cfg
		storeCfg.AMQPURL = ""
		be, err := cli.OpenBackend(ctx, logger, &storeCfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
		summaries = services.NewReportService(be.Store, nil)
	} else {
		logger.Info("Summary export disabled for the memory backend")
	}

	w := worker.NewExportWorker(exporter, summaries, exporter, cfg.ExportInterval)
	logger.Info("Starting expenses-worker",
		log.FieldOperation, log.OpStartup,
		"queue", cfg.AMQPQueue,
		"export_interval", cfg.ExportInterval.String(),
		"summary_export", summaries != nil)
	return w.Run(ctx, consumer)
}

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"stima/internal/amqp"
	"stima/internal/cli"
	"stima/internal/config"
	gsheet "stima/internal/sheets/google"
	"stima/internal/worker"

	goption "google.golang.org/api/option"
)

// newSheetsClient targets the spreadsheet and sheet from cfg; credentials
// still come from the environment unless opts are given.
func newSheetsClient(ctx context.Context, cfg *config.Config, opts ...goption.ClientOption) (*gsheet.Client, error) {
	return gsheet.NewClient(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, opts...)
}

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration invalid", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting stima-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sheetsClient, err := newSheetsClient(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(repo, sheetsClient)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	handler := func(msg *amqp.ObservationCreatedMessage) error {
		return exporter.HandleObservationCreated(ctx, msg)
	}
	if err := amqpClient.ConsumeObservationCreated(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

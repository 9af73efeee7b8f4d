package seedtool

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/strata/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "seed_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	os.Stdout.WriteString(`Strata Record Seeder
====================

Generates synthetic subsurface measurement records, submits them to a
running reconciliation engine, then probes risk and conflict endpoints
to verify end-to-end behavior.

Usage:
  go run cmd/seed-records/main.go [options]

Options:
  -url string
        Base URL of the engine (default "http://localhost:9080")
  -sites int
        Number of synthetic drill sites (default 50)
  -per-site int
        Records generated per site (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -commodity string
        Commodity used for risk probes (default "gold")
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated payloads (default: seed_records_TIMESTAMP.json)
  -log string
        Log file for run output (default: seed_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed with default settings
  go run cmd/seed-records/main.go

  # Larger survey against a remote engine
  go run cmd/seed-records/main.go -sites 200 -per-site 40 -url http://engine:9080

  # Probe copper instead of gold
  go run cmd/seed-records/main.go -commodity copper -verbose
`)
}

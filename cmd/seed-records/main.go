package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/strata/internal/seedtool"
)

// Default configuration constants.
const (
	defaultSites      = 50
	defaultPerSite    = 20
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
	defaultCommodity  = "gold"
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the engine")
		sites      = flag.Int("sites", defaultSites, "Number of synthetic drill sites")
		perSite    = flag.Int("per-site", defaultPerSite, "Records generated per site")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		commodity  = flag.String("commodity", defaultCommodity, "Commodity used for risk probes")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated payloads (default: seed_records_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for run output (default: seed_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seedtool.ShowHelp()
		return
	}

	if err := seedtool.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &seedtool.Config{
		BaseURL:    *baseURL,
		NumSites:   *sites,
		PerSite:    *perSite,
		Workers:    *workers,
		Timeout:    *timeout,
		Commodity:  *commodity,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := seedtool.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seed run failed: " + err.Error() + "\n")
		return
	}
}

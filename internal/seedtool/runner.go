package seedtool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/okian/strata/pkg/logger"
)

const (
	outputFilePermission = 0600
	settleDelay          = 2 * time.Second // let rescore workers drain
)

// Run executes a complete seeding and verification pass.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting seed run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sites", config.NumSites),
		logger.Int("perSite", config.PerSite),
		logger.Int("workers", config.Workers),
		logger.String("commodity", config.Commodity))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	payloads, err := generatePayloads(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("payload generation failed: %w", err)
	}

	if err := submitPayloads(ctx, config, payloads, stats); err != nil {
		return fmt.Errorf("record submission failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for rescore workers to settle")
	time.Sleep(settleDelay)

	probes, err := probeRisk(ctx, config, payloads, stats)
	if err != nil {
		return fmt.Errorf("risk probing failed: %w", err)
	}

	conflicts, err := listConflicts(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("conflict listing failed: %w", err)
	}

	if err := verifyResults(config, stats, probes, conflicts); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	if err := savePayloadsToFile(ctx, config, payloads); err != nil {
		logger.Get().Warn(ctx, "failed to save payloads to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "seed run completed successfully")
	return nil
}

// checkServiceHealth verifies the engine is reachable.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// verifyResults sanity-checks what the engine reported against what was sent.
func verifyResults(config *Config, stats *Stats, probes []RiskProbe, conflicts int) error {
	log.Println("verifying results")

	if stats.RecordsFailed > 0 {
		return fmt.Errorf("%d of %d records were rejected by the engine",
			stats.RecordsFailed, stats.RecordsSubmitted)
	}
	if len(probes) == 0 {
		return fmt.Errorf("no risk probes to verify")
	}
	for _, p := range probes {
		if p.RiskScore < 0 || p.RiskScore > 100 {
			return fmt.Errorf("risk score out of range at (%.4f, %.4f): %.1f",
				p.Latitude, p.Longitude, p.RiskScore)
		}
		if p.Recommendation == "" {
			return fmt.Errorf("empty recommendation at (%.4f, %.4f)", p.Latitude, p.Longitude)
		}
	}

	log.Printf("conflicts currently listed: %d", conflicts)
	if config.Verbose {
		for i, p := range probes {
			if i >= 10 {
				break
			}
			log.Printf("  (%.4f, %.4f) risk=%.1f%% category=%s", p.Latitude, p.Longitude, p.RiskScore, p.Category)
		}
	}

	log.Println("result verification completed")
	return nil
}

// savePayloadsToFile writes the generated payloads out for replay.
func savePayloadsToFile(ctx context.Context, config *Config, payloads []Payload) error {
	if len(payloads) == 0 {
		return fmt.Errorf("no payloads to save")
	}

	filename := config.OutputFile
	if filename == "" {
		filename = "seed_records_" + time.Now().Format("20060102_150405") + ".json"
	}

	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal payloads: %w", err)
	}
	if err := os.WriteFile(filename, data, outputFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "payloads saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, recordsPerSecond float64
	if stats.RecordsSubmitted > 0 {
		acceptRate = float64(stats.RecordsAccepted) / float64(stats.RecordsSubmitted) * 100
	}
	if stats.Duration > 0 {
		recordsPerSecond = float64(stats.RecordsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("recordsGenerated", stats.RecordsGenerated),
		logger.Int("recordsSubmitted", stats.RecordsSubmitted),
		logger.Int("recordsAccepted", stats.RecordsAccepted),
		logger.Int("recordsDuplicate", stats.RecordsDuplicate),
		logger.Int("recordsFailed", stats.RecordsFailed),
		logger.Int("riskProbes", stats.RiskProbes),
		logger.Int("conflictsListed", stats.ConflictsListed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("recordsPerSecond", recordsPerSecond))
}

package seedtool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
)

// riskAssessment mirrors the fields of the risk response this tool reads.
type riskAssessment struct {
	RiskPercent    float64 `json:"risk_percent"`
	RiskCategory   string  `json:"risk_category"`
	Recommendation string  `json:"recommendation"`
}

// conflictListing mirrors GET /conflicts.
type conflictListing struct {
	Count int `json:"count"`
}

// probeRisk queries the risk endpoint for every distinct site location.
func probeRisk(ctx context.Context, config *Config, payloads []Payload, stats *Stats) ([]RiskProbe, error) {
	sites := distinctSites(payloads)
	log.Printf("probing risk for %d sites with %d workers", len(sites), config.Workers)

	client := newHTTPClient(config.Timeout)

	probes := make([]RiskProbe, len(sites))
	var failed int64

	siteChan := make(chan int, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range siteChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				site := sites[idx]
				probe, err := probeSingleSite(ctx, client, config, site[0], site[1])
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Printf("risk probe failed for (%.4f, %.4f): %v", site[0], site[1], err)
					}
					continue
				}
				probes[idx] = probe
			}
		}()
	}

	go func() {
		defer close(siteChan)
		for i := range sites {
			select {
			case <-ctx.Done():
				return
			case siteChan <- i:
			}
		}
	}()

	wg.Wait()

	valid := make([]RiskProbe, 0, len(probes))
	for _, p := range probes {
		if p.Category != "" {
			valid = append(valid, p)
		}
	}
	stats.RiskProbes = len(valid)
	log.Printf("risk probes completed: retrieved=%d failed=%d", len(valid), int(atomic.LoadInt64(&failed)))
	return valid, nil
}

func probeSingleSite(ctx context.Context, client *HTTPClient, config *Config, lat, lon float64) (RiskProbe, error) {
	u := fmt.Sprintf("%s/risk?lat=%f&lon=%f&commodity=%s",
		config.BaseURL, lat, lon, url.QueryEscape(config.Commodity))

	resp, err := client.Get(ctx, u)
	if err != nil {
		return RiskProbe{}, fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return RiskProbe{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != 200 {
		return RiskProbe{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var a riskAssessment
	if err := json.Unmarshal(body, &a); err != nil {
		return RiskProbe{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return RiskProbe{
		Latitude:       lat,
		Longitude:      lon,
		RiskScore:      a.RiskPercent,
		Category:       a.RiskCategory,
		Recommendation: a.Recommendation,
	}, nil
}

// listConflicts fetches the recent-conflicts count.
func listConflicts(ctx context.Context, config *Config, stats *Stats) (int, error) {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/conflicts?limit=500")
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != 200 {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var listing conflictListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	stats.ConflictsListed = listing.Count
	return listing.Count, nil
}

// distinctSites collapses payloads into their site centers, keyed by source.
func distinctSites(payloads []Payload) [][2]float64 {
	seen := make(map[string][2]float64)
	order := make([]string, 0)
	for _, p := range payloads {
		if _, ok := seen[p.SourceID]; !ok {
			seen[p.SourceID] = [2]float64{p.Latitude, p.Longitude}
			order = append(order, p.SourceID)
		}
	}
	sites := make([][2]float64, 0, len(order))
	for _, id := range order {
		sites = append(sites, seen[id])
	}
	return sites
}

package seedtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitPayloads submits payloads concurrently using a worker pool.
func submitPayloads(ctx context.Context, config *Config, payloads []Payload, stats *Stats) error {
	log.Printf("submitting %d records with %d workers", len(payloads), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/records"

	var (
		accepted  int64
		duplicate int64
		failed    int64
		submitted int64
	)

	payloadChan := make(chan Payload, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range payloadChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				atomic.AddInt64(&submitted, 1)
				switch submitSinglePayload(ctx, client, url, p) {
				case "accepted":
					atomic.AddInt64(&accepted, 1)
				case "duplicate":
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(payloadChan)
		for _, p := range payloads {
			select {
			case <-ctx.Done():
				return
			case payloadChan <- p:
			}
		}
	}()

	wg.Wait()

	stats.RecordsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.RecordsAccepted = int(atomic.LoadInt64(&accepted))
	stats.RecordsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.RecordsFailed = int(atomic.LoadInt64(&failed))

	log.Printf("submission completed: accepted=%d duplicate=%d failed=%d",
		stats.RecordsAccepted, stats.RecordsDuplicate, stats.RecordsFailed)
	return nil
}

// submitSinglePayload posts one payload and classifies the outcome.
func submitSinglePayload(ctx context.Context, client *HTTPClient, url string, p Payload) string {
	resp, err := client.Post(ctx, url, p)
	if err != nil {
		return "failed"
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		return "accepted"
	case http.StatusOK:
		var ack IngestAck
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "accepted"
	default:
		return "failed"
	}
}

package seedtool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/strata/internal/domain/validate"
)

func TestGeneratedPayloadsPassValidation(t *testing.T) {
	ctx := context.Background()
	config := &Config{NumSites: 4, PerSite: 8}
	stats := &Stats{}

	payloads, err := generatePayloads(ctx, config, stats)
	require.NoError(t, err)
	require.NotEmpty(t, payloads)
	assert.Equal(t, len(payloads), stats.RecordsGenerated)

	v := validate.New()
	structural := 0
	for i, p := range payloads {
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		var payload validate.RawPayload
		require.NoError(t, json.Unmarshal(raw, &payload))

		_, err = v.Validate(ctx, payload)
		require.NoError(t, err, "payload %d (%s) rejected", i, p.MeasurementType)

		if p.MeasurementType == "structural-geometry" {
			structural++
			assert.Nil(t, p.Value, "structural payload %d carries a numeric value", i)
			assert.NotEmpty(t, p.CategoryValue, "structural payload %d has no classification", i)
		}
	}
	assert.Greater(t, structural, 0, "no structural payloads generated")
}

func TestVerifyResultsRejectsFailedRecords(t *testing.T) {
	config := &Config{}
	probes := []RiskProbe{{Latitude: 34.0, Longitude: -106.0, RiskScore: 42.0, Recommendation: "proceed"}}

	err := verifyResults(config, &Stats{RecordsSubmitted: 10, RecordsFailed: 3}, probes, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected by the engine")

	require.NoError(t, verifyResults(config, &Stats{RecordsSubmitted: 10}, probes, 0))
}

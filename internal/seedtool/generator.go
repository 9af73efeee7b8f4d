package seedtool

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/okian/strata/pkg/logger"
)

// Spatial layout of the synthetic survey area, in degrees and distance-units.
const (
	originLat   = 34.0
	originLon   = -106.0
	siteSpacing = 0.05 // keeps sites in separate conflict neighborhoods
	jitterScale = 0.2  // within-site scatter as a fraction of the radius
)

// Grade distribution parameters for synthetic assays, in percent metal.
const (
	gradeMedian       = 0.6
	gradeSpread       = 0.8
	detectionLimit    = 0.05
	nonDetectFraction = 6 // one in N assays reports below detection limit
	conflictFraction  = 5 // one in N sites gets a deliberately divergent reading
	conflictFactor    = 1.6
)

const randomFloatDivisor = 1_000_000

// randomFloat returns a random float64 in [0, 1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

var siteTiers = []string{
	"public-authoritative",
	"commercial-licensed",
	"client-proprietary",
	"realtime-operational",
	"access-restricted",
}

var siteLithologies = []string{"basalt", "granite", "schist", "limestone", "sandstone"}

// structureTags mixes classifications the built-in commodity profiles treat
// as favorable with neutral ones, so risk probes see both outcomes.
var structureTags = []string{
	"shear-zone",
	"fault-intersection",
	"fold-hinge",
	"stockwork",
	"flat-bedding",
	"massive-pluton",
}

// generatePayloads builds per-site record batches: assays, a density log, a
// sonic velocity, a structural reading, and occasionally a deliberately
// divergent assay that the engine should flag as a conflict.
func generatePayloads(ctx context.Context, config *Config, stats *Stats) ([]Payload, error) {
	logger.Get().Info(ctx, "generating synthetic payloads",
		logger.Int("sites", config.NumSites),
		logger.Int("perSite", config.PerSite))

	if config.NumSites <= 0 || config.PerSite <= 0 {
		return nil, fmt.Errorf("sites and per-site counts must be positive")
	}

	payloads := make([]Payload, 0, config.NumSites*config.PerSite)
	for site := 0; site < config.NumSites; site++ {
		lat := originLat + float64(site/10)*siteSpacing
		lon := originLon + float64(site%10)*siteSpacing
		sourceID := fmt.Sprintf("seed-site-%03d", site)
		lith := siteLithologies[randomIndex(len(siteLithologies))]

		base := gradeMedian + (randomFloat()-0.5)*gradeSpread
		if base < detectionLimit {
			base = detectionLimit * 2
		}

		for i := 0; i < config.PerSite; i++ {
			p := Payload{
				Latitude:   lat + (randomFloat()-0.5)*jitterScale*0.001,
				Longitude:  lon + (randomFloat()-0.5)*jitterScale*0.001,
				DepthTop:   50 + float64(i)*2,
				SourceTier: siteTiers[randomIndex(len(siteTiers))],
				SourceID:   sourceID,
				IngestedBy: "seed-records",
				Lithology:  lith,
			}

			switch i % 4 {
			case 0:
				grade := base * (0.9 + randomFloat()*0.2)
				if randomIndex(nonDetectFraction) == 0 {
					dl := detectionLimit
					p.MeasurementType = "assay-grade"
					p.DetectionLimit = &dl
					p.IsNonDetect = true
				} else {
					p.MeasurementType = "assay-grade"
					p.Value = &grade
					p.Unit = "pct"
				}
			case 1:
				density := 2.4 + randomFloat()*0.6
				p.MeasurementType = "density-log"
				p.Value = &density
				p.Unit = "g/cm3"
			case 2:
				velocity := 3500 + randomFloat()*1500
				p.MeasurementType = "sonic-velocity"
				p.Value = &velocity
				p.Unit = "m/s"
			default:
				// Structural readings are categorical: a classification
				// tag, never a numeric value.
				p.MeasurementType = "structural-geometry"
				p.CategoryValue = structureTags[randomIndex(len(structureTags))]
			}
			payloads = append(payloads, p)
		}

		// A divergent assay at the same depth exercises conflict detection.
		if randomIndex(conflictFraction) == 0 {
			divergent := base * conflictFactor
			payloads = append(payloads, Payload{
				Latitude:        lat,
				Longitude:       lon,
				DepthTop:        50,
				MeasurementType: "assay-grade",
				Value:           &divergent,
				Unit:            "pct",
				SourceTier:      "realtime-operational",
				SourceID:        sourceID + "-field",
				IngestedBy:      "seed-records",
				Lithology:       lith,
			})
		}
	}

	stats.RecordsGenerated = len(payloads)
	logger.Get().Info(ctx, "generated payloads", logger.Int("count", len(payloads)))
	return payloads, nil
}

package risk

import (
	"math"
	"sort"
)

// gradeEstimate summarizes the fitted left-censored log-normal grade
// distribution around a target.
type gradeEstimate struct {
	prob    float64 // P(grade > cutoff)
	mu      float64 // mean of ln(grade)
	sigma   float64 // stddev of ln(grade)
	samples int
	detects int
}

// estimateExceedance fits nearby assay grades to a log-normal distribution
// using regression on order statistics (ROS) so that non-detects contribute
// as left-censored observations at their detection limits rather than being
// substituted with zero or any other fabricated value.
//
// detects are measured grades; censorLimits are the detection limits of
// non-detect observations.
func estimateExceedance(detects, censorLimits []float64, cutoff float64) gradeEstimate {
	n := len(detects) + len(censorLimits)
	est := gradeEstimate{samples: n, detects: len(detects)}

	if len(detects) == 0 {
		// Everything censored: the grade distribution sits below the
		// detection limits, so exceedance of an economic cutoff is remote.
		est.prob = allCensoredExceedance
		return est
	}

	if len(detects) == 1 && len(censorLimits) == 0 {
		if detects[0] > cutoff {
			est.prob = singleSampleExceedance
		} else {
			est.prob = 1 - singleSampleExceedance
		}
		est.mu = math.Log(math.Max(detects[0], minGradeValue))
		return est
	}

	// Pool detects and censor limits, sort ascending, and assign Blom
	// plotting positions. Only detect positions enter the regression; the
	// censored entries shift the detects' ranks upward, which is how the
	// censoring informs the fit.
	type obs struct {
		value    float64
		censored bool
	}
	pooled := make([]obs, 0, n)
	for _, d := range detects {
		pooled = append(pooled, obs{value: math.Max(d, minGradeValue)})
	}
	for _, c := range censorLimits {
		pooled = append(pooled, obs{value: math.Max(c, minGradeValue), censored: true})
	}
	sort.Slice(pooled, func(i, j int) bool { return pooled[i].value < pooled[j].value })

	var sumZ, sumY, sumZZ, sumZY float64
	detCount := 0
	for i, o := range pooled {
		if o.censored {
			continue
		}
		p := (float64(i+1) - 0.375) / (float64(n) + 0.25)
		z := math.Sqrt2 * math.Erfinv(2*p-1)
		y := math.Log(o.value)
		sumZ += z
		sumY += y
		sumZZ += z * z
		sumZY += z * y
		detCount++
	}

	k := float64(detCount)
	denom := k*sumZZ - sumZ*sumZ
	if detCount < 2 || math.Abs(denom) < 1e-12 {
		est.mu = sumY / k
		est.sigma = 0
		if math.Exp(est.mu) > cutoff {
			est.prob = singleSampleExceedance
		} else {
			est.prob = 1 - singleSampleExceedance
		}
		return est
	}

	sigma := (k*sumZY - sumZ*sumY) / denom
	mu := (sumY - sigma*sumZ) / k
	if sigma < minLogSigma {
		sigma = minLogSigma
	}

	est.mu = mu
	est.sigma = sigma
	z := (math.Log(math.Max(cutoff, minGradeValue)) - mu) / sigma
	est.prob = 1 - stdNormalCDF(z)
	return est
}

// stdNormalCDF is the standard normal cumulative distribution function.
func stdNormalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

const (
	allCensoredExceedance  = 0.05
	singleSampleExceedance = 0.75
	minGradeValue          = 1e-9
	minLogSigma            = 1e-3
)

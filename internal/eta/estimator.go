package eta

import (
	"context"
	"math"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/history"
)

const (
	defaultImageMS  = 22_000
	defaultTextMS   = 12_000
	minEstimateMS   = 8_000
	maxEstimateMS   = 90_000
	perExtraImageMS = 2_500
	maxPenaltyMS    = 16_000
)

// Estimator predicts how long a generation will take from recorded history.
// A historical average tracks the user's real network and provider latency
// far better than a constant; the clamp keeps a single outlier sample from
// producing a degenerate estimate.
type Estimator struct {
	Store history.Store
}

// Estimate returns the expected duration in whole seconds for the given mode
// and reference-image count. The result is always within [8, 90] seconds.
func (e Estimator) Estimate(ctx context.Context, mode history.Mode, imageCount int) int {
	var samples []history.Sample
	if e.Store != nil {
		samples = e.Store.Load(ctx)
	}

	candidates := make([]int64, 0, len(samples))
	for _, s := range samples {
		if s.Mode == mode {
			candidates = append(candidates, s.DurationMS)
		}
	}
	if len(candidates) == 0 {
		for _, s := range samples {
			candidates = append(candidates, s.DurationMS)
		}
	}

	var avgMS float64
	if len(candidates) > 0 {
		var sum int64
		for _, ms := range candidates {
			sum += ms
		}
		avgMS = float64(sum) / float64(len(candidates))
	} else if mode == history.ModeImage {
		avgMS = defaultImageMS
	} else {
		avgMS = defaultTextMS
	}

	var extraMS float64
	if mode == history.ModeImage {
		extraMS = math.Min(maxPenaltyMS, math.Max(0, float64(imageCount-1))*perExtraImageMS)
	}

	etaMS := math.Min(maxEstimateMS, math.Max(minEstimateMS, avgMS+extraMS))
	return int(math.Round(etaMS / 1000))
}

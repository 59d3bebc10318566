// Package progress simulates completion percentages for an in-flight
// generation. The curve approaches 95% over the estimated duration and then
// creeps toward 97% while the request overruns, so the bar keeps moving
// without ever claiming completion.
package progress

import "math"

// State is a snapshot emitted on every tick.
type State struct {
	Percent    int
	ElapsedSec float64
	EtaSec     int
}

// Percent maps elapsed time against an estimate to an integer in [0, 97].
// A non-positive or non-finite estimate yields 0. For a fixed estimate the
// result is non-decreasing in elapsed time.
func Percent(elapsedSec, etaSec float64) int {
	if math.IsNaN(elapsedSec) || math.IsInf(elapsedSec, 0) {
		return 0
	}
	if math.IsNaN(etaSec) || math.IsInf(etaSec, 0) || etaSec <= 0 {
		return 0
	}

	normalized := clamp(elapsedSec/etaSec, 0, 1)
	p := math.Min(0.95, 1-math.Exp(-3*normalized))

	// Once the estimate is spent, creep from 95% toward 97% instead.
	if elapsedSec > etaSec {
		tail := 0.95 + 0.04*(1-math.Exp(-0.6*(elapsedSec-etaSec)))
		p = math.Max(p, tail)
	}

	p = math.Min(0.97, p)
	return int(clamp(math.Round(p*100), 0, 97))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

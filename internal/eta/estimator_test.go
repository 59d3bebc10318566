package eta

import (
	"context"
	"testing"
	"time"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/history"
)

type fixedStore struct {
	samples []history.Sample
}

func (s fixedStore) Load(ctx context.Context) []history.Sample         { return s.samples }
func (s fixedStore) Record(ctx context.Context, sample history.Sample) {}

func sample(mode history.Mode, ms int64) history.Sample {
	return history.Sample{
		DurationMS: ms,
		Mode:       mode,
		ImageCount: 1,
		ObservedAt: time.Now().UnixMilli(),
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name       string
		samples    []history.Sample
		mode       history.Mode
		imageCount int
		want       int
	}{
		{
			name: "image default with no history",
			mode: history.ModeImage,
			want: 22,
		},
		{
			name: "text default with no history",
			mode: history.ModeText,
			want: 12,
		},
		{
			name:    "mode filtered average",
			samples: []history.Sample{sample(history.ModeImage, 30_000), sample(history.ModeText, 10_000)},
			mode:    history.ModeText,
			want:    10,
		},
		{
			name:    "falls back to all samples",
			samples: []history.Sample{sample(history.ModeImage, 30_000), sample(history.ModeImage, 20_000)},
			mode:    history.ModeText,
			want:    25,
		},
		{
			name:       "per-image penalty",
			samples:    []history.Sample{sample(history.ModeImage, 22_000)},
			mode:       history.ModeImage,
			imageCount: 4,
			want:       30, // 22000 + 3*2500 = 29500 -> 30
		},
		{
			name:       "penalty capped",
			samples:    []history.Sample{sample(history.ModeImage, 22_000)},
			mode:       history.ModeImage,
			imageCount: 10,
			want:       38, // 22000 + min(16000, 9*2500)
		},
		{
			name:       "no penalty in text mode",
			samples:    []history.Sample{sample(history.ModeText, 22_000)},
			mode:       history.ModeText,
			imageCount: 10,
			want:       22,
		},
		{
			name:    "clamped to lower bound",
			samples: []history.Sample{sample(history.ModeText, 1_000)},
			mode:    history.ModeText,
			want:    8,
		},
		{
			name:    "clamped to upper bound",
			samples: []history.Sample{sample(history.ModeImage, 400_000)},
			mode:    history.ModeImage,
			want:    90,
		},
		{
			name:    "rounds to nearest second",
			samples: []history.Sample{sample(history.ModeText, 10_400), sample(history.ModeText, 10_500)},
			mode:    history.ModeText,
			want:    10, // avg 10450 -> 10.45s
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Estimator{Store: fixedStore{samples: tc.samples}}
			got := e.Estimate(context.Background(), tc.mode, tc.imageCount)
			if got != tc.want {
				t.Fatalf("Estimate(%q, %d) = %d, want %d", tc.mode, tc.imageCount, got, tc.want)
			}
		})
	}
}

func TestEstimateWithoutStore(t *testing.T) {
	e := Estimator{}
	if got := e.Estimate(context.Background(), history.ModeImage, 1); got != 22 {
		t.Fatalf("Estimate() without store = %d, want 22", got)
	}
}

package sampler

import (
	"testing"

	"github.com/andresmejia3/moodring/internal/types"
)

func TestMajority(t *testing.T) {
	tests := []struct {
		name      string
		log       []types.Emotion
		want      types.Emotion
		wantCount int
	}{
		{
			name: "Empty log",
			log:  nil,
			want: "",
		},
		{
			name:      "Single label",
			log:       []types.Emotion{"neutral"},
			want:      "neutral",
			wantCount: 1,
		},
		{
			name:      "Clear winner",
			log:       []types.Emotion{"sad", "happy", "happy", "angry", "happy"},
			want:      "happy",
			wantCount: 3,
		},
		{
			name:      "Tie goes to first seen",
			log:       []types.Emotion{"happy", "sad", "happy", "sad"},
			want:      "happy",
			wantCount: 2,
		},
		{
			name:      "Tie goes to first seen, not first to reach the count",
			log:       []types.Emotion{"sad", "happy", "happy", "sad"},
			want:      "sad",
			wantCount: 2,
		},
		{
			name:      "Three-way tie",
			log:       []types.Emotion{"fear", "disgust", "surprise"},
			want:      "fear",
			wantCount: 1,
		},
		{
			name:      "Late majority beats early labels",
			log:       []types.Emotion{"angry", "sad", "neutral", "neutral"},
			want:      "neutral",
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := Majority(tt.log)
			if got != tt.want || count != tt.wantCount {
				t.Errorf("Majority(%v) = (%q, %d), want (%q, %d)", tt.log, got, count, tt.want, tt.wantCount)
			}
		})
	}
}

// The result must not depend on map iteration order.
func TestMajorityDeterministic(t *testing.T) {
	log := []types.Emotion{"sad", "happy", "angry", "happy", "sad", "angry"}
	for i := 0; i < 200; i++ {
		if got, _ := Majority(log); got != "sad" {
			t.Fatalf("run %d: Majority = %q, want sad", i, got)
		}
	}
}

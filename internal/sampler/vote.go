package sampler

import "github.com/andresmejia3/moodring/internal/types"

// Majority returns the most frequent label in log and its count.
// Ties go to the tied label that appears first in log.
// An empty log yields ("", 0).
func Majority(log []types.Emotion) (types.Emotion, int) {
	counts := make(map[types.Emotion]int, len(log))
	best := 0
	for _, e := range log {
		counts[e]++
		if counts[e] > best {
			best = counts[e]
		}
	}

	for _, e := range log {
		if counts[e] == best {
			return e, best
		}
	}
	return "", 0
}

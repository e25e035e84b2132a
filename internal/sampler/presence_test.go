package sampler

import (
	"context"
	"errors"
	"testing"

	"github.com/andresmejia3/moodring/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faceEvery reports one face on every nth frame and fails on frames listed in broken.
type faceEvery struct {
	nth    int
	broken map[int]bool
}

func (f faceEvery) CountFaces(frame types.Frame) (int, error) {
	if f.broken[frame.Index] {
		return 0, errors.New("decode failed")
	}
	if f.nth > 0 && frame.Index%f.nth == 0 {
		return 1, nil
	}
	return 0, nil
}

func TestPresenceVote(t *testing.T) {
	tests := []struct {
		faces, frames int
		want          types.Emotion
	}{
		{0, 0, types.Neutral},
		{0, 100, types.Neutral},
		{10, 100, types.Neutral}, // exactly 10% is not enough
		{11, 100, types.Happy},
		{1, 1, types.Happy},
		{1, 0, types.Happy},
	}
	for _, tt := range tests {
		if got := PresenceVote(tt.faces, tt.frames); got != tt.want {
			t.Errorf("PresenceVote(%d, %d) = %q, want %q", tt.faces, tt.frames, got, tt.want)
		}
	}
}

func TestSamplePresenceWholeStream(t *testing.T) {
	src := &fakeSource{n: 40}
	res, err := SamplePresence(context.Background(), src, faceEvery{nth: 5}, 0, Options{})
	require.NoError(t, err)
	assert.Equal(t, 40, res.Frames)
	assert.Equal(t, 8, res.Faces)
	assert.Equal(t, types.Happy, res.Emotion)
}

func TestSamplePresenceLimitAndErrors(t *testing.T) {
	src := &fakeSource{n: 100}
	counter := faceEvery{nth: 2, broken: map[int]bool{0: true, 2: true, 4: true, 6: true, 8: true}}

	res, err := SamplePresence(context.Background(), src, counter, 10, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Frames)
	assert.Zero(t, res.Faces, "counter failures count as frames without a face")
	assert.Equal(t, types.Neutral, res.Emotion)
	assert.Equal(t, 10, src.reads)
}

func TestSamplePresenceEmptyStream(t *testing.T) {
	res, err := SamplePresence(context.Background(), &fakeSource{}, faceEvery{nth: 1}, 0, Options{})
	require.NoError(t, err)
	assert.Equal(t, types.PresenceResult{Emotion: types.Neutral}, res)
}

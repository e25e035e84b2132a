package sampler

import (
	"context"
	"errors"
	"io"

	"github.com/andresmejia3/moodring/internal/types"
)

// PresenceRatio is the share of frames that must contain a face for the
// presence heuristic to report happy.
const PresenceRatio = 0.1

// FaceCounter reports how many faces a frame contains.
type FaceCounter interface {
	CountFaces(frame types.Frame) (int, error)
}

// SamplePresence reads frames from src until end of stream (or limit frames
// when limit > 0) and labels the session from the share of frames with a face.
// Counter errors count as frames without a face.
func SamplePresence(ctx context.Context, src Source, counter FaceCounter, limit int, opts Options) (types.PresenceResult, error) {
	log := opts.logger()
	var res types.PresenceResult

	for limit <= 0 || res.Frames < limit {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		frame, err := src.Read(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Debug("frame read failed, treating as end of stream")
			}
			break
		}
		res.Frames++

		n, err := counter.CountFaces(frame)
		if err != nil {
			log.WithError(err).WithField("frame", frame.Index).Debug("face count failed")
			continue
		}
		if n > 0 {
			res.Faces++
		}
	}

	res.Emotion = PresenceVote(res.Faces, res.Frames)
	return res, nil
}

// PresenceVote maps a face-presence count to a label.
func PresenceVote(faces, frames int) types.Emotion {
	if frames < 1 {
		frames = 1
	}
	if float64(faces)/float64(frames) > PresenceRatio {
		return types.Happy
	}
	return types.Neutral
}

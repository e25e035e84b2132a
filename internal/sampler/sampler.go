package sampler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/andresmejia3/moodring/internal/classify"
	"github.com/andresmejia3/moodring/internal/types"
	"github.com/sirupsen/logrus"
)

// ErrSourceUnavailable is returned when the capture source cannot be opened.
var ErrSourceUnavailable = errors.New("capture source unavailable")

// Source is an open capture device or video file.
// Read returns io.EOF once no more frames are available.
type Source interface {
	Read(ctx context.Context) (types.Frame, error)
	Close() error
}

// Opener opens a capture source from a device index or file path.
type Opener func(ctx context.Context, id string) (Source, error)

// Options controls a single sampling session.
type Options struct {
	// Frames is the maximum number of frames to read. Zero reads nothing.
	Frames int
	// Delay is slept between frames.
	Delay time.Duration
	// Stop is polled once per iteration, after the frame is handled.
	// Returning true ends the session early.
	Stop func() bool
	// Observe receives every per-frame outcome in order.
	Observe func(types.Outcome)
	Logger  logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

// Run opens the source identified by id, samples it and releases it on every exit path.
// An open failure is reported as ErrSourceUnavailable and nothing is read.
func Run(ctx context.Context, open Opener, id string, clf classify.Classifier, opts Options) (types.Result, error) {
	src, err := open(ctx, id)
	if err != nil {
		return types.Result{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			opts.logger().WithError(cerr).Debug("capture source close failed")
		}
	}()

	return Sample(ctx, src, clf, opts)
}

// Sample reads up to opts.Frames frames from src, classifies each one and
// reduces the successful labels by majority vote.
//
// A read error ends the stream. A classification error skips the frame,
// unless it wraps classify.ErrFatal or ctx is done, in which case the session
// is aborted.
func Sample(ctx context.Context, src Source, clf classify.Classifier, opts Options) (types.Result, error) {
	log := opts.logger()
	var res types.Result

	for i := 0; i < opts.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		frame, err := src.Read(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).WithField("frame", i).Debug("frame read failed, treating as end of stream")
			}
			break
		}
		res.FramesRead++

		out, err := classifyFrame(ctx, clf, frame)
		if err != nil {
			return res, err
		}
		if out.OK() {
			res.Log = append(res.Log, out.Emotion)
		} else {
			res.FramesSkipped++
			log.WithField("frame", frame.Index).Debugf("frame skipped: %s", out.Skipped)
		}
		if opts.Observe != nil {
			opts.Observe(out)
		}

		if opts.Stop != nil && opts.Stop() {
			log.Debug("sampling stopped early")
			break
		}
		if opts.Delay > 0 && i+1 < opts.Frames {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	res.Dominant, res.Count = Majority(res.Log)
	return res, nil
}

// classifyFrame turns a classifier call into an explicit Outcome.
// Only fatal classifier errors and cancellation are returned as errors.
func classifyFrame(ctx context.Context, clf classify.Classifier, frame types.Frame) (types.Outcome, error) {
	out := types.Outcome{Index: frame.Index}

	emotion, err := clf.Classify(ctx, frame)
	switch {
	case err != nil && ctx.Err() != nil:
		return out, ctx.Err()
	case errors.Is(err, classify.ErrFatal):
		return out, err
	case err != nil:
		out.Skipped = err.Error()
	case emotion == "":
		out.Skipped = "classifier returned no emotion"
	default:
		out.Emotion = emotion
	}
	return out, nil
}

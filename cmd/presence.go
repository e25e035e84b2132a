package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/andresmejia3/moodring/internal/presence"
	"github.com/andresmejia3/moodring/internal/sampler"
	"github.com/andresmejia3/moodring/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var presenceOpts Options

var presenceCmd = &cobra.Command{
	Use:   "presence <video_path>",
	Short: "Label a video from the share of frames that contain a face",
	Long: `A lightweight heuristic that needs no emotion model: if more than 10% of the
frames contain a face the video is labelled "happy", otherwise "neutral".

The face detector is OpenCV's haarcascade_frontalface_default.xml. It is taken
from --cascade or MOODRING_CASCADE, otherwise from ./data or the standard
OpenCV install directories.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if len(args) == 0 {
			return failJSON(os.Stdout, "Missing video path", nil)
		}
		presenceOpts.Cascade = appConfig.Cascade
		return runPresence(cmd.Context(), os.Stdout, args[0], presenceOpts)
	},
}

func init() {
	presenceCmd.Flags().IntVarP(&presenceOpts.Frames, "frames", "n", 0, "Maximum number of frames to inspect (0 = whole video)")
	presenceCmd.Flags().StringVarP(&presenceOpts.Decoder, "decoder", "d", decoderFFmpeg, "Video decoder: ffmpeg or opencv")
	presenceCmd.Flags().String("cascade", "", "Haar cascade XML used for face detection (default: search ./data and OpenCV install dirs)")
	presenceCmd.Flags().IntVar(&presenceOpts.MinFace, "min-face", 30, "Minimum face size in pixels")
	if err := v.BindPFlag("cascade", presenceCmd.Flags().Lookup("cascade")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(presenceCmd)
}

// faceCounter is a sampler.FaceCounter that holds detector resources.
type faceCounter interface {
	sampler.FaceCounter
	Close() error
}

func runPresence(ctx context.Context, out io.Writer, videoPath string, opts Options) error {
	if err := validateOptions(&opts); err != nil {
		return err
	}
	load := func() (faceCounter, error) {
		path, err := presence.ResolveCascade(opts.Cascade)
		if err != nil {
			return nil, err
		}
		c, err := presence.NewCascade(path, opts.MinFace)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return detectPresence(ctx, out, opener(opts.Decoder, false, nil), videoPath, load, opts)
}

// detectPresence opens the video before loading the detector, so an unreadable
// video is reported as such whatever the state of the detector.
func detectPresence(ctx context.Context, out io.Writer, open sampler.Opener, videoPath string, load func() (faceCounter, error), opts Options) error {
	src, err := open(ctx, videoPath)
	if err != nil {
		logger.WithError(err).Debug("video open failed")
		return failJSON(out, "Failed to open video", errors.Join(sampler.ErrSourceUnavailable, err))
	}
	defer src.Close()

	counter, err := load()
	if err != nil {
		logger.WithError(err).Debug("face detector load failed")
		return failJSON(out, "Failed to load face detector", err)
	}
	defer counter.Close()

	res, err := sampler.SamplePresence(ctx, src, counter, opts.Frames, sampler.Options{Logger: logger})
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"frames": res.Frames, "faces": res.Faces}).Debug("presence sampled")

	recordSession(ctx, store.Session{
		Command:       "presence",
		Source:        videoPath,
		Backend:       "haar",
		Dominant:      res.Emotion,
		DominantCount: res.Faces,
		FramesRead:    res.Frames,
	})
	return writeJSON(out, emotionOnly{Emotion: res.Emotion})
}

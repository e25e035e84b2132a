package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/moodring/internal/capture"
	"github.com/andresmejia3/moodring/internal/classify"
	"github.com/andresmejia3/moodring/internal/sampler"
	"github.com/andresmejia3/moodring/internal/types"
	"github.com/andresmejia3/moodring/internal/utils"
	"github.com/spf13/cobra"
)

var videoOpts Options

var videoCmd = &cobra.Command{
	Use:   "video <video_path> <output_path>",
	Short: "Majority-vote the emotion of a video's opening frames into a file",
	Long: `Classifies up to --frames frames from the start of a video and writes the
majority emotion as a bare label to output_path. An empty file means no frame
could be classified.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runVideo(cmd.Context(), args[0], args[1], videoOpts)
	},
}

func init() {
	videoCmd.Flags().IntVarP(&videoOpts.Frames, "frames", "n", 30, "Maximum number of frames to analyze")
	videoCmd.Flags().StringVarP(&videoOpts.Decoder, "decoder", "d", decoderFFmpeg, "Video decoder: ffmpeg or opencv")
	videoCmd.Flags().StringVarP(&videoOpts.Backend, "backend", "b", classify.DefaultBackend, "Face detector backend")
	rootCmd.AddCommand(videoCmd)
}

func runVideo(ctx context.Context, videoPath, outputPath string, opts Options) error {
	if err := validateOptions(&opts); err != nil {
		return err
	}
	if err := validateVideoPath(videoPath); err != nil {
		utils.ShowError("Failed to open video", err, nil)
		return silentError{fmt.Errorf("%w: %v", sampler.ErrSourceUnavailable, err)}
	}

	clf, cleanup, err := newClassifier(ctx, opts.Backend)
	if err != nil {
		utils.ShowError("Failed to start classifier", err, nil)
		return silentError{err}
	}
	defer cleanup()

	return sampleVideo(ctx, opener(opts.Decoder, false, nil), videoPath, outputPath, opts, clf)
}

// sampleVideo classifies the opening frames of videoPath and writes the majority
// label to outputPath. Nothing is written when the video or the classifier fails.
func sampleVideo(ctx context.Context, open sampler.Opener, videoPath, outputPath string, opts Options, clf classify.Classifier) error {
	total := opts.Frames
	if n := capture.CountFrames(ctx, videoPath); n > 0 && n < total {
		total = n
	}
	bar := newBar(total, "🔍 Sampling video")

	fmt.Fprintf(os.Stderr, "📼 Sampling up to %d frames from %s\n", opts.Frames, videoPath)
	res, err := sampler.Run(ctx, open, videoPath, clf, sampler.Options{
		Frames:  opts.Frames,
		Logger:  logger,
		Observe: func(_ types.Outcome) { bar.Add(1) },
	})
	bar.Finish()
	switch {
	case errors.Is(err, sampler.ErrSourceUnavailable):
		utils.ShowError("Failed to open video", err, nil)
		return silentError{err}
	case errors.Is(err, classify.ErrFatal):
		utils.ShowError("Classifier crashed", err, workerLogs(clf))
		return silentError{err}
	case err != nil:
		return err
	}

	if err := writeLabelFile(outputPath, res.Dominant); err != nil {
		utils.ShowError("Failed to write output file", err, nil)
		return silentError{err}
	}

	sess := newSession("video", videoPath, opts.Backend, res)
	if id, err := capture.Fingerprint(videoPath); err == nil {
		sess.SourceID = id
	}
	recordSession(ctx, sess)

	if res.Empty() {
		fmt.Fprintf(os.Stderr, "⚠️  No frame could be classified (%d read). Wrote an empty label to %s\n", res.FramesRead, outputPath)
		return nil
	}
	fmt.Fprintf(os.Stderr, "🏁 %s (%d of %d classified frames) -> %s\n", res.Dominant, res.Count, len(res.Log), outputPath)
	return nil
}

// validateVideoPath rejects missing paths and directories before any process is started.
func validateVideoPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %w", err)
		}
		return fmt.Errorf("unable to access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory, expected a video file", path)
	}
	return nil
}

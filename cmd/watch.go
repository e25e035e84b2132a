package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/moodring/internal/capture/opencv"
	"github.com/andresmejia3/moodring/internal/classify"
	"github.com/andresmejia3/moodring/internal/sampler"
	"github.com/andresmejia3/moodring/internal/types"
	"github.com/andresmejia3/moodring/internal/utils"
	"github.com/spf13/cobra"
)

var watchOpts Options

var watchCmd = &cobra.Command{
	Use:   "watch [backend]",
	Short: "Sample the webcam for a while and print an emotion summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if len(args) == 1 {
			watchOpts.Backend = args[0]
		}
		return runWatch(cmd.Context(), os.Stdout, watchOpts)
	},
}

func init() {
	watchCmd.Flags().IntVarP(&watchOpts.Frames, "frames", "n", 30, "Number of frames to analyze before summarizing")
	watchCmd.Flags().StringVar(&watchOpts.Delay, "delay", "500ms", "Pause between analyzed frames")
	watchCmd.Flags().StringVar(&watchOpts.Device, "device", "0", "Webcam device index")
	watchCmd.Flags().BoolVarP(&watchOpts.Preview, "preview", "p", false, "Show frames with the detected emotion; press 'q' to quit early")
	watchCmd.Flags().StringVarP(&watchOpts.Format, "format", "f", "json", "Summary format: json or yaml")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, out io.Writer, opts Options) error {
	if err := validateOptions(&opts); err != nil {
		return err
	}

	clf, cleanup, err := newClassifier(ctx, opts.Backend)
	if err != nil {
		utils.ShowError("Failed to start classifier", err, nil)
		return failJSON(out, "Classifier unavailable", err)
	}
	defer cleanup()

	var cam *opencv.Source
	show := func(o types.Outcome) {
		if cam == nil {
			return
		}
		label := string(o.Emotion)
		if !o.OK() {
			label = "-"
		}
		cam.Show(label)
	}
	stop := func() bool { return cam != nil && cam.Quit() }
	return watchSession(ctx, out, opener(decoderOpenCV, opts.Preview, &cam), opts, clf, show, stop)
}

// watchSession samples the webcam and prints the summary. show and stop drive the
// optional preview window and may be nil.
func watchSession(ctx context.Context, out io.Writer, open sampler.Opener, opts Options, clf classify.Classifier, show func(types.Outcome), stop func() bool) error {
	if opts.Preview {
		fmt.Fprintln(os.Stderr, "🎥 Capturing emotion data... Press 'q' to quit early.")
	} else {
		fmt.Fprintln(os.Stderr, "🎥 Capturing emotion data...")
	}

	bar := newBar(opts.Frames, "🧠 Analyzing")
	sopts := sampler.Options{
		Frames: opts.Frames,
		Delay:  opts.delay(),
		Logger: logger,
		Observe: func(o types.Outcome) {
			bar.Add(1)
			if show != nil {
				show(o)
			}
		},
		Stop: stop,
	}

	res, err := sampler.Run(ctx, open, opts.Device, clf, sopts)
	bar.Finish()
	switch {
	case errors.Is(err, sampler.ErrSourceUnavailable):
		return failJSON(out, "Webcam not accessible", err)
	case errors.Is(err, classify.ErrFatal):
		utils.ShowError("Classifier crashed", err, workerLogs(clf))
		return failJSON(out, fmt.Sprintf("Classifier error: %v", err), err)
	case err != nil:
		return err
	}

	recordSession(ctx, newSession("watch", "device:"+opts.Device, opts.Backend, res))
	return writeSummary(out, res, opts.Format)
}

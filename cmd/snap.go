package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/moodring/internal/classify"
	"github.com/andresmejia3/moodring/internal/sampler"
	"github.com/andresmejia3/moodring/internal/types"
	"github.com/andresmejia3/moodring/internal/utils"
	"github.com/spf13/cobra"
)

var snapOpts Options

var snapCmd = &cobra.Command{
	Use:   "snap [backend]",
	Short: "Classify a single webcam frame and print the dominant emotion",
	Long: `Grabs one frame from the webcam and prints its dominant emotion as a bare label.
Prints "unknown" and exits 1 when no frame or no emotion could be obtained.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if len(args) == 1 {
			snapOpts.Backend = args[0]
		}
		return runSnap(cmd.Context(), os.Stdout, snapOpts)
	},
}

func init() {
	snapCmd.Flags().StringVar(&snapOpts.Device, "device", "0", "Webcam device index")
	rootCmd.AddCommand(snapCmd)
}

func runSnap(ctx context.Context, out io.Writer, opts Options) error {
	opts.Frames = 1
	if err := validateOptions(&opts); err != nil {
		return err
	}

	clf, cleanup, err := newClassifier(ctx, opts.Backend)
	if err != nil {
		utils.ShowError("Failed to start classifier", err, nil)
		fmt.Fprintln(out, types.Unknown)
		return silentError{err}
	}
	defer cleanup()

	res, err := snap(ctx, opener(decoderOpenCV, false, nil), opts, clf)
	if err != nil {
		fmt.Fprintln(out, types.Unknown)
		return silentError{err}
	}

	recordSession(ctx, newSession("snap", "device:"+opts.Device, opts.Backend, res))
	if res.Empty() {
		fmt.Fprintln(out, types.Unknown)
		return silentError{errors.New("no emotion detected")}
	}
	fmt.Fprintln(out, res.Dominant)
	return nil
}

// snap samples one frame, reporting failures on stderr the way the other commands do.
func snap(ctx context.Context, open sampler.Opener, opts Options, clf classify.Classifier) (types.Result, error) {
	res, err := sampler.Run(ctx, open, opts.Device, clf, sampler.Options{Frames: opts.Frames, Logger: logger})
	switch {
	case errors.Is(err, sampler.ErrSourceUnavailable):
		utils.ShowError("Webcam not accessible", err, nil)
	case errors.Is(err, classify.ErrFatal):
		utils.ShowError("Classifier crashed", err, workerLogs(clf))
	case err != nil:
		logger.WithError(err).Debug("snap interrupted")
	}
	return res, err
}

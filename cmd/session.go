package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andresmejia3/moodring/internal/capture"
	"github.com/andresmejia3/moodring/internal/capture/opencv"
	"github.com/andresmejia3/moodring/internal/classify"
	"github.com/andresmejia3/moodring/internal/sampler"
	"github.com/andresmejia3/moodring/internal/store"
	"github.com/andresmejia3/moodring/internal/types"
	"github.com/andresmejia3/moodring/internal/utils"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"
)

const (
	decoderFFmpeg = "ffmpeg"
	decoderOpenCV = "opencv"
)

// newClassifier starts the configured classifier with the requested detector backend.
// The returned cleanup must be called once sampling is done.
func newClassifier(ctx context.Context, backend string) (classify.Classifier, func(), error) {
	cfg := appConfig.Classifier
	cfg.Backend = backend

	fmt.Fprintf(os.Stderr, "🚀 Starting %s classifier (detector: %s)...\n", kindName(cfg.Kind), backend)
	clf, err := classify.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if c, ok := clf.(classify.Closer); ok {
			if err := c.Close(); err != nil {
				logger.WithError(err).Debug("classifier close failed")
			}
		}
	}
	return clf, cleanup, nil
}

func kindName(kind string) string {
	if kind == "" {
		return "deepface"
	}
	return kind
}

// workerLogs returns the worker process of clf, if any, for crash reports.
func workerLogs(clf classify.Classifier) *utils.SafeCommand {
	if w, ok := clf.(*classify.Worker); ok {
		return w.Command()
	}
	return nil
}

// opener returns a sampler.Opener for the chosen decoder. When the OpenCV
// decoder is used, *cam is set to the opened source so the caller can drive
// the preview window.
func opener(decoder string, preview bool, cam **opencv.Source) sampler.Opener {
	return func(ctx context.Context, id string) (sampler.Source, error) {
		src := capture.ParseSource(id)
		if decoder == decoderFFmpeg && !src.IsDevice() {
			s, err := capture.OpenFFmpeg(ctx, src.Path)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		s, err := opencv.Open(ctx, src, preview)
		if err != nil {
			return nil, err
		}
		if cam != nil {
			*cam = s
		}
		return s, nil
	}
}

// newBar creates a stderr progress bar; total <= 0 falls back to a spinner.
func newBar(total int, desc string) *progressbar.ProgressBar {
	if total <= 0 {
		total = -1
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// recordSession stores a finished session when history is enabled.
// Failures are logged and never change the command's outcome.
func recordSession(ctx context.Context, sess store.Session) {
	if DB == nil {
		return
	}
	// The command context may already be cancelled after Ctrl+C.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	id, err := DB.InsertSession(ctx, sess)
	if err != nil {
		logger.WithError(err).Warn("failed to record session history")
		return
	}
	logger.WithField("session", id).Debug("session recorded")
}

func newSession(command, source, backend string, res types.Result) store.Session {
	return store.Session{
		Command:       command,
		Source:        source,
		Backend:       backend,
		Dominant:      res.Dominant,
		DominantCount: res.Count,
		FramesRead:    res.FramesRead,
		FramesSkipped: res.FramesSkipped,
		Log:           res.Log,
	}
}

// --- Output ---

type emotionSummary struct {
	Summary types.Result `json:"emotion_summary" yaml:"emotion_summary"`
}

type emotionOnly struct {
	Emotion types.Emotion `json:"emotion"`
}

// writeSummary prints the session summary as indented JSON or YAML.
// An empty session is reported with the unknown sentinel.
func writeSummary(w io.Writer, res types.Result, format string) error {
	if res.Empty() {
		res = types.Result{Dominant: types.Unknown, Log: []types.Emotion{}}
	}
	out := emotionSummary{Summary: res}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

// writeJSON prints v as a single-line JSON object.
func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// failJSON prints {"error": msg} and returns an error that exits 1 without further output.
func failJSON(w io.Writer, msg string, cause error) error {
	if err := writeJSON(w, types.ErrorResult{Error: msg}); err != nil {
		return err
	}
	if cause == nil {
		cause = errors.New(msg)
	}
	return silentError{cause}
}

// writeLabelFile writes the bare label, without a newline, to path.
func writeLabelFile(path string, label types.Emotion) error {
	return os.WriteFile(path, []byte(label), 0644)
}

// validateOptions checks the flags shared by the sampling commands.
func validateOptions(opts *Options) error {
	if opts.Frames < 0 {
		return fmt.Errorf("invalid frame limit: must be >= 0, got %d", opts.Frames)
	}
	if opts.Delay != "" {
		d, err := time.ParseDuration(opts.Delay)
		if err != nil {
			return fmt.Errorf("invalid delay format (use '500ms', '1s'): %w", err)
		}
		if d < 0 {
			return fmt.Errorf("invalid delay: must not be negative, got %s", d)
		}
	}
	switch opts.Decoder {
	case "", decoderFFmpeg, decoderOpenCV:
	default:
		return fmt.Errorf("invalid decoder %q (want ffmpeg or opencv)", opts.Decoder)
	}
	switch opts.Format {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("invalid format %q (want json or yaml)", opts.Format)
	}
	if opts.Backend == "" {
		opts.Backend = classify.DefaultBackend
	}
	return nil
}

// delay returns the parsed inter-frame delay; validateOptions has already checked it.
func (o Options) delay() time.Duration {
	d, _ := time.ParseDuration(o.Delay)
	return d
}

package classify

import (
	"context"
	"fmt"

	"github.com/andresmejia3/moodring/internal/types"
	"github.com/andresmejia3/moodring/internal/utils"
	"github.com/andresmejia3/moodring/internal/worker"
)

// frameProcessor is the slice of worker.PythonWorker used here.
type frameProcessor interface {
	ProcessFrame(frame []byte) (types.EmotionResponse, error)
	Close()
}

// Worker classifies frames with a long-lived DeepFace worker process.
type Worker struct {
	proc frameProcessor
	cmd  *utils.SafeCommand
}

// NewWorker starts the Python worker described by cfg.
func NewWorker(ctx context.Context, cfg Config) (*Worker, error) {
	w, err := worker.NewPythonWorker(ctx, 0, worker.Config{
		Python:      cfg.Python,
		Script:      cfg.Script,
		Backend:     cfg.Backend,
		ReadTimeout: cfg.ReadTimeout,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return nil, err
	}
	return &Worker{proc: w, cmd: w.Cmd}, nil
}

// Classify implements Classifier. Transport failures wrap ErrFatal, except when
// ctx was cancelled, since cancelling ctx kills the worker process.
func (w *Worker) Classify(ctx context.Context, frame types.Frame) (types.Emotion, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := w.proc.ProcessFrame(frame.Data)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return "", cerr
		}
		return "", fmt.Errorf("%w: deepface worker: %v", ErrFatal, err)
	}
	return decode(resp)
}

// Command exposes the worker process so crash logs can be shown.
func (w *Worker) Command() *utils.SafeCommand { return w.cmd }

func (w *Worker) Close() error {
	w.proc.Close()
	return nil
}

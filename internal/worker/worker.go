package worker

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/andresmejia3/moodring/internal/types"
	"github.com/andresmejia3/moodring/internal/utils" // Using the SafeCommand wrapper
)

// DefaultScript is the DeepFace worker shipped with the repository.
const DefaultScript = "python/emotion_worker.py"

// maxResponse caps a single response body; an emotion reply is a few hundred bytes.
const maxResponse = 1 << 20

// ErrTimeout is returned when the worker does not answer within Config.ReadTimeout.
var ErrTimeout = errors.New("worker read timed out")

// Config holds the settings passed to the Python process at startup.
type Config struct {
	Python      string
	Script      string
	Backend     string
	ReadTimeout time.Duration
	Debug       bool
}

type PythonWorker struct {
	ID          int
	Cmd         *utils.SafeCommand
	Stdin       io.WriteCloser
	DataPipe    io.ReadCloser
	ReadTimeout time.Duration
}

// NewPythonWorker starts the DeepFace worker. Detection is always permissive:
// the worker is told never to enforce face detection.
func NewPythonWorker(ctx context.Context, id int, cfg Config) (*PythonWorker, error) {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Script == "" {
		cfg.Script = DefaultScript
	}

	args := []string{"-u", cfg.Script,
		"--backend", cfg.Backend,
		"--enforce-detection", strconv.FormatBool(false),
	}
	if cfg.Debug {
		args = append(args, "--debug")
	}
	py := utils.NewSafeCommand(ctx, cfg.Python, args...)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonWorker{
		ID:          id,
		Cmd:         py,
		Stdin:       stdin,
		DataPipe:    r,
		ReadTimeout: cfg.ReadTimeout,
	}, nil
}

// Communicate sends one length-prefixed payload and reads one length-prefixed reply.
func (w *PythonWorker) Communicate(data []byte) ([]byte, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	if w.ReadTimeout <= 0 {
		return w.readResponse()
	}

	type reply struct {
		body []byte
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		body, err := w.readResponse()
		done <- reply{body, err}
	}()

	timer := time.NewTimer(w.ReadTimeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.body, r.err
	case <-timer.C:
		// The reader goroutine unblocks once the process dies and the pipe closes.
		if w.Cmd != nil && w.Cmd.Process != nil {
			w.Cmd.Process.Kill()
		}
		return nil, fmt.Errorf("%w after %s", ErrTimeout, w.ReadTimeout)
	}
}

func (w *PythonWorker) readResponse() ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err // This is where we catch the "ModuleNotFoundError" crash
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponse {
		return nil, fmt.Errorf("worker response too large: %d bytes", respLen)
	}
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

// ProcessFrame sends a JPEG frame and decodes the emotion reply.
// A returned error means the worker itself is unusable; a per-frame analysis
// failure comes back in EmotionResponse.Error.
func (w *PythonWorker) ProcessFrame(frame []byte) (types.EmotionResponse, error) {
	var resp types.EmotionResponse

	body, err := w.Communicate(frame)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		// Garbage data still means the worker is alive; report it per frame.
		resp.Error = fmt.Sprintf("malformed worker response: %v", err)
	}
	return resp, nil
}

func (w *PythonWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}

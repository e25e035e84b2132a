package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/moodring/internal/types"
)

// ErrFatal marks a classifier failure that makes further frames pointless,
// such as a crashed worker process or an unreachable service.
var ErrFatal = errors.New("classifier failed")

// DefaultBackend is the face detector requested when none is given.
const DefaultBackend = "mediapipe"

// Classifier returns the dominant emotion of a single frame.
// Implementations always run with permissive face detection, so a frame
// without a detectable face still yields a best-effort label.
type Classifier interface {
	Classify(ctx context.Context, frame types.Frame) (types.Emotion, error)
}

// Closer is implemented by classifiers that hold external resources.
type Closer interface {
	Close() error
}

// Config selects and configures a classifier implementation.
type Config struct {
	Kind        string // "deepface" or "http"
	Backend     string // face detector backend, e.g. mediapipe, opencv, retinaface
	URL         string // base URL of the HTTP service
	Script      string // path to the DeepFace worker script
	Python      string
	ReadTimeout time.Duration
	Debug       bool
}

// New builds the classifier described by cfg.
func New(ctx context.Context, cfg Config) (Classifier, error) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	switch cfg.Kind {
	case "", "deepface":
		w, err := NewWorker(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return w, nil
	case "http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("http classifier needs a service URL")
		}
		return NewHTTP(cfg), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q (want deepface or http)", cfg.Kind)
	}
}

// decode converts a worker/service response into a label or a per-frame error.
func decode(resp types.EmotionResponse) (types.Emotion, error) {
	if resp.Error != "" {
		return "", fmt.Errorf("classifier: %s", resp.Error)
	}
	e := types.NormalizeEmotion(resp.DominantEmotion)
	if e == "" {
		return "", errors.New("classifier: no dominant emotion in response")
	}
	return e, nil
}

package classify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andresmejia3/moodring/internal/types"
)

// AnalyzeReq is the body posted to the facial emotion service's /analyze endpoint.
type AnalyzeReq struct {
	Image            string   `json:"image"` // base64 JPEG
	Actions          []string `json:"actions"`
	DetectorBackend  string   `json:"detector_backend"`
	EnforceDetection bool     `json:"enforce_detection"`
}

// HTTP classifies frames by posting them to a facial emotion service.
type HTTP struct {
	c       *http.Client
	url     string
	backend string
}

// NewHTTP returns a client for the service at cfg.URL. A zero ReadTimeout means 60s.
func NewHTTP(cfg Config) *HTTP {
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTP{
		c:       &http.Client{Timeout: timeout},
		url:     strings.TrimRight(cfg.URL, "/"),
		backend: cfg.Backend,
	}
}

// Classify implements Classifier. A service that cannot be reached wraps ErrFatal;
// a non-200 reply or an undecodable body is a per-frame failure.
func (h *HTTP) Classify(ctx context.Context, frame types.Frame) (types.Emotion, error) {
	b, err := json.Marshal(AnalyzeReq{
		Image:            base64.StdEncoding.EncodeToString(frame.Data),
		Actions:          []string{"emotion"},
		DetectorBackend:  h.backend,
		EnforceDetection: false,
	})
	if err != nil {
		return "", fmt.Errorf("emotion encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url+"/analyze", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFatal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return "", fmt.Errorf("%w: %v", ErrFatal, err)
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("emotion %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out types.EmotionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("emotion decode: %w", err)
	}
	return decode(out)
}

func (h *HTTP) Close() error {
	h.c.CloseIdleConnections()
	return nil
}

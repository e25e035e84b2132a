package classify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresmejia3/moodring/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProc struct {
	resp   types.EmotionResponse
	err    error
	closed bool
}

func (f *fakeProc) ProcessFrame(frame []byte) (types.EmotionResponse, error) { return f.resp, f.err }
func (f *fakeProc) Close()                                                    { f.closed = true }

var frame = types.Frame{Index: 7, Data: []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}}

func TestWorkerClassify(t *testing.T) {
	tests := []struct {
		name      string
		proc      *fakeProc
		want      types.Emotion
		wantErr   bool
		wantFatal bool
	}{
		{
			name: "Label is normalized",
			proc: &fakeProc{resp: types.EmotionResponse{DominantEmotion: " Happy\n"}},
			want: types.Happy,
		},
		{
			name:    "Worker logic error is per frame",
			proc:    &fakeProc{resp: types.EmotionResponse{Error: "Face could not be detected"}},
			wantErr: true,
		},
		{
			name:    "Missing label is per frame",
			proc:    &fakeProc{resp: types.EmotionResponse{}},
			wantErr: true,
		},
		{
			name:      "Transport error is fatal",
			proc:      &fakeProc{err: io.EOF},
			wantErr:   true,
			wantFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Worker{proc: tt.proc}
			got, err := w.Classify(context.Background(), frame)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantFatal, errors.Is(err, ErrFatal))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkerClassifyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	proc := &cancelProc{cancel: cancel}
	w := &Worker{proc: proc}

	_, err := w.Classify(ctx, frame)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrFatal), "an interrupted worker is not a crash")
}

// cancelProc simulates the worker being killed by context cancellation mid-frame.
type cancelProc struct{ cancel context.CancelFunc }

func (p *cancelProc) ProcessFrame(frame []byte) (types.EmotionResponse, error) {
	p.cancel()
	return types.EmotionResponse{}, io.EOF
}
func (p *cancelProc) Close() {}

func TestWorkerClose(t *testing.T) {
	proc := &fakeProc{}
	w := &Worker{proc: proc}
	require.NoError(t, w.Close())
	assert.True(t, proc.closed)
}

func TestHTTPClassify(t *testing.T) {
	var got AnalyzeReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(types.EmotionResponse{DominantEmotion: "surprise"})
	}))
	defer srv.Close()

	h := NewHTTP(Config{URL: srv.URL + "/", Backend: "retinaface"})
	defer h.Close()

	e, err := h.Classify(context.Background(), frame)
	require.NoError(t, err)
	assert.Equal(t, types.Surprise, e)

	data, err := base64.StdEncoding.DecodeString(got.Image)
	require.NoError(t, err)
	assert.Equal(t, frame.Data, data)
	assert.Equal(t, []string{"emotion"}, got.Actions)
	assert.Equal(t, "retinaface", got.DetectorBackend)
	assert.False(t, got.EnforceDetection, "detection must always be permissive")
}

func TestHTTPClassifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
		},
		{
			name: "Garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>"))
			},
		},
		{
			name: "Error object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(types.ErrorResult{Error: "no face"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTP(Config{URL: srv.URL}).Classify(context.Background(), frame)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrFatal), "a bad reply only skips the frame")
		})
	}
}

func TestHTTPClassifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(Config{URL: url}).Classify(context.Background(), frame)
	require.ErrorIs(t, err, ErrFatal)
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "http"})
	assert.Error(t, err, "http without URL")

	_, err = New(context.Background(), Config{Kind: "tensorflow"})
	assert.Error(t, err)

	clf, err := New(context.Background(), Config{Kind: "http", URL: "http://localhost:5005"})
	require.NoError(t, err)
	h, ok := clf.(*HTTP)
	require.True(t, ok)
	assert.Equal(t, DefaultBackend, h.backend)
}

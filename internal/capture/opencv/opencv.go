// Package opencv captures frames from webcams and video files through OpenCV.
package opencv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/andresmejia3/moodring/internal/capture"
	"github.com/andresmejia3/moodring/internal/types"
	"gocv.io/x/gocv"
)

// WindowName is the title of the preview window.
const WindowName = "Emotion Detection"

var labelColor = color.RGBA{0, 255, 0, 0}

// Source reads frames from a gocv.VideoCapture and hands them out JPEG encoded.
type Source struct {
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	next   int
	window *gocv.Window
	quit   bool
}

// Open opens a webcam or video file. With preview set, frames are shown in a
// window and the q key requests an early stop.
func Open(ctx context.Context, id capture.SourceID, preview bool) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if id.IsDevice() {
		vc, err = gocv.OpenVideoCapture(id.Device)
	} else {
		vc, err = gocv.OpenVideoCapture(id.Path)
	}
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("could not open %s", id)
	}

	s := &Source{vc: vc, mat: gocv.NewMat()}
	if preview {
		s.window = gocv.NewWindow(WindowName)
	}
	return s, nil
}

// Read grabs and encodes the next frame. A failed grab or an empty image is io.EOF.
func (s *Source) Read(ctx context.Context) (types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return types.Frame{}, err
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return types.Frame{}, io.EOF
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.mat)
	if err != nil {
		return types.Frame{}, fmt.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()

	// GetBytes points into C memory owned by buf.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	f := types.Frame{Index: s.next, Data: data}
	s.next++
	return f, nil
}

// Show draws label on the last frame read and refreshes the preview window.
// It is a no-op without a preview.
func (s *Source) Show(label string) {
	if s.window == nil || s.mat.Empty() {
		return
	}
	gocv.PutText(&s.mat, "Emotion: "+label, image.Pt(10, 40), gocv.FontHersheySimplex, 1, labelColor, 2)
	s.window.IMShow(s.mat)
	if key := s.window.WaitKey(1); key&0xFF == 'q' {
		s.quit = true
	}
}

// Quit reports whether q was pressed in the preview window.
func (s *Source) Quit() bool { return s.quit }

func (s *Source) Close() error {
	var errs []error
	if s.window != nil {
		errs = append(errs, s.window.Close())
	}
	errs = append(errs, s.mat.Close(), s.vc.Close())
	return errors.Join(errs...)
}

// Package presence counts faces in frames with an OpenCV Haar cascade.
package presence

import (
	"fmt"
	"image"

	"github.com/andresmejia3/moodring/internal/types"
	"gocv.io/x/gocv"
)

// Cascade implements sampler.FaceCounter.
type Cascade struct {
	classifier gocv.CascadeClassifier
	minSize    image.Point
}

// NewCascade loads the cascade XML at path, usually found with ResolveCascade.
// Faces smaller than minFace pixels on a side are ignored.
func NewCascade(path string, minFace int) (*Cascade, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier from %s", path)
	}
	return &Cascade{classifier: classifier, minSize: image.Pt(minFace, minFace)}, nil
}

// CountFaces decodes the JPEG frame and returns the number of detected faces.
func (c *Cascade) CountFaces(frame types.Frame) (int, error) {
	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadGrayScale)
	if err != nil {
		return 0, fmt.Errorf("failed to decode frame %d: %w", frame.Index, err)
	}
	defer mat.Close()
	if mat.Empty() {
		return 0, fmt.Errorf("frame %d decoded to an empty image", frame.Index)
	}

	rects := c.classifier.DetectMultiScaleWithParams(mat, 1.1, 3, 0, c.minSize, image.Pt(0, 0))
	return len(rects), nil
}

func (c *Cascade) Close() error {
	return c.classifier.Close()
}

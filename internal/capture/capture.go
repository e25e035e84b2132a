package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

// DefaultDevice is the identifier of the default webcam.
const DefaultDevice = "0"

// SourceID names a capture source: a device index or a file path.
type SourceID struct {
	Device int
	Path   string
}

// IsDevice reports whether the source is a capture device.
func (s SourceID) IsDevice() bool { return s.Path == "" }

func (s SourceID) String() string {
	if s.IsDevice() {
		return fmt.Sprintf("device:%d", s.Device)
	}
	return s.Path
}

// ParseSource treats a non-negative decimal string as a device index and
// anything else as a file path.
func ParseSource(id string) SourceID {
	if n, err := strconv.Atoi(id); err == nil && n >= 0 {
		return SourceID{Device: n}
	}
	return SourceID{Path: id}
}

// Fingerprint creates a deterministic hash for a video file
// based on its path, size, and modification time.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	input := fmt.Sprintf("%s-%d-%d", path, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:]), nil
}

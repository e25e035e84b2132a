package presence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// CascadeFile is the file name of OpenCV's frontal face model.
const CascadeFile = "haarcascade_frontalface_default.xml"

// ErrNoCascade is returned when no cascade path was given and none was found
// in the usual OpenCV install locations.
var ErrNoCascade = errors.New("no face cascade found (set --cascade or MOODRING_CASCADE)")

// cascadeDirs are searched in order when no cascade path is configured.
var cascadeDirs = []string{
	"data",
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/usr/local/share/opencv/haarcascades",
}

// ResolveCascade returns path when it names a readable file. An empty path
// searches ./data, the directory of the executable and the standard OpenCV
// haarcascades directories for CascadeFile.
func ResolveCascade(path string) (string, error) {
	dirs := cascadeDirs
	if exe, err := os.Executable(); err == nil {
		dirs = append([]string{dirs[0], filepath.Join(filepath.Dir(exe), "data")}, dirs[1:]...)
	}
	return resolveCascade(path, dirs)
}

func resolveCascade(path string, dirs []string) (string, error) {
	if path != "" {
		if !isFile(path) {
			return "", fmt.Errorf("face cascade %s is not a readable file", path)
		}
		return path, nil
	}
	for _, dir := range dirs {
		if p := filepath.Join(dir, CascadeFile); isFile(p) {
			return p, nil
		}
	}
	return "", ErrNoCascade
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

package capture

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/andresmejia3/moodring/internal/types"
	"github.com/andresmejia3/moodring/internal/utils"
)

const megabyte = 1024 * 1024

var (
	JpegSOI = []byte{0xFF, 0xD8} // Start of Image
	JpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// FFmpegSource decodes a video file into JPEG frames through an ffmpeg pipe.
type FFmpegSource struct {
	cmd     *utils.SafeCommand
	out     io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
	next    int
}

// OpenFFmpeg starts ffmpeg on path. It fails if the file is missing, is a
// directory, or ffmpeg is not installed.
func OpenFFmpeg(ctx context.Context, path string) (*FFmpegSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a video file", path)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	ffmpeg := NewFFmpegCmd(ctx, path)
	out, err := ffmpeg.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create FFmpeg stdout pipe: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(SplitJpeg)

	return &FFmpegSource{cmd: ffmpeg, out: out, scanner: scanner, cancel: cancel}, nil
}

// Read returns the next frame, or io.EOF when ffmpeg has no more output.
// Scanner failures (truncated stream, oversized frame) also end the stream.
func (s *FFmpegSource) Read(ctx context.Context) (types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return types.Frame{}, err
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return types.Frame{}, fmt.Errorf("frame scanner failed: %w", err)
		}
		return types.Frame{}, io.EOF
	}
	// The scanner reuses its buffer, so the frame needs its own copy.
	data := make([]byte, len(s.scanner.Bytes()))
	copy(data, s.scanner.Bytes())

	f := types.Frame{Index: s.next, Data: data}
	s.next++
	return f, nil
}

// Close stops ffmpeg, which may still be decoding when the frame limit is hit.
func (s *FFmpegSource) Close() error {
	s.cancel()
	s.out.Close()
	err := s.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || errors.Is(err, context.Canceled) {
		// Killed on purpose, or ffmpeg choking on a truncated input. Frames already read stand.
		return nil
	}
	return err
}

// Logs returns whatever ffmpeg wrote to stderr.
func (s *FFmpegSource) Logs() string { return s.cmd.Stderr.String() }

// CountFrames uses ffprobe to read the frame count for the progress bar.
// It returns 0 if the count is unavailable.
func CountFrames(ctx context.Context, path string) int {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0
	}

	type ffprobeOutput struct {
		Streams []struct {
			NbFrames string `json:"nb_frames"`
		} `json:"streams"`
	}

	// Container metadata only; counting packets would decode the whole file for a 30 frame sample.
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0", "-show_entries", "stream=nb_frames", "-of", "json", path)
	out, err := cmd.Output()
	if err != nil {
		return 0
	}
	var res ffprobeOutput
	if json.Unmarshal(out, &res) != nil || len(res.Streams) == 0 {
		return 0
	}
	count, err := strconv.Atoi(res.Streams[0].NbFrames)
	if err != nil || count < 0 {
		return 0
	}
	return count
}

// SplitJpeg is the custom splitter for bufio.Scanner
// It locates the Start Of Image (FFD8) and End Of Image (FFD9) markers to extract full JPEG frames.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, JpegSOI)
	if start == -1 {
		if atEOF {
			// Trailing garbage with no image in it.
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], JpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// NewFFmpegCmd creates a standard decoder pipe
// It configures FFmpeg to output raw MJPEG frames to Stdout for ingestion.
func NewFFmpegCmd(ctx context.Context, inputPath string) *utils.SafeCommand {
	// -loglevel error keeps the stderr buffer small
	return utils.NewSafeCommand(ctx, "ffmpeg", "-hide_banner", "-loglevel", "error", "-i", inputPath, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

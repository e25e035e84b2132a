package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitJpeg(t *testing.T) {
	// Construct a stream containing: [Garbage] [JPEG] [Garbage]
	// SOI (Start of Image): FF D8
	// EOI (End of Image):   FF D9

	jpegData := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}

	streamData := []byte{0x00, 0x00} // Garbage at start
	streamData = append(streamData, jpegData...)
	streamData = append(streamData, []byte{0x00, 0x00}...) // Garbage at end

	scanner := bufio.NewScanner(bytes.NewReader(streamData))
	scanner.Split(SplitJpeg)

	// Scan() should skip the first garbage bytes and find the JPEG
	if !scanner.Scan() {
		t.Fatal("Expected to find a token, got EOF")
	}
	if !bytes.Equal(scanner.Bytes(), jpegData) {
		t.Errorf("Expected %X, got %X", jpegData, scanner.Bytes())
	}

	// Scan() again should return false (EOF) because the trailing garbage is not a JPEG
	if scanner.Scan() {
		t.Error("Expected only one token, found more")
	}
	if err := scanner.Err(); err != nil {
		t.Errorf("Unexpected scanner error: %v", err)
	}
}

func TestSplitJpegTruncatedTail(t *testing.T) {
	first := []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9}
	truncated := []byte{0xFF, 0xD8, 0xBB, 0xCC} // no EOI, ffmpeg was killed mid-frame

	scanner := bufio.NewScanner(bytes.NewReader(append(append([]byte{}, first...), truncated...)))
	scanner.Split(SplitJpeg)

	var frames int
	for scanner.Scan() {
		frames++
	}
	if frames != 1 {
		t.Errorf("Expected 1 complete frame, got %d", frames)
	}
}

func TestFFmpegSourceRead(t *testing.T) {
	a := []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}
	b := []byte{0xFF, 0xD8, 0x02, 0x02, 0xFF, 0xD9}

	scanner := bufio.NewScanner(bytes.NewReader(append(append([]byte{}, a...), b...)))
	scanner.Split(SplitJpeg)
	s := &FFmpegSource{scanner: scanner}

	ctx := context.Background()
	f0, err := s.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	f1, err := s.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f0.Index != 0 || f1.Index != 1 {
		t.Errorf("Expected indices 0 and 1, got %d and %d", f0.Index, f1.Index)
	}
	// Frames must own their bytes, not alias the scanner buffer
	if !bytes.Equal(f0.Data, a) || !bytes.Equal(f1.Data, b) {
		t.Errorf("Frame data mismatch: %X %X", f0.Data, f1.Data)
	}
	if _, err := s.Read(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestOpenFFmpegRejectsBadPaths(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	if _, err := OpenFFmpeg(ctx, filepath.Join(dir, "missing.mp4")); err == nil {
		t.Error("Expected an error for a missing file")
	}
	if _, err := OpenFFmpeg(ctx, dir); err == nil {
		t.Error("Expected an error for a directory")
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		in         string
		wantDevice bool
		want       string
	}{
		{"0", true, "device:0"},
		{"2", true, "device:2"},
		{"-1", false, "-1"},
		{"clip.mp4", false, "clip.mp4"},
		{"/dev/video0", false, "/dev/video0"},
	}
	for _, tt := range tests {
		got := ParseSource(tt.in)
		if got.IsDevice() != tt.wantDevice || got.String() != tt.want {
			t.Errorf("ParseSource(%q) = %+v (%s), want device=%v %s", tt.in, got, got, tt.wantDevice, tt.want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "video_test")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.Write([]byte("fake video content")); err != nil {
		t.Fatal(err)
	}
	tmp.Close()

	id, err := Fingerprint(tmp.Name())
	if err != nil || id == "" {
		t.Fatalf("Failed to generate ID: %v", err)
	}

	// Verify Determinism
	id2, _ := Fingerprint(tmp.Name())
	if id != id2 {
		t.Errorf("Hash is not deterministic. Got %s, then %s", id, id2)
	}

	// Verify Sensitivity (Change content -> Change ID)
	f, _ := os.OpenFile(tmp.Name(), os.O_APPEND|os.O_WRONLY, 0644)
	f.Write([]byte(" modification"))
	f.Close()

	id3, _ := Fingerprint(tmp.Name())
	if id == id3 {
		t.Error("Hash did not change after file modification")
	}

	if _, err := Fingerprint(tmp.Name() + ".missing"); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

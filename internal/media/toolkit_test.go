package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewToolkitDefaults(t *testing.T) {
	tk := NewToolkit("", "", "/tmp/work")
	if tk.ffmpeg != "ffmpeg" || tk.ffprobe != "ffprobe" {
		t.Fatalf("expected default binaries, got %q %q", tk.ffmpeg, tk.ffprobe)
	}
}

func TestExtractAudioMissingVideo(t *testing.T) {
	tk := NewToolkit("ffmpeg", "ffprobe", t.TempDir())
	if _, err := tk.ExtractAudio(context.Background(), "/does/not/exist.mp4"); err == nil {
		t.Fatal("expected error for missing video")
	}
}

func TestExtractAudioOutputPath(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "sermon.mp4")
	if err := os.WriteFile(video, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ffmpeg := writeScript(t, dir, "ffmpeg", "exit 0\n")

	tk := NewToolkit(ffmpeg, "ffprobe", dir)
	out, err := tk.ExtractAudio(context.Background(), video)
	if err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	if want := filepath.Join(dir, "sermon.mp3"); out != want {
		t.Fatalf("audio path = %q, want %q", out, want)
	}
}

func TestExtractAudioReportsToolOutput(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ffmpeg := writeScript(t, dir, "ffmpeg", "echo 'no audio stream' >&2\nexit 1\n")

	tk := NewToolkit(ffmpeg, "ffprobe", dir)
	_, err := tk.ExtractAudio(context.Background(), video)
	if err == nil || !strings.Contains(err.Error(), "no audio stream") {
		t.Fatalf("expected tool stderr in error, got %v", err)
	}
}

func TestCaptureFrameNamesAreUnique(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := writeScript(t, dir, "ffmpeg", "exit 0\n")
	tk := NewToolkit(ffmpeg, "ffprobe", dir)

	first, err := tk.CaptureFrame(context.Background(), "/in/video.mp4", 12.5)
	if err != nil {
		t.Fatal(err)
	}
	second, err := tk.CaptureFrame(context.Background(), "/in/video.mp4", 12.5)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("expected unique frame paths, both were %q", first)
	}
	if !strings.Contains(filepath.Base(first), "video_frame_12_5_") {
		t.Fatalf("unexpected frame name %q", first)
	}
}

func TestProbeDuration(t *testing.T) {
	dir := t.TempDir()
	ffprobe := writeScript(t, dir, "ffprobe", "echo '123.456'\n")
	tk := NewToolkit("ffmpeg", ffprobe, dir)

	if got := tk.ProbeDuration(context.Background(), "/in/video.mp4"); got != 123.456 {
		t.Fatalf("ProbeDuration = %v, want 123.456", got)
	}
}

func TestProbeDurationFallback(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"failing": "exit 1\n",
		"garbage": "echo 'N/A'\n",
		"zero":    "echo '0'\n",
	}
	for name, body := range cases {
		ffprobe := writeScript(t, dir, "ffprobe_"+name, body)
		tk := NewToolkit("ffmpeg", ffprobe, dir)
		if got := tk.ProbeDuration(context.Background(), "/in/video.mp4"); got != DefaultDurationSeconds {
			t.Errorf("%s: ProbeDuration = %v, want fallback", name, got)
		}
	}
}

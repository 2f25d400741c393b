package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"reelvault/internal/fileutil"
)

// DefaultDurationSeconds is returned when probing fails so downstream logic
// still has a usable value.
const DefaultDurationSeconds = 60.0

// cropRecipe drops the bottom 25% (burned-in subtitle area) then center-crops
// the remainder to 4:3.
const cropRecipe = "crop=iw:ih*0.75:0:0,crop=ih*(4/3):ih:(iw-ow)/2:(ih-oh)/2"

// Toolkit wraps the ffmpeg/ffprobe subprocess calls used by pipeline stages.
// Operations are pure over paths; the only held state is binary names and the
// temp directory new artifacts land in.
type Toolkit struct {
	ffmpeg  string
	ffprobe string
	tempDir string
}

// NewToolkit builds a Toolkit writing intermediate artifacts to tempDir.
func NewToolkit(ffmpegBin, ffprobeBin, tempDir string) *Toolkit {
	if strings.TrimSpace(ffmpegBin) == "" {
		ffmpegBin = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBin) == "" {
		ffprobeBin = "ffprobe"
	}
	return &Toolkit{ffmpeg: ffmpegBin, ffprobe: ffprobeBin, tempDir: tempDir}
}

// ExtractAudio produces an mp3 rendition of the video's audio track in the
// temp directory and returns its path.
func (t *Toolkit) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if !fileutil.Exists(videoPath) {
		return "", fmt.Errorf("extract audio: video not found: %s", videoPath)
	}
	base := fileutil.TrimExt(filepath.Base(videoPath))
	outPath := filepath.Join(t.tempDir, base+".mp3")

	cmd := exec.CommandContext(ctx, t.ffmpeg,
		"-v", "error",
		"-i", videoPath,
		"-vn",
		"-codec:a", "libmp3lame",
		"-qscale:a", "2",
		"-y", outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("extract audio: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return outPath, nil
}

// CaptureFrame grabs a single frame at the given timestamp and returns the
// JPEG path. The output name carries a short unique suffix so repeated
// captures never collide.
func (t *Toolkit) CaptureFrame(ctx context.Context, videoPath string, seconds float64) (string, error) {
	base := fileutil.TrimExt(filepath.Base(videoPath))
	suffix := uuid.NewString()[:8]
	tsToken := strings.ReplaceAll(strconv.FormatFloat(seconds, 'f', -1, 64), ".", "_")
	outPath := filepath.Join(t.tempDir, fmt.Sprintf("%s_frame_%s_%s.jpg", base, tsToken, suffix))

	cmd := exec.CommandContext(ctx, t.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(seconds, 'f', -1, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-qscale:v", "2",
		"-y", outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("capture frame at %.1fs: %w: %s", seconds, err, strings.TrimSpace(string(output)))
	}
	return outPath, nil
}

// CropToAspect rewrites imagePath into outPath using the fixed thumbnail
// recipe (drop bottom quarter, center-crop 4:3).
func (t *Toolkit) CropToAspect(ctx context.Context, imagePath, outPath string) error {
	cmd := exec.CommandContext(ctx, t.ffmpeg,
		"-v", "error",
		"-i", imagePath,
		"-vf", cropRecipe,
		"-qscale:v", "2",
		"-y", outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("crop thumbnail: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ProbeDuration returns the container duration in seconds, falling back to
// DefaultDurationSeconds when ffprobe fails or reports something unusable.
func (t *Toolkit) ProbeDuration(ctx context.Context, videoPath string) float64 {
	cmd := exec.CommandContext(ctx, t.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return DefaultDurationSeconds
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil || duration <= 0 {
		return DefaultDurationSeconds
	}
	return duration
}

// EnsureTempDir creates the toolkit's temp directory when absent.
func (t *Toolkit) EnsureTempDir() error {
	if strings.TrimSpace(t.tempDir) == "" {
		return errors.New("media toolkit: temp directory not configured")
	}
	return os.MkdirAll(t.tempDir, 0o755)
}

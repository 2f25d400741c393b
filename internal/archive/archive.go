package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"reelvault/internal/fileutil"
	"reelvault/internal/logging"
	"reelvault/internal/naming"
	"reelvault/internal/services"
)

// Artifacts collects the file set an archival run places under the year/month
// tree. Video is required; the rest are optional companions.
type Artifacts struct {
	Video     string
	Audio     string
	Text      string
	Subtitle  string
	Thumbnail string
}

// Result reports where the archived files ended up.
type Result struct {
	Dir   string
	Video string
}

// Archiver moves finished artifacts into the dated archive tree.
type Archiver struct {
	root        string
	minFreeGiB  uint64
	settleDelay time.Duration
	logger      *slog.Logger
}

// New builds an Archiver rooted at root. minFreeGiB below 1 disables the
// free-space preflight.
func New(root string, minFreeGiB uint64, settleDelay time.Duration, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Archiver{root: root, minFreeGiB: minFreeGiB, settleDelay: settleDelay, logger: logger}
}

// DestinationDir resolves the archive directory for a date token, creating it
// when absent. Unparseable tokens land under Unknown/Unknown rather than
// failing the run.
func (a *Archiver) DestinationDir(dateToken string) (string, error) {
	year, month := naming.YearMonth(dateToken)
	dir := filepath.Join(a.root, year, month)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "archive", "mkdir", "create archive directory", err)
	}
	return dir, nil
}

// Store places the artifact set under the archive tree for dateToken. The
// transcript copies first so a crash mid-move still leaves the text
// recoverable; the video waits out the settle delay before moving so any
// writer still flushing the file has finished.
func (a *Archiver) Store(ctx context.Context, dateToken string, art Artifacts) (Result, error) {
	if art.Video == "" {
		return Result{}, services.Wrap(services.ErrExternalTool, "archive", "store", "no video to archive", nil)
	}
	if err := a.checkFreeSpace(); err != nil {
		return Result{}, err
	}
	dir, err := a.DestinationDir(dateToken)
	if err != nil {
		return Result{}, err
	}

	for _, companion := range []struct {
		label string
		path  string
	}{
		{"text", art.Text},
		{"audio", art.Audio},
		{"subtitle", art.Subtitle},
		{"thumbnail", art.Thumbnail},
	} {
		if companion.path == "" {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(companion.path))
		if err := fileutil.CopyFile(companion.path, dst); err != nil {
			return Result{}, services.Wrap(services.ErrExternalTool, "archive", "copy",
				fmt.Sprintf("copy %s artifact", companion.label), err)
		}
		a.logger.Debug("archived companion", logging.String("kind", companion.label), logging.String("path", dst))
	}

	if a.settleDelay > 0 {
		timer := time.NewTimer(a.settleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	videoDst := filepath.Join(dir, filepath.Base(art.Video))
	if err := fileutil.MoveFile(art.Video, videoDst); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "archive", "move", "move video into archive", err)
	}
	a.logger.Info("archived video", logging.String("path", videoDst))
	return Result{Dir: dir, Video: videoDst}, nil
}

func (a *Archiver) checkFreeSpace() error {
	if a.minFreeGiB == 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(a.root, &stat); err != nil {
		// The root may be a mount that is briefly unavailable; surface it
		// as an archive failure rather than guessing.
		return services.Wrap(services.ErrExternalTool, "archive", "statfs", "inspect archive filesystem", err)
	}
	freeBytes := stat.Bavail * uint64(stat.Bsize)
	needed := a.minFreeGiB * 1024 * 1024 * 1024
	if freeBytes < needed {
		return services.Wrap(services.ErrExternalTool, "archive", "preflight",
			fmt.Sprintf("archive filesystem below %d GiB free (%d bytes available)", a.minFreeGiB, freeBytes), nil)
	}
	return nil
}

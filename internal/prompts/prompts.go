// Package prompts loads the per-category instruction documents fed to the
// summarization model.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelvault/internal/services"
)

const (
	readAttempts = 3
	retryDelay   = 500 * time.Millisecond
)

// Loader reads instruction documents from a directory. Documents live on the
// same shared mount as the intake folder, so reads are retried briefly before
// the failure is treated as fatal misconfiguration.
type Loader struct {
	dir string
}

// NewLoader builds a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load returns the instruction text stored in the named file. A document that
// cannot be read after retries, or that is empty, aborts the job as a
// configuration failure.
func (l *Loader) Load(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", services.Wrap(services.ErrConfiguration, "summarize", "load prompt", "no prompt file configured", nil)
	}
	path := filepath.Join(l.dir, filename)

	var lastErr error
	for attempt := 1; attempt <= readAttempts; attempt++ {
		data, err := os.ReadFile(path)
		if err == nil {
			text := strings.TrimSpace(string(data))
			if text == "" {
				return "", services.Wrap(services.ErrConfiguration, "summarize", "load prompt",
					fmt.Sprintf("prompt file %s is empty", filename), nil)
			}
			return text, nil
		}
		lastErr = err
		if attempt < readAttempts {
			time.Sleep(retryDelay)
		}
	}
	return "", services.Wrap(services.ErrConfiguration, "summarize", "load prompt",
		fmt.Sprintf("read prompt file %s", filename), lastErr)
}

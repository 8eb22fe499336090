package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("transcript is empty")

// maxNameAttempts bounds the " (n)" suffix search.
const maxNameAttempts = 100

// FormatElapsed renders d as mm:ss. Minutes do not roll over into hours.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// ExportFilename returns the date-stamped export name for t.
func ExportFilename(t time.Time) string {
	return "meeting-transcript-" + t.Format("2006-01-02") + ".txt"
}

// Export writes text into dir under the date-stamped name for now. An
// existing file is never overwritten; the name gets a " (n)" suffix instead.
func Export(dir, text string, now time.Time) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyTranscript
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	name := ExportFilename(now)
	base := strings.TrimSuffix(name, ".txt")
	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d).txt", base, i)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create export file: %w", err)
		}
		if _, err := f.WriteString(text); err != nil {
			f.Close()
			return "", fmt.Errorf("write export file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close export file: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("export: no free filename for %s in %s", name, dir)
}

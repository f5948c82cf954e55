package fetch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var labelSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Capture writes raw fetched bodies to disk for troubleshooting. Snapshots
// are purely diagnostic and never read back by the engine. A nil or
// disabled Capture is a no-op.
type Capture struct {
	dir    string
	logger *slog.Logger
}

// NewCapture returns a snapshot writer rooted at dir, or nil when capture
// is disabled.
func NewCapture(enabled bool, dir string, logger *slog.Logger) *Capture {
	if !enabled {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("debug capture disabled: cannot create directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()))
		return nil
	}
	return &Capture{dir: dir, logger: logger}
}

// Write stores content under dir/sourceKey/<epoch-ms>_<sanitized-label>.html.
// Write failures are logged and otherwise ignored.
func (c *Capture) Write(sourceKey, label, content string) {
	if c == nil {
		return
	}
	if sourceKey == "" {
		sourceKey = "unknown"
	}
	safeLabel := labelSanitizer.ReplaceAllString(label, "_")
	if len(safeLabel) > 80 {
		safeLabel = safeLabel[:80]
	}

	outDir := filepath.Join(c.dir, sourceKey)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		c.logger.Warn("debug snapshot skipped", slog.String("error", err.Error()))
		return
	}

	name := fmt.Sprintf("%d_%s.html", time.Now().UnixMilli(), safeLabel)
	if err := os.WriteFile(filepath.Join(outDir, name), []byte(content), 0o644); err != nil {
		c.logger.Warn("debug snapshot skipped", slog.String("error", err.Error()))
	}
}

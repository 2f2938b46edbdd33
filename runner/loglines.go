package runner

import (
	"fmt"
	"os"
	"strings"
)

// Markers that make a log line a candidate failure summary. Matched
// case-insensitively against each line in the tail, newest line wins.
var errorMarkers = []string{"error:", "failed:", "exception", "panic:"}

// extractError derives a one-line failure summary for a job that did
// not exit cleanly. Best effort: scans the last N lines of the captured
// log for a recognizable error line, falling back to the raw exit code.
func (r *Runner) extractError(slug, id string, code int, found bool) string {
	tail := r.logTail(slug, id, r.cfg.Runner.LogTailLines)
	for i := len(tail) - 1; i >= 0; i-- {
		line := strings.TrimSpace(tail[i])
		if line == "" {
			continue
		}
		if isErrorLine(line) {
			return line
		}
	}
	if found {
		return fmt.Sprintf("exit code %d", code)
	}
	return "no exit code found"
}

func isErrorLine(line string) bool {
	if strings.HasPrefix(line, "!") {
		return true
	}
	lower := strings.ToLower(line)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// logTail returns up to n trailing lines of the job's captured output.
// Missing log reads as empty.
func (r *Runner) logTail(slug, id string, n int) []string {
	content, err := os.ReadFile(r.store.JobLogPath(slug, id))
	if err != nil || len(content) == 0 {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// LogTail exposes the trailing log lines for display.
func (r *Runner) LogTail(slug, id string, n int) []string {
	return r.logTail(slug, id, n)
}

package logging

import (
	"log/slog"
	"strings"
)

// Writer is an io.Writer that forwards subprocess output to slog, one record
// per non-empty line. The build and push backends attach it to their stdout so
// progress shows up in the structured log stream.
type Writer struct {
	logger *slog.Logger
}

// NewWriter constructs a Writer bound to the provided logger.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// Write logs each non-empty line of p at debug level.
func (w *Writer) Write(p []byte) (int, error) {
	if w.logger != nil {
		for _, line := range strings.Split(string(p), "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) != "" {
				w.logger.Debug("backend output", "line", line)
			}
		}
	}
	return len(p), nil
}

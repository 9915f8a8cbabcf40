package utils

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the logger shared by the command-line tools: JSON records
// appended to logPath when it is set, otherwise text records on w. The
// returned close function is never nil.
func NewLogger(w io.Writer, logPath string, verbose bool) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if logPath == "" {
		return slog.New(slog.NewTextHandler(w, opts)), func() error { return nil }, nil
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewJSONHandler(f, opts)), f.Close, nil
}

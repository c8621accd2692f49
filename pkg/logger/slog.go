package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

const keyError = "error"

func NewLogger(writer io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelInfo,
	}
	handler := slog.NewJSONHandler(writer, opts)
	return slog.New(handler)
}

// NewLoggerWithFile tees log output to the given file path in addition to the
// writer. The returned closer releases the file handle; it is a no-op when the
// path is empty.
func NewLoggerWithFile(writer io.Writer, path string) (*slog.Logger, func() error, error) {
	if path == "" {
		return NewLogger(writer), func() error { return nil }, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failure opening log file %s: %w", path, err)
	}
	return NewLogger(io.MultiWriter(writer, file)), file.Close, nil
}

func Error(err error) slog.Attr {
	return slog.Any(keyError, err)
}

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON logger tagged with the emitting service. Both the api
// and the worker binary install it as the process default so library code
// can log through the slog package functions.
func New(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func NewJSONLogger(service, level string) *slog.Logger {
	return New(os.Stdout, service, level)
}

// ParseLevel maps a config string onto a slog level. Unknown values fall
// back to info rather than failing startup.
func ParseLevel(level string) slog.Level {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "warning" {
		normalized = "warn"
	}
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(normalized)); err != nil {
		return slog.LevelInfo
	}
	return parsed
}

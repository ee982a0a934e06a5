package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// New creates a slog logger configured at the provided level. Format "text"
// renders human readable lines for local runs; anything else emits JSON. If the
// level string is invalid it defaults to info.
func New(level, format, prefix string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	if strings.EqualFold(format, "text") {
		handler := charmlog.NewWithOptions(os.Stdout, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Level:           charmlog.Level(lvl.Level()),
			Prefix:          prefix,
		})
		return slog.New(handler)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the API's JSON logger. Every record names the service and
// environment; records logged with a request context also carry trace, span
// and actor ids.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     levelFor(env),
		AddSource: env == "dev",
	})

	return slog.New(NewTraceHandler(handler)).With(
		slog.String("service", ServiceName),
		slog.String("env", env),
	)
}

func levelFor(env string) slog.Level {
	switch env {
	case "dev":
		return slog.LevelDebug
	case "test":
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

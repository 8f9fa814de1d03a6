package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/cobrasdm/sightings-etl/internal/config"
)

// NewLogger builds the run logger from cfg, writing to stderr. Every record
// carries the run_id of this invocation.
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat, uuid.NewString())
}

func newLogger(w io.Writer, level, format, runID string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("run_id", runID)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

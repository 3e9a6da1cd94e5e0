package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"classhub/internal/config"
)

// New builds the process logger writing to w (stderr when nil). Output is
// colourised unless cfg.NoColor is set.
func New(cfg *config.LogConfig, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	if cfg == nil {
		cfg = &config.LogConfig{Level: "info"}
	}

	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    cfg.NoColor,
	})
	return slog.New(handler), nil
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

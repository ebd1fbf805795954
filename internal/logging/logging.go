// Package logging builds the process slog logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"issueflow/internal/config"
)

// New returns a logger writing to w at the configured level and format
// ("text" or "json").
func New(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("component", "issueflow"), nil
}

// Setup builds a logger with [New] and installs it as the slog default.
func Setup(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	logger, err := New(w, cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

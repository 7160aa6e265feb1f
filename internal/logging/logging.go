package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey struct{}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}

// Options configures the process logger built by New.
type Options struct {
	// File enables rotation through lumberjack when set.
	File string
	// Mirror also writes to Stdout when File is set.
	Mirror bool
	Level  slog.Leveler
	Stdout io.Writer
}

// New builds a JSON slog logger. It returns a close function that releases the
// rotating file, if one was opened.
func New(opts Options) (*slog.Logger, func() error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	writer := stdout
	closer := func() error { return nil }
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = rotating
		if opts.Mirror {
			writer = io.MultiWriter(stdout, rotating)
		}
		closer = rotating.Close
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer
}

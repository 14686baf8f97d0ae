// Package log builds the structured logger shared by every component.
package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is reported as invalid and treated as info.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// New returns a logger writing JSON to a rotated file in dir, or text to
// stderr when dir is empty.
func New(level, dir string) *slog.Logger {
	lvl, ok := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if dir == "" {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(rotating(dir), opts)
	}
	l := slog.New(h)
	if !ok {
		l.Warn("invalid log level, using info", "level", level)
	}

	l.Debug("system information",
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))
	if bi, ok := debug.ReadBuildInfo(); ok {
		l.Debug("build", slog.String("go", bi.GoVersion), slog.String("path", bi.Path))
	}
	return l
}

func rotating(dir string) io.Writer {
	return &lumberjack.Logger{
		Filename: filepath.Join(dir, "wxmap.log"),
		MaxSize:  64, // MB
		MaxAge:   14,
		Compress: true,
	}
}

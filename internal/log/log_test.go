package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewWritesToDir(t *testing.T) {
	dir := t.TempDir()
	l := New("info", dir)
	l.Info("hello", "component", "test")

	info, err := os.Stat(filepath.Join(dir, "wxmap.log"))
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("log file is empty")
	}
}

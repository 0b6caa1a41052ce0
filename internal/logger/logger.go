// Package logger holds the process-wide slog logger used by memctl.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() to enable logging to a file.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// allocSeq numbers allocators handed a logger by ForAllocator.
var allocSeq int

const (
	logPrefix     = "memctl-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	LogDir  string     // Directory for log files. Default: ~/.memkit/logs
	Level   slog.Level // Minimum log level. Default: LevelInfo
}

// Init configures logging. Call from main() before any log calls.
// If opts.Enabled is false, all log output is discarded.
func Init(opts Options) error {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	logDir := opts.LogDir
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		logDir = filepath.Join(home, ".memkit", "logs")
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}

	// Clean up old logs (best-effort, ignore errors)
	cleanOldLogs(logDir, time.Now())

	filename := filepath.Join(logDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level})).
		With("app", "memctl", "pid", os.Getpid())
	return nil
}

// ForAllocator returns a child of L for one allocator. Every record it
// writes carries the provider name and a per-process allocator sequence
// number, so interleaved allocators in one log file can be told apart.
func ForAllocator(provider string) *slog.Logger {
	allocSeq++
	return L.With(slog.Group("allocator", "id", allocSeq, "provider", provider))
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// memctl-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

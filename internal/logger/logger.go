// Package logger installs the process-wide slog handler.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	Debug bool
	// Dir enables a rotating boxdesk.log file alongside stderr. Empty means stderr only.
	Dir string
}

// New builds a charmbracelet/log backed slog.Logger writing to w.
func New(w io.Writer, debug bool) *slog.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	h := log.NewWithOptions(w, log.Options{
		ReportCaller:    debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "boxdesk",
	})
	return slog.New(h)
}

// Init installs the logger as the slog default and returns a closer for the log file.
func Init(cfg Config) (io.Closer, error) {
	var writer io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "boxdesk.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stderr, file)
		closer = file
	}
	slog.SetDefault(New(writer, cfg.Debug))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

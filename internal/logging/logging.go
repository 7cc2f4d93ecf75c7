package logging

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/dunamismax/snapframe/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a process logger tagged with component, e.g. "[api] ". When a
// log file is configured, output is duplicated into a rotating file and the
// returned closer must be closed on shutdown.
func New(component string, cfg config.LoggingConfig) (*log.Logger, io.Closer) {
	prefix := "[" + strings.TrimSpace(component) + "] "
	writer, closer := buildWriter(cfg)
	return log.New(writer, prefix, log.LstdFlags|log.Lmsgprefix), closer
}

func buildWriter(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	if strings.TrimSpace(cfg.FilePath) == "" {
		return os.Stdout, nopCloser{}
	}

	maxSize := cfg.FileMaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxBackups := cfg.FileMaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}
	maxAge := cfg.FileMaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
	}
	return io.MultiWriter(os.Stdout, lj), lj
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

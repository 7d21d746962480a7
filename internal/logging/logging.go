// Package logging wires logrus (and lumberjack for file rotation) the
// way hamzaKhattat-ara-production-system/pkg/logger does: a process-wide
// configured logger, handed out as logrus.FieldLogger to every
// collaborator that needs one (internal/server.Engine.Logger chief
// among them).
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config mirrors the logging section of SPEC_FULL.md §2's ambient
// stack: level/format/output plus optional rotated-file output.
type Config struct {
	Level  string
	Format string
	File   FileConfig
}

// FileConfig enables lumberjack-backed rotation when Enabled.
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New builds a configured *logrus.Logger. Unlike the teacher's
// package-level singleton, this returns an instance so multiple
// pgcored components (or tests) can hold independent loggers.
func New(cfg Config) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	if cfg.File.Enabled {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	} else {
		log.SetOutput(os.Stdout)
	}

	return log, nil
}

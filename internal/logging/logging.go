// Package logging builds the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// LevelForEnv maps an environment tier to its default verbosity.
func LevelForEnv(env string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return logrus.ErrorLevel
	case "test":
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

// New returns a JSON logger writing to stdout and, when file is not empty,
// appending to file as well. The returned closer releases the file handle.
func New(env, level, file string) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(LevelForEnv(env))

	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("parse log level failed: %w", err)
		}
		logger.SetLevel(parsed)
	}

	if file == "" {
		logger.SetOutput(os.Stdout)
		return logger, io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir failed: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file failed: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, f))
	return logger, f, nil
}

// Discard is a logger for tests and tools that must stay quiet.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"Ledger/internal/config"

	"github.com/sirupsen/logrus"
)

// New builds the process logger from config.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.Format)
	}
	return log, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

package config

import (
	"io"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. Packages receive the logr view; V(1)
// maps to logrus debug.
func NewLogger(out io.Writer, level logrus.Level, format LogFormat) logr.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	if format == LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logrusr.New(logger)
}

package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

// GetLogger returns the process logger configured from LOG_LEVEL and LOG_FILE.
func GetLogger() *logrus.Logger {
	return logg
}

// NewLogger builds a JSON logger writing to out. An empty or unknown level
// keeps only errors.
func NewLogger(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.ErrorLevel)
	if lvl, err := logrus.ParseLevel(strings.TrimSpace(level)); err == nil {
		logger.SetLevel(lvl)
	}
	logger.SetOutput(out)
	return logger
}

func init() {
	logg = NewLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	if path := strings.TrimSpace(os.Getenv("LOG_FILE")); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			logg.WithField("path", path).Warn("cannot open LOG_FILE, logging to stdout")
			return
		}
		logg.SetOutput(file)
	}
}

// LogError writes err with the module, function and step it came from. data,
// when set, is attached as-is under "data".
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	msg := context
	if err != nil {
		msg = err.Error()
	}
	logger.WithFields(fields).Error(msg)
}

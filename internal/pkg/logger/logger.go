package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

/**
* Global logger
 */
var logger = logrus.New()

// Log returns the global logger
func Log() *logrus.Logger {
	return logger
}

// Configure sets level and formatter of the global logger.
// Unknown levels keep the current level.
func Configure(level string, jsonEnabled bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		logger.SetLevel(logrus.DebugLevel)
	case "INFO":
		logger.SetLevel(logrus.InfoLevel)
	case "WARN":
		logger.SetLevel(logrus.WarnLevel)
	case "ERROR":
		logger.SetLevel(logrus.ErrorLevel)
	}

	if jsonEnabled {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// Component returns an entry tagged with a component name
func Component(name string) *logrus.Entry {
	return logger.WithField("component", name)
}

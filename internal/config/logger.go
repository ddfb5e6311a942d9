package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger configures the standard logrus logger: JSON outside dev unless
// LOG_FORMAT says otherwise, level from LOG_LEVEL.
func NewLogger(cfg Config) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetOutput(os.Stdout)

	format := cfg.LogFormat
	if format == "" {
		format = "json"
		if cfg.Env == "dev" {
			format = "text"
		}
	}
	if format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

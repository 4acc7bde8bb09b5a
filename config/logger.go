package config

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the application logger. Logs are written as JSON to
// stdout or to a rotated file.
func NewLogger(cfg *Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logger := &logrus.Logger{
		Formatter: &logrus.JSONFormatter{},
		Hooks:     make(logrus.LevelHooks),
		Level:     level,
		Out:       os.Stdout,
		ExitFunc:  os.Exit,
	}
	if cfg.LogFileName != "" && cfg.LogFileName != "stdout" {
		maxSize := cfg.LogMaxSize
		if maxSize == 0 {
			maxSize = 50
		}
		logger.Out = &lumberjack.Logger{
			Filename: cfg.LogFileName,
			MaxSize:  maxSize, // MB
		}
	}

	logger.Info("Logger started")
	return logger, nil
}

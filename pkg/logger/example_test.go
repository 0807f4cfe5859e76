package logger_test

import (
	"log/slog"

	"github.com/soundprediction/studygraph/pkg/logger"
)

func ExampleNewDefaultLogger() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("This is a debug message")
	log.Info("This is an info message")
	log.Info("Curriculum loaded", "subjects", 3) // Will be green in terminal
	log.Warn("This is a warning message")        // Will be yellow in terminal
	log.Error("This is an error message")        // Will be red in terminal
}

package logger

import (
	"log"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()

	// level is shared by every logger built here, so switching to
	// production after the package-level loggers exist still applies.
	level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
)

func NewLogger() *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	config.Level = level
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		log.Panic(err)
	}

	// flushes buffer, if any
	defer logger.Sync()

	return logger.Sugar()
}

// SetProduction drops debug output for all loggers.
func SetProduction(production bool) {
	if production {
		level.SetLevel(zapcore.InfoLevel)
		return
	}
	level.SetLevel(zapcore.DebugLevel)
}

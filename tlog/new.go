// Package tlog carries zap loggers in contexts
package tlog

import (
	"fmt"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// New creates a top-level logger writing to stderr.
//
// Panics on an invalid config.
func New(config Config) *zap.Logger {
	var encoder zapcore.Encoder
	switch config.Format {
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(EncoderConfig(false))
	case FormatText, "":
		var color bool
		switch config.Color {
		case ColorYes:
			color = true
		case ColorNo:
		case ColorAuto:
			color = term.IsTerminal(int(os.Stderr.Fd()))
		default:
			panic(fmt.Errorf("unexpected color setting: %s", config.Color))
		}
		encoder = zapcore.NewConsoleEncoder(EncoderConfig(color))
	default:
		panic(fmt.Errorf("unexpected log format: %s", config.Format))
	}

	level := zapcore.InfoLevel
	if config.Verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(level))
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if config.Name != "" {
		logger = logger.Named(config.Name)
	}
	return logger
}

// NewForTesting creates a verbose logger named after the test
func NewForTesting(t testing.TB) *zap.Logger {
	return New(Config{
		Name:    t.Name(),
		Format:  FormatText,
		Color:   ColorNo,
		Verbose: true,
	})
}

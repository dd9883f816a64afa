package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a console logger on stderr with caller info and no
// timestamps. Debug enables debug-level output and stack traces.
//
// stdout is left alone: it carries the output of the commands we run.
func New(debug bool) *zap.Logger {
	return NewWithWriter(os.Stderr, debug)
}

// NewWithWriter is New with an explicit destination, mostly for tests.
func NewWithWriter(w io.Writer, debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "level",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalColorLevelEncoder, // Colored level names
		EncodeCaller:  zapcore.ShortCallerEncoder,       // Show file:line
		// TimeKey is omitted to remove timestamps
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)

	opts := []zap.Option{zap.AddCaller()}
	if debug {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(core, opts...)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger so components can share one type.
type Logger struct {
	*zap.Logger
}

// New returns a console logger writing to stderr at the given level.
func New(level zapcore.Level) *Logger {
	return NewLogger(level, os.Stderr)
}

// NewLogger returns a console logger writing to w at the given level.
func NewLogger(level zapcore.Level, w io.Writer) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return &Logger{zap.New(core)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap.NewNop()}
}

// ParseLevel converts a textual level (debug, info, warn, error) into a zap level.
// Unknown values fall back to info.
func ParseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{l.Logger.Named(component)}
}

// Err returns the error as a structured field.
func Err(err error) zap.Field {
	return zap.Error(err)
}

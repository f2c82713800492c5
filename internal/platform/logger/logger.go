// Package logger provides structured logging for the simulation server.
// Console output is human-readable; the optional log file gets JSON lines
// with rotation.
package logger

import (
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls log level and the optional rotated file sink.
type Config struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Logger wraps zap with the small surface the engine needs.
type Logger struct {
	z *zap.Logger
}

// New builds a logger from config. An empty FilePath logs to stderr only.
func New(cfg Config) *Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		lvl = zapcore.InfoLevel
	}
	atomicLevel := zap.NewAtomicLevelAt(lvl)

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(os.Stderr),
		atomicLevel,
	)

	core := consoleCore
	if cfg.FilePath != "" {
		fileCfg := encoderCfg
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    maxInt(1, cfg.MaxSizeMB),
			MaxBackups: maxInt(0, cfg.MaxBackups),
			MaxAge:     maxInt(0, cfg.MaxAgeDays),
			Compress:   cfg.Compress,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(fileWriter),
			atomicLevel,
		)
		core = zapcore.NewTee(consoleCore, fileCore)
	}

	return &Logger{z: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Info logs informational messages.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

// Event logs a simulation milestone in a greppable shape.
func (l *Logger) Event(eventType, companyID, details string) {
	l.z.Info("sim event",
		zap.String("event", eventType),
		zap.String("company", companyID),
		zap.String("details", details),
	)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() {
	_ = l.z.Sync()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

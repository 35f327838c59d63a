package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Format represents the output format for logs
type Format int

const (
	// FormatConsole is human-readable console output
	FormatConsole Format = iota
	// FormatJSON is structured JSON output
	FormatJSON
)

// String returns the string representation of a Format
func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "console"
}

// ParseFormat converts a string to a Format, defaulting to console
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatConsole
}

// Level represents a logging level
type Level int

const (
	// DebugLevel is for debug messages
	DebugLevel Level = iota
	// InfoLevel is for informational messages
	InfoLevel
	// WarnLevel is for warning messages
	WarnLevel
	// ErrorLevel is for error messages
	ErrorLevel
)

// String returns the string representation of a Level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// FileOptions configures the rotating file sink
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger provides structured logging on top of zap
type Logger struct {
	zl    *zap.Logger
	level zap.AtomicLevel
}

// New creates a new Logger with the specified level and console format
func New(level Level) *Logger {
	return NewWithFormat(level, FormatConsole)
}

// NewWithFormat creates a new Logger with the specified level and format
func NewWithFormat(level Level, format Format) *Logger {
	return build(level, format, zapcore.Lock(os.Stdout))
}

// NewWithOutput creates a new Logger with the specified level and output writer
func NewWithOutput(level Level, output io.Writer) *Logger {
	return build(level, FormatConsole, zapcore.AddSync(output))
}

// NewWithFormatOutput creates a new Logger writing the given format to output
func NewWithFormatOutput(level Level, format Format, output io.Writer) *Logger {
	return build(level, format, zapcore.AddSync(output))
}

// NewWithFile creates a Logger that writes to stdout and to a rotating file
func NewWithFile(level Level, format Format, opts FileOptions) *Logger {
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 50
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 3
	}
	if opts.MaxAgeDays == 0 {
		opts.MaxAgeDays = 7
	}
	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	})
	return build(level, format, zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout), file))
}

// Nop returns a Logger that discards everything
func Nop() *Logger {
	return &Logger{
		zl:    zap.NewNop(),
		level: zap.NewAtomicLevelAt(zapcore.FatalLevel),
	}
}

func build(level Level, format Format, ws zapcore.WriteSyncer) *Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	var enc zapcore.Encoder
	if format == FormatJSON {
		cfg.MessageKey = "message"
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	atom := zap.NewAtomicLevelAt(level.zapLevel())
	return &Logger{
		zl:    zap.New(zapcore.NewCore(enc, ws, atom)),
		level: atom,
	}
}

// SetLevel changes the logging level
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// With returns a child logger that always carries the given fields
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{zl: l.zl.With(fields...), level: l.level}
}

// Debug logs a debug message with optional fields
func (l *Logger) Debug(msg string, fields ...Field) {
	l.zl.Debug(msg, fields...)
}

// Info logs an informational message with optional fields
func (l *Logger) Info(msg string, fields ...Field) {
	l.zl.Info(msg, fields...)
}

// Warn logs a warning message with optional fields
func (l *Logger) Warn(msg string, fields ...Field) {
	l.zl.Warn(msg, fields...)
}

// Error logs an error message with optional fields
func (l *Logger) Error(msg string, fields ...Field) {
	l.zl.Error(msg, fields...)
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// Zap exposes the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// Field represents a structured logging field
type Field = zap.Field

// String creates a Field with a string value
func String(key, value string) Field {
	return zap.String(key, value)
}

// Int creates a Field with an integer value
func Int(key string, value int) Field {
	return zap.Int(key, value)
}

// Uint64 creates a Field with an unsigned integer value
func Uint64(key string, value uint64) Field {
	return zap.Uint64(key, value)
}

// Bool creates a Field with a boolean value
func Bool(key string, value bool) Field {
	return zap.Bool(key, value)
}

// Duration creates a Field with a duration value
func Duration(key string, value time.Duration) Field {
	return zap.Duration(key, value)
}

// Error creates a Field with an error value
func Error(err error) Field {
	return zap.Error(err)
}

// Any creates a Field with any value
func Any(key string, value any) Field {
	return zap.Any(key, value)
}

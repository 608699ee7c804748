package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a leveled logger for challenge activity backed by zerolog
type Logger struct {
	name    string
	logFile *os.File
	zl      zerolog.Logger
	mu      sync.Mutex
	logPath string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a file logger under logDir named after the run and the current date
func NewLogger(logDir, name string) (*Logger, error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", name, time.Now().Format("2006-01-02"))
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		name:    name,
		logFile: file,
		zl:      zerolog.New(file).With().Timestamp().Str("run", name).Logger(),
		logPath: logPath,
	}
	l.zl.Info().Str("tag", string(LogLevelInfo)).Msg("session started")
	return l, nil
}

// NewConsoleLogger writes human readable output to w
func NewConsoleLogger(w io.Writer, name string) *Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return &Logger{
		name: name,
		zl:   zerolog.New(out).With().Timestamp().Str("run", name).Logger(),
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var ev *zerolog.Event
	switch level {
	case LogLevelWarning:
		ev = l.zl.Warn()
	case LogLevelError:
		ev = l.zl.Error()
	default:
		ev = l.zl.Info()
	}
	ev.Str("tag", string(level)).Msgf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs account status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogTradeClose logs a realized trade with structured fields
func (l *Logger) LogTradeClose(strategy, direction string, size, entry, exit, pnl, equity float64, reason string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.zl.Info().
		Str("tag", string(LogLevelTrade)).
		Str("strategy", strategy).
		Str("direction", direction).
		Float64("size", size).
		Float64("entry", entry).
		Float64("exit", exit).
		Float64("pnl", pnl).
		Float64("equity", equity).
		Str("reason", reason).
		Msg("position closed")
}

// LogError logs an error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close closes the log file if there is one
func (l *Logger) Close() error {
	if l == nil || l.logFile == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl.Info().Str("tag", string(LogLevelInfo)).Msg("session ended")
	return l.logFile.Close()
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	return l.logPath
}

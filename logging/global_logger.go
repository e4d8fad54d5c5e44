package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger provides leveled logging functionality
type Logger struct {
	level  LogLevel
	logger *log.Logger
	closer io.Closer
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// NewLogger creates a new logger with the specified level. An empty logFile
// writes to stderr.
func NewLogger(levelStr string, logFile string) (*Logger, error) {
	level := parseLogLevel(levelStr)

	var out io.Writer = os.Stderr
	var closer io.Closer

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		out = file
		closer = file
	}

	return &Logger{
		level:  level,
		logger: log.New(out, "", log.LstdFlags|log.Lshortfile),
		closer: closer,
	}, nil
}

// parseLogLevel parses a log level string
func parseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Close releases the log file if one was opened.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	if l.level <= LevelDebug {
		l.logger.Output(2, "[DEBUG] "+msg)
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level <= LevelDebug {
		l.logger.Output(2, fmt.Sprintf("[DEBUG] "+format, args...))
	}
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	if l.level <= LevelInfo {
		l.logger.Output(2, "[INFO] "+msg)
	}
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level <= LevelInfo {
		l.logger.Output(2, fmt.Sprintf("[INFO] "+format, args...))
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	if l.level <= LevelWarn {
		l.logger.Output(2, "[WARN] "+msg)
	}
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.level <= LevelWarn {
		l.logger.Output(2, fmt.Sprintf("[WARN] "+format, args...))
	}
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	if l.level <= LevelError {
		l.logger.Output(2, "[ERROR] "+msg)
	}
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level <= LevelError {
		l.logger.Output(2, fmt.Sprintf("[ERROR] "+format, args...))
	}
}

// InitGlobalLogger initializes the global logger instance
func InitGlobalLogger(logLevel, logFile string) error {
	var initErr error
	loggerOnce.Do(func() {
		globalLogger, initErr = NewLogger(logLevel, logFile)
	})
	return initErr
}

// GetGlobalLogger returns the global logger, falling back to a stderr logger
// when InitGlobalLogger has not been called (tests, library use).
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		l, _ := NewLogger("info", "")
		return l
	}
	return globalLogger
}

// Global convenience functions for logging
func LogDebugf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Debugf(format, args...)
	}
}

func LogInfof(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Infof(format, args...)
	}
}

func LogWarnf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Warnf(format, args...)
	}
}

func LogErrorf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Errorf(format, args...)
	}
}

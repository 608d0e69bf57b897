package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelQuiet // No output
)

var levelNames = map[Level]string{
	LevelDebug:    "DEBUG",
	LevelInfo:     "INFO",
	LevelWarn:     "WARN",
	LevelError:    "ERROR",
	LevelCritical: "CRITICAL",
}

// String returns the upper-case name used in log file lines
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Logger handles application logging
type Logger struct {
	level      Level
	output     io.Writer
	fileOutput *os.File
	now        func() time.Time
	mu         sync.Mutex
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New creates a logger writing terminal output to w at the given level
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		level:  level,
		output: w,
		now:    time.Now,
	}
}

// Default returns the default logger instance
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(os.Stderr, LevelInfo)
	})
	return defaultLogger
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetVerbose enables debug output
func (l *Logger) SetVerbose(verbose bool) {
	if verbose {
		l.SetLevel(LevelDebug)
	}
}

// SetQuiet disables all output except errors
func (l *Logger) SetQuiet(quiet bool) {
	if quiet {
		l.SetLevel(LevelError)
	}
}

// EnableFileLogging appends timestamped log lines to path.
// An empty path selects DefaultLogFile.
func (l *Logger) EnableFileLogging(path string) error {
	if path == "" {
		var err error
		path, err = DefaultLogFile()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fileOutput != nil {
		l.fileOutput.Close()
	}
	l.fileOutput = f
	return nil
}

// Close closes the log file if open
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fileOutput != nil {
		l.fileOutput.Close()
		l.fileOutput = nil
	}
}

// LogDir returns the log directory path.
// gun usually runs from root's crontab, so root logs under /var/log.
func LogDir() (string, error) {
	if os.Geteuid() == 0 {
		return filepath.Join("/var", "log", "gun"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	xdgState := os.Getenv("XDG_STATE_HOME")
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}

	return filepath.Join(xdgState, "gun", "logs"), nil
}

// DefaultLogFile returns the log file used when none is configured
func DefaultLogFile() (string, error) {
	dir, err := LogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gun.log"), nil
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if level >= l.level {
		fmt.Fprint(l.output, msg+"\n")
	}

	// The file keeps everything from Info up, regardless of --quiet
	if l.fileOutput != nil && level >= LevelInfo {
		timestamp := l.now().Format("2006-01-02 15:04:05")
		l.fileOutput.WriteString(fmt.Sprintf("[%s] %s: %s\n", timestamp, level, msg))
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Critical logs a message for a condition that aborts the run
func (l *Logger) Critical(format string, args ...interface{}) {
	l.log(LevelCritical, format, args...)
}

// Package-level convenience functions
func Debug(format string, args ...interface{})    { Default().Debug(format, args...) }
func Info(format string, args ...interface{})     { Default().Info(format, args...) }
func Warn(format string, args ...interface{})     { Default().Warn(format, args...) }
func Error(format string, args ...interface{})    { Default().Error(format, args...) }
func Critical(format string, args ...interface{}) { Default().Critical(format, args...) }
func SetVerbose(v bool)                           { Default().SetVerbose(v) }
func SetQuiet(q bool)                             { Default().SetQuiet(q) }
func EnableFileLogging(path string) error         { return Default().EnableFileLogging(path) }
func Close()                                      { Default().Close() }

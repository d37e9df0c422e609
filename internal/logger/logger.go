package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const filePrefix = "glucobot-"

// Logger writes zerolog JSON lines to a log file rotated daily
type Logger struct {
	mu          sync.Mutex
	logDir      string
	maxDays     int
	currentFile *os.File
	currentDate string
	now         func() time.Time
	zl          zerolog.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
	nop           = zerolog.Nop()
)

// Config logger configuration
type Config struct {
	LogDir     string // Log directory
	Level      string // debug, info, warn, error
	MaxDays    int    // Max days to keep logs
	ConsoleOut bool   // Mirror to stderr as well
}

// ParseLevel converts a config level string to a zerolog level.
// Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the default logger
func Init(cfg Config) error {
	var err error
	once.Do(func() {
		defaultLogger, err = NewLogger(cfg)
	})
	return err
}

// NewLogger creates a new logger instance
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 7
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		logDir:  cfg.LogDir,
		maxDays: cfg.MaxDays,
		now:     time.Now,
	}

	if err := l.rotateIfNeeded(); err != nil {
		return nil, err
	}

	var w io.Writer = l
	if cfg.ConsoleOut {
		w = zerolog.MultiLevelWriter(l, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	l.zl = zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()

	return l, nil
}

// rotateIfNeeded opens today's file when the date changed. Caller holds mu.
func (l *Logger) rotateIfNeeded() error {
	today := l.now().Format("2006-01-02")
	if l.currentDate == today && l.currentFile != nil {
		return nil
	}

	if l.currentFile != nil {
		l.currentFile.Close()
	}

	filename := filepath.Join(l.logDir, fmt.Sprintf("%s%s.log", filePrefix, today))
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.currentFile = f
	l.currentDate = today

	l.cleanOldLogs()

	return nil
}

// cleanOldLogs removes log files beyond the newest maxDays
func (l *Logger) cleanOldLogs() {
	files, err := filepath.Glob(filepath.Join(l.logDir, filePrefix+"*.log"))
	if err != nil {
		return
	}

	if len(files) <= l.maxDays {
		return
	}

	// file names sort by date
	sort.Strings(files)

	for i := 0; i < len(files)-l.maxDays; i++ {
		os.Remove(files[i])
	}
}

// Write implements io.Writer for zerolog
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		fmt.Fprintf(os.Stderr, "Logger rotation error: %v\n", err)
		return 0, err
	}
	return l.currentFile.Write(p)
}

// Debug starts a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.zl.Debug()
}

// Info starts an info event
func (l *Logger) Info() *zerolog.Event {
	return l.zl.Info()
}

// Warn starts a warning event
func (l *Logger) Warn() *zerolog.Event {
	return l.zl.Warn()
}

// Error starts an error event
func (l *Logger) Error() *zerolog.Event {
	return l.zl.Error()
}

// Zerolog exposes the underlying zerolog logger
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// Close closes the logger
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.currentFile != nil {
		err := l.currentFile.Close()
		l.currentFile = nil
		return err
	}
	return nil
}

// Package-level functions using the default logger. Without Init they
// return disabled events, which zerolog treats as no-ops.

// Debug starts a debug event on the default logger
func Debug() *zerolog.Event {
	if defaultLogger != nil {
		return defaultLogger.Debug()
	}
	return nop.Debug()
}

// Info starts an info event on the default logger
func Info() *zerolog.Event {
	if defaultLogger != nil {
		return defaultLogger.Info()
	}
	return nop.Info()
}

// Warn starts a warning event on the default logger
func Warn() *zerolog.Event {
	if defaultLogger != nil {
		return defaultLogger.Warn()
	}
	return nop.Warn()
}

// Error starts an error event on the default logger
func Error() *zerolog.Event {
	if defaultLogger != nil {
		return defaultLogger.Error()
	}
	return nop.Error()
}

// Close closes the default logger
func Close() error {
	if defaultLogger != nil {
		return defaultLogger.Close()
	}
	return nil
}

// GetDefault returns the default logger
func GetDefault() *Logger {
	return defaultLogger
}

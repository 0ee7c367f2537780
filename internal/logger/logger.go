package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelDebug    LogLevel = "DEBUG"
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARN"
	LogLevelError    LogLevel = "ERROR"
	LogLevelDecision LogLevel = "DECISION"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug:    0,
	LogLevelInfo:     1,
	LogLevelDecision: 1,
	LogLevelWarning:  2,
	LogLevelError:    3,
}

// ParseLevel converts a config string such as "debug" or "WARN" into a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "", "INFO":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarning, nil
	case "ERROR":
		return LogLevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// sink is shared between a logger and the component loggers derived from it
type sink struct {
	mu      sync.Mutex
	out     *log.Logger
	logFile *os.File
	logPath string
}

// Logger is a levelled logger for risk components
type Logger struct {
	component string
	minLevel  LogLevel
	sink      *sink
	now       func() time.Time
}

// New creates a logger writing to w
func New(w io.Writer, component string, level LogLevel) *Logger {
	if _, ok := levelRank[level]; !ok {
		level = LogLevelInfo
	}
	return &Logger{
		component: component,
		minLevel:  level,
		sink:      &sink{out: log.New(w, "", 0)},
		now:       time.Now,
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return New(io.Discard, "", LogLevelError)
}

// NewFileLogger creates a logger appending to dir/name_YYYY-MM-DD.log
func NewFileLogger(dir, name string, level LogLevel) (*Logger, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", name, time.Now().Format("2006-01-02"))
	logPath := filepath.Join(dir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := New(file, name, level)
	l.sink.logFile = file
	l.sink.logPath = logPath
	l.writeSessionHeader()

	return l, nil
}

// With returns a logger for another component sharing the same output
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	child := *l
	child.component = component
	return &child
}

// Component returns the component label written with every entry
func (l *Logger) Component() string {
	if l == nil {
		return ""
	}
	return l.component
}

func (l *Logger) writeSessionHeader() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
RISK ENGINE SESSION STARTED
================================================================================
Started: %s
Log File: %s
================================================================================
`, l.now().Format("2006-01-02 15:04:05"), filepath.Base(l.sink.logPath))

	l.sink.out.Print(header)
}

func (l *Logger) enabled(level LogLevel) bool {
	return levelRank[level] >= levelRank[l.minLevel]
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	if l == nil || !l.enabled(level) {
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	timestamp := l.now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		l.sink.out.Printf("[%s] [%s] [%s] %s", timestamp, level, l.component, message)
		return
	}
	l.sink.out.Printf("[%s] [%s] %s", timestamp, level, message)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LogLevelDebug, format, args...)
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

// LogDecision writes a decision block with its reasons
func (l *Logger) LogDecision(id string, allowed bool, score int, reasons []string) {
	if l == nil || !l.enabled(LogLevelDecision) {
		return
	}

	verdict := "REJECTED"
	if allowed {
		verdict = "APPROVED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s trade=%s score=%d", verdict, id, score)
	for _, r := range reasons {
		fmt.Fprintf(&b, "\n    - %s", r)
	}
	l.Log(LogLevelDecision, "%s", b.String())
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// Close closes the log file, if any
func (l *Logger) Close() error {
	if l == nil || l.sink.logFile == nil {
		return nil
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	footer := fmt.Sprintf(`
================================================================================
RISK ENGINE SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, l.now().Format("2006-01-02 15:04:05"))
	l.sink.out.Print(footer)

	err := l.sink.logFile.Close()
	l.sink.logFile = nil
	return err
}

// GetLogPath returns the log file path, empty for writer-backed loggers
func (l *Logger) GetLogPath() string {
	if l == nil {
		return ""
	}
	return l.sink.logPath
}

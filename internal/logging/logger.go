// Package logging provides simple leveled logging for the rproc framework.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger wraps stdlib log with level support and structured key/value context.
type Logger struct {
	logger *log.Logger
	level  LogLevel
	format string
	mu     *sync.Mutex
	fields []any // inherited key/value pairs, appended to by With*
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logging configuration.
type Config struct {
	Level LogLevel
	// Format is "text" (default) or "json".
	Format  string
	Output  io.Writer
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a new logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	format := config.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		logger: log.New(output, "", log.LstdFlags),
		level:  config.Level,
		format: format,
		mu:     &sync.Mutex{},
	}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// With returns a child logger carrying an additional key/value pair on every
// subsequent message.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{
		logger: l.logger,
		level:  l.level,
		format: l.format,
		mu:     l.mu,
		fields: append(append([]any{}, l.fields...), key, value),
	}
}

// WithProcessor tags subsequent log lines with the owning processor name.
func (l *Logger) WithProcessor(name string) *Logger {
	return l.With("processor", name)
}

// WithOp tags subsequent log lines with the operation in progress
// (e.g. "load", "acquire", "release").
func (l *Logger) WithOp(op string) *Logger {
	return l.With("op", op)
}

// WithError tags subsequent log lines with an error value.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With("error", err.Error())
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			if b.Len() != 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return " " + b.String()
}

func levelName(level LogLevel) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if level < l.level {
		return
	}
	all := append(append([]any{}, l.fields...), args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		l.logger.Print(jsonLine(levelName(level), msg, all))
		return
	}
	l.logger.Printf("[%s] %s%s", levelName(level), msg, formatArgs(all))
}

func jsonLine(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString(`{"level":"`)
	b.WriteString(level)
	b.WriteString(`","msg":"`)
	b.WriteString(strings.ReplaceAll(msg, `"`, `\"`))
	b.WriteByte('"')
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, `,"%v":"%v"`, args[i], strings.ReplaceAll(fmt.Sprintf("%v", args[i+1]), `"`, `\"`))
	}
	b.WriteByte('}')
	return b.String()
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// Debugf/Infof/Warnf/Errorf provide printf-style logging for call sites that
// don't carry structured key/value pairs.
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, fmt.Sprintf(format, args...)) }

// Printf is kept for compatibility with callers that only know a
// Printf(format, args...) logger shape.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }

// Global convenience functions operating on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }

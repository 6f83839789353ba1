// Package telemetry provides the observability implementations behind
// the core interfaces: a structured logger and an OpenTelemetry
// tracing/metrics provider. Both are optional; every component in the
// client accepts the no-op defaults.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger implements core.Logger with level filtering and either JSON
// (production, log aggregation) or text (local development) output.
// Error logs are rate limited to one per second so a dead backend does
// not flood the device log while the UI keeps polling.
type Logger struct {
	mu          sync.RWMutex
	level       string
	format      string
	serviceName string
	output      io.Writer

	errorLimiter *RateLimiter
}

// LoggerOption customizes a Logger.
type LoggerOption func(*Logger)

// WithOutput redirects log output, mainly for tests.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *Logger) {
		if w != nil {
			l.output = w
		}
	}
}

// WithServiceName tags every entry with a service name.
func WithServiceName(name string) LoggerOption {
	return func(l *Logger) {
		if name != "" {
			l.serviceName = name
		}
	}
}

// NewLogger creates a logger. Level is one of DEBUG, INFO, WARN,
// ERROR (default INFO); format is "json" or "text" (default text).
func NewLogger(level, format string, opts ...LoggerOption) *Logger {
	if level == "" {
		level = "INFO"
	}
	if format != "json" {
		format = "text"
	}
	l := &Logger{
		level:        strings.ToUpper(level),
		format:       format,
		serviceName:  "storefront",
		output:       os.Stdout,
		errorLimiter: NewRateLimiter(1 * time.Second),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Info logs informational messages.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

// Error logs error messages, rate limited to one per second.
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	if l.errorLimiter != nil && !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, fields)
}

// Debug logs debug messages.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

// SetLevel updates the log level at runtime.
func (l *Logger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = strings.ToUpper(level)
}

func (l *Logger) log(level, msg string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.shouldLog(level) {
		return
	}

	timestamp := time.Now().Format(time.RFC3339)
	if l.format == "json" {
		l.logJSON(timestamp, level, msg, fields)
	} else {
		l.logText(timestamp, level, msg, fields)
	}
}

func (l *Logger) logJSON(timestamp, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"service":   l.serviceName,
		"message":   msg,
	}
	for k, v := range fields {
		if k != "timestamp" && k != "level" && k != "service" && k != "message" {
			entry[k] = v
		}
	}
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(l.output, string(data))
	}
}

func (l *Logger) logText(timestamp, level, msg string, fields map[string]interface{}) {
	var fieldStr strings.Builder
	if len(fields) > 0 {
		fieldStr.WriteString(" ")
		// Error first for readability
		if err, ok := fields["error"]; ok {
			fieldStr.WriteString(fmt.Sprintf("error=%q ", fmt.Sprintf("%v", err)))
		}
		for k, v := range fields {
			if k == "error" {
				continue
			}
			fieldStr.WriteString(fmt.Sprintf("%s=%v ", k, v))
		}
	}
	fmt.Fprintf(l.output, "%s [%s] [%s] %s%s\n",
		timestamp, level, l.serviceName, msg, strings.TrimRight(fieldStr.String(), " "))
}

func (l *Logger) shouldLog(level string) bool {
	levels := map[string]int{
		"DEBUG": 0,
		"INFO":  1,
		"WARN":  2,
		"ERROR": 3,
	}
	current, ok1 := levels[l.level]
	message, ok2 := levels[level]
	if !ok1 || !ok2 {
		return true
	}
	return message >= current
}

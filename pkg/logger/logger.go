package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Leveled logger shared by the lending service, the sweeper and the handlers.
// Entries created with With carry key=value fields appended to every line.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// Fields are appended to a log line as sorted key=value pairs.
type Fields map[string]interface{}

var (
	mu     sync.RWMutex
	logger *log.Logger = log.New(os.Stdout, "", 0)
	level  Level       = LevelInfo
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(l)
}

// ParseLevel maps a level name to a Level, falling back to Info.
func ParseLevel(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// SetOutput redirects log output; tests use it to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", 0)
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}

func header(l Level) string {
	return fmt.Sprintf("%s [%s] ", time.Now().Format(time.RFC3339), strings.ToUpper(l.String()))
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func output(l Level, fields Fields, format string, v ...interface{}) {
	if l < LevelFatal && !shouldLog(l) {
		return
	}
	line := header(l) + fmt.Sprintf(format, v...) + fields.String()
	mu.RLock()
	out := logger
	mu.RUnlock()
	out.Print(line)
}

func (f Fields) String() string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, f[k])
	}
	return b.String()
}

func Debugf(format string, v ...interface{}) { output(LevelDebug, nil, format, v...) }
func Infof(format string, v ...interface{})  { output(LevelInfo, nil, format, v...) }
func Warnf(format string, v ...interface{})  { output(LevelWarn, nil, format, v...) }
func Errorf(format string, v ...interface{}) { output(LevelError, nil, format, v...) }

func Fatalf(format string, v ...interface{}) {
	output(LevelFatal, nil, format, v...)
	os.Exit(1)
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	return level.String()
}

// Entry is a logger bound to a fixed set of fields.
type Entry struct {
	fields Fields
}

// With returns an Entry carrying the given fields.
func With(fields Fields) *Entry {
	return &Entry{fields: fields}
}

// Component is shorthand for With(Fields{"component": name}).
func Component(name string) *Entry {
	return With(Fields{"component": name})
}

// With returns a new Entry holding the receiver's fields plus the given ones.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{fields: merged}
}

func (e *Entry) Debugf(format string, v ...interface{}) { output(LevelDebug, e.fields, format, v...) }
func (e *Entry) Infof(format string, v ...interface{})  { output(LevelInfo, e.fields, format, v...) }
func (e *Entry) Warnf(format string, v ...interface{})  { output(LevelWarn, e.fields, format, v...) }
func (e *Entry) Errorf(format string, v ...interface{}) { output(LevelError, e.fields, format, v...) }

package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"linksort/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	debug  atomic.Bool
	logger = NewLogger()
)

// Field is a single structured key/value attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

type options struct {
	out   io.Writer
	json  bool
	level logrus.Level
	file  string
}

// Option configures a Logger.
type Option func(*options)

// WithOutput sends log entries to w.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to one JSON object per line.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFormat selects "text" or "json".
func WithFormat(format string) Option {
	return func(o *options) { o.json = strings.EqualFold(format, "json") }
}

// WithLevel sets the minimum level. "debug" also enables debug output globally.
func WithLevel(level string) Option {
	return func(o *options) {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return
		}
		if parsed >= logrus.DebugLevel {
			debug.Store(true)
		}
		o.level = parsed
	}
}

// WithFile additionally appends every entry to the file at path.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// Logger is a thin wrapper over a logrus entry. Debug output is gated by the
// package-wide SetDebug switch so every logger follows the --debug flag.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

// NewLogger creates a logger writing text to stderr unless configured otherwise.
func NewLogger(opts ...Option) *Logger {
	o := options{out: os.Stderr, level: logrus.InfoLevel}
	for _, opt := range opts {
		opt(&o)
	}

	base := logrus.New()
	l := &Logger{}

	out := o.out
	if o.file != "" {
		f, err := os.OpenFile(o.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			l.file = f
			out = io.MultiWriter(o.out, f)
		} else {
			fmt.Fprintf(o.out, "log: cannot open %s: %v\n", o.file, err)
		}
	}
	base.SetOutput(out)

	if o.json {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg:  "message",
				logrus.FieldKeyTime: "timestamp",
			},
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	// Info-level loggers still let debug entries through to logrus; the
	// package switch decides whether they are emitted.
	if o.level == logrus.InfoLevel {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(o.level)
	}

	l.entry = logrus.NewEntry(base)
	return l
}

// With returns a child logger carrying fields.
func (l *Logger) With(fields ...Field) *Logger {
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(lf), file: l.file}
}

// WithError attaches err plus whatever typed detail it carries.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	fields := []Field{F("error", err.Error())}

	// The outermost typed error describes the failure best.
chain:
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch typed := e.(type) {
		case *errors.FileError:
			fields = append(fields, F("error_kind", int(typed.Kind())), F("path", typed.Path()))
		case *errors.ConfigError:
			fields = append(fields, F("error_kind", int(typed.Kind())), F("param", typed.Param()))
		case *errors.RuleError:
			fields = append(fields, F("error_kind", int(typed.Kind())), F("rule_name", typed.RuleName()))
		case *errors.DatabaseError:
			fields = append(fields, F("error_kind", int(typed.Kind())), F("operation", typed.Operation()))
		case *errors.ApplicationError:
			fields = append(fields, F("error_kind", int(typed.Kind())))
		default:
			continue
		}
		break chain
	}
	return l.With(fields...)
}

func (l *Logger) Debug(args ...interface{}) {
	if debug.Load() {
		l.entry.Debug(args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if debug.Load() {
		l.entry.Debugf(format, args...)
	}
}

func (l *Logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// Close releases the log file opened by WithFile, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// SetDebug toggles debug output for every logger.
func SetDebug(enabled bool) {
	debug.Store(enabled)
}

// Configure replaces the package-level logger. Debug output is switched off
// unless the options ask for it; SetDebug afterwards overrides.
func Configure(opts ...Option) {
	debug.Store(false)
	prev := logger
	logger = NewLogger(opts...)
	if prev != nil {
		_ = prev.Close()
	}
}

// Default returns the package-level logger.
func Default() *Logger {
	return logger
}

func Debug(msg string)                          { logger.Debug(msg) }
func Debugf(format string, args ...interface{}) { logger.Debugf(format, args...) }
func Info(msg string)                           { logger.Info(msg) }
func Infof(format string, args ...interface{})  { logger.Infof(format, args...) }
func Warn(msg string)                           { logger.Warn(msg) }
func Warnf(format string, args ...interface{})  { logger.Warnf(format, args...) }
func Error(msg string)                          { logger.Error(msg) }
func Errorf(format string, args ...interface{}) { logger.Errorf(format, args...) }

// LogWithFields returns the package logger with fields attached.
func LogWithFields(fields ...Field) *Logger {
	return logger.With(fields...)
}

// LogWithError returns the package logger with err attached.
func LogWithError(err error) *Logger {
	return logger.WithError(err)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string) {
	logger.WithError(err).Error(msg)
}

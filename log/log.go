// Package log provides a simple wrapper around logrus with a familiar API
// (Infof, Warnf, Errorf, etc.), attaching the current run id from
// runctx to every entry.
package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/windmark/itinerary-engine/runctx"
)

// Logger is the global logger instance.
var Logger = logrus.New()

// CustomFormatter implements logrus.Formatter for the desired output format.
type CustomFormatter struct {
	TimestampFormat string
}

// Format formats a log entry as [<time>] [LEVEL] [file:line] <message>.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format(f.TimestampFormat)
	fmt.Fprintf(b, "[%s] ", timestamp)

	level := strings.ToUpper(entry.Level.String())
	fmt.Fprintf(b, "[%s] ", level)

	// Walk the stack to find the true caller, skipping logrus internals,
	// this package, and runtime frames.
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	file := ""
	line := 0

	for {
		frame, more := frames.Next()

		if strings.Contains(frame.File, "github.com/sirupsen/logrus") {
			if !more {
				break
			}
			continue
		}
		if strings.HasSuffix(frame.File, "log/log.go") {
			if !more {
				break
			}
			continue
		}
		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}

		file = frame.File
		line = frame.Line
		break
	}

	if file != "" {
		parts := strings.Split(file, "/")
		filename := parts[len(parts)-1]
		fmt.Fprintf(b, "[%s:%d] ", filename, line)
	}

	b.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		if runID, ok := entry.Data["run_id"].(string); ok && runID != "" {
			fmt.Fprintf(b, " [run:%s]", runID)
		}
		for key, value := range entry.Data {
			if key != "run_id" {
				fmt.Fprintf(b, " %s=%v", key, value)
			}
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func withRunIDField(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return Logger.WithField("run_id", "")
	}
	return Logger.WithField("run_id", runctx.RunIDFromContext(ctx))
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	withRunIDField(ctx).Infof(format, args...)
}

func Info(ctx context.Context, args ...interface{}) {
	withRunIDField(ctx).Info(args...)
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	withRunIDField(ctx).Debugf(format, args...)
}

func Debug(ctx context.Context, args ...interface{}) {
	withRunIDField(ctx).Debug(args...)
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	withRunIDField(ctx).Warnf(format, args...)
}

func Warn(ctx context.Context, args ...interface{}) {
	withRunIDField(ctx).Warn(args...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	withRunIDField(ctx).Errorf(format, args...)
}

func Error(ctx context.Context, args ...interface{}) {
	withRunIDField(ctx).Error(args...)
}

func Fatalf(ctx context.Context, format string, args ...interface{}) {
	withRunIDField(ctx).Fatalf(format, args...)
}

func Fatal(ctx context.Context, args ...interface{}) {
	withRunIDField(ctx).Fatal(args...)
}

// SetLevel sets the global log level.
func SetLevel(level logrus.Level) {
	Logger.SetLevel(level)
}

// SetFormatter sets the global log formatter.
func SetFormatter(formatter logrus.Formatter) {
	Logger.SetFormatter(formatter)
}

// SetOutput sets the global log output.
func SetOutput(out io.Writer) {
	Logger.SetOutput(out)
}

// Init initializes the logger with default settings.
func Init() {
	Logger.SetFormatter(&CustomFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	Logger.SetLevel(logrus.InfoLevel)
}

// WithFields creates a logger with predefined fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithField creates a logger with a predefined field.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithRunID creates a logger entry with a run id field.
func WithRunID(runID string) *logrus.Entry {
	return Logger.WithField("run_id", runID)
}

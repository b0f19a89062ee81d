package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Emojis for different log types
const (
	infoEmoji    = "ℹ️ "
	successEmoji = "✅ "
	errorEmoji   = "❌ "
	warnEmoji    = "⚠️ "
	stepEmoji    = "👉 "
	debugEmoji   = "🔍 "
	prEmoji      = "🔄 "
	fileEmoji    = "📝 "
	branchEmoji  = "🌿 "
	aiEmoji      = "🤖 "
)

const kindField = "kind"

type style struct {
	emoji string
	paint *color.Color
}

var styles = map[string]style{
	"info":    {infoEmoji, color.New(color.FgBlue)},
	"success": {successEmoji, color.New(color.FgGreen, color.Bold)},
	"error":   {errorEmoji, color.New(color.FgRed, color.Bold)},
	"warning": {warnEmoji, color.New(color.FgYellow, color.Bold)},
	"step":    {stepEmoji, color.New(color.FgCyan)},
	"debug":   {debugEmoji, color.New(color.Faint)},
	"pr":      {prEmoji, color.New(color.FgMagenta)},
	"file":    {fileEmoji, color.New(color.FgYellow)},
	"branch":  {branchEmoji, color.New(color.FgGreen)},
	"ai":      {aiEmoji, color.New(color.FgHiCyan)},
}

// Logger wraps logrus with the emoji/color output style
type Logger struct {
	entry *logrus.Entry
	debug bool
}

// New creates a new logger instance writing to stdout
func New(debug bool) *Logger {
	return NewWithWriter(os.Stdout, debug)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, debug bool) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&formatter{})
	if debug {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}
	return &Logger{entry: logrus.NewEntry(base), debug: debug}
}

// WithField returns a child logger that appends key=value to every line
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), debug: l.debug}
}

// formatter renders entries as "<emoji><message> [k=v ...]" in the kind's color
type formatter struct{}

func (f *formatter) Format(e *logrus.Entry) ([]byte, error) {
	kind, _ := e.Data[kindField].(string)
	st, ok := styles[kind]
	if !ok {
		st = styles["info"]
	}

	var buf bytes.Buffer
	buf.WriteString(st.emoji)
	buf.WriteString(formatMessage(e.Message))

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		if k != kindField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, e.Data[k])
	}

	return []byte(st.paint.Sprint(buf.String()) + "\n"), nil
}

// formatMessage adds padding and wraps long lines
func formatMessage(msg string) string {
	width := 80
	lines := strings.Split(msg, "\n")
	var formatted []string

	for _, line := range lines {
		if len(line) <= width {
			formatted = append(formatted, line)
			continue
		}

		words := strings.Fields(line)
		current := ""
		for _, word := range words {
			if len(current)+len(word)+1 > width {
				formatted = append(formatted, current)
				current = word
			} else {
				if current == "" {
					current = word
				} else {
					current += " " + word
				}
			}
		}
		if current != "" {
			formatted = append(formatted, current)
		}
	}

	return strings.Join(formatted, "\n")
}

func (l *Logger) kind(k string) *logrus.Entry {
	return l.entry.WithField(kindField, k)
}

// Info prints an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.kind("info").Infof(format, args...)
}

// Success prints a success message
func (l *Logger) Success(format string, args ...interface{}) {
	l.kind("success").Infof(format, args...)
}

// Error prints an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.kind("error").Errorf(format, args...)
}

// Warning prints a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.kind("warning").Warnf(format, args...)
}

// Step prints a step message
func (l *Logger) Step(format string, args ...interface{}) {
	l.kind("step").Infof(format, args...)
}

// Debug prints a debug message if debug is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	l.kind("debug").Debugf(format, args...)
}

// PR prints a PR-related message
func (l *Logger) PR(format string, args ...interface{}) {
	l.kind("pr").Infof(format, args...)
}

// File prints a message about a committed or fetched file
func (l *Logger) File(format string, args ...interface{}) {
	l.kind("file").Infof(format, args...)
}

// Branch prints a branch-related message
func (l *Logger) Branch(format string, args ...interface{}) {
	l.kind("branch").Infof(format, args...)
}

// AI prints a message about a model call
func (l *Logger) AI(format string, args ...interface{}) {
	l.kind("ai").Infof(format, args...)
}

// IsDebug returns whether debug logging is enabled
func (l *Logger) IsDebug() bool {
	return l.debug
}

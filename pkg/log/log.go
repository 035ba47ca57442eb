// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent  = 2  // spaces to indent file entries
	statusWidth = 10 // Width for status text
)

// 🏷️ EventKind says what happened to a file
type EventKind int

const (
	EventCopied EventKind = iota
	EventFailed
	EventSkipped
	EventRemoved
)

// String returns a string representation of EventKind
func (k EventKind) String() string {
	switch k {
	case EventCopied:
		return "copied"
	case EventFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// 🎯 FileEvent represents a per-file diagnostic
type FileEvent struct {
	Path   string    // Source path
	Dest   string    // Destination path, if any
	Kind   EventKind // What happened
	Reason string    // Short classification, e.g. "vanished"
	Err    error     // Underlying error, if any
}

// 📌 LineHolder owns a line on the console that must be cleared before other
// output and redrawn afterwards.
type LineHolder interface {
	Suspend(fn func())
}

// 🎯 Logger writes user facing diagnostics to the console and mirrors them
// as structured zerolog events.
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	holder  LineHolder
	status  string // unterminated status line on the console
}

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔇 Discard returns a logger that prints nothing
func Discard() *Logger {
	return New(io.Discard, zerolog.Nop())
}

// SetLineHolder routes console output around h's line.
func (l *Logger) SetLineHolder(h LineHolder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holder = h
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 Ctx returns the logger carried by ctx, or a discarding logger when there
// is none.
func Ctx(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return Discard()
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// printLocked writes one console line around the held line, replacing an
// open status line. Callers hold mu.
func (l *Logger) printLocked(line string) {
	if l.status != "" {
		fmt.Fprint(l.console, "\r"+strings.Repeat(" ", len([]rune(l.status)))+"\r")
		l.status = ""
	}
	write := func() { fmt.Fprintln(l.console, line) }
	if l.holder != nil {
		l.holder.Suspend(write)
		return
	}
	write()
}

// 📝 formatFileEvent formats a file event for display
func (l *Logger) formatFileEvent(ev FileEvent) string {
	var symbol string
	var symbolColor color.Attribute
	switch ev.Kind {
	case EventFailed:
		symbol, symbolColor = "✗", color.FgRed
	case EventSkipped:
		symbol, symbolColor = "-", color.FgYellow
	case EventRemoved:
		symbol, symbolColor = "⌫", color.FgBlue
	default:
		symbol, symbolColor = "✓", color.FgGreen
	}

	line := fmt.Sprintf("%*s%s %s %s",
		fileIndent, "",
		color.New(symbolColor).Sprint(symbol),
		fmt.Sprintf("%-*s", statusWidth, ev.Kind),
		ev.Path)
	if ev.Reason != "" {
		line += " " + color.New(color.Faint).Sprint("("+ev.Reason+")")
	}
	return line
}

// 📝 LogFileEvent logs a per-file event. Copied files are only shown on the
// console when debug logging is enabled.
func (l *Logger) LogFileEvent(ctx context.Context, ev FileEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var e *zerolog.Event
	switch ev.Kind {
	case EventFailed:
		e = l.zlog.Error()
	case EventSkipped:
		e = l.zlog.Warn()
	case EventCopied:
		e = l.zlog.Debug()
	default:
		e = l.zlog.Info()
	}
	if ev.Kind != EventCopied || l.zlog.GetLevel() <= zerolog.DebugLevel {
		l.printLocked(l.formatFileEvent(ev))
	}
	e.Str("path", ev.Path).
		Str("dest", ev.Dest).
		Str("event", ev.Kind.String()).
		Str("reason", ev.Reason).
		Err(ev.Err).
		Msg("file event")
}

// 📝 Status prints a transient status message without a line break, used
// for the scan pre-pass. The next console line clears and replaces it.
func (l *Logger) Status(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.console, "\r"+msg)
	l.status = msg
	l.zlog.Debug().Msg(msg)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.printLocked(color.New(color.Bold).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.printLocked("⚠️  " + color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.printLocked("❌ " + color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Headerf logs a formatted header
func (l *Logger) Headerf(format string, args ...interface{}) {
	l.Header(fmt.Sprintf(format, args...))
}

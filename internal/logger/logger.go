package logger

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
)

// Logger writes component-tagged, leveled lines: "[INFO] [ORDER] message".
type Logger struct {
	out   *log.Logger
	debug bool

	info  func(a ...interface{}) string
	warn  func(a ...interface{}) string
	error func(a ...interface{}) string
	dbg   func(a ...interface{}) string
}

func NewLogger() *Logger {
	return New(os.Stdout, os.Getenv("LOG_DEBUG") == "true")
}

func New(w io.Writer, debug bool) *Logger {
	return &Logger{
		out:   log.New(w, "", log.LstdFlags),
		debug: debug,
		info:  color.New(color.FgGreen).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		error: color.New(color.FgRed, color.Bold).SprintFunc(),
		dbg:   color.New(color.FgCyan).SprintFunc(),
	}
}

// Discard is used by tests.
func Discard() *Logger {
	return New(io.Discard, false)
}

func (l *Logger) Info(component, msg string) {
	l.write(l.info("[INFO]"), component, msg)
}

func (l *Logger) Infof(component, format string, args ...any) {
	l.Info(component, fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(component, msg string) {
	l.write(l.warn("[WARN]"), component, msg)
}

func (l *Logger) Warnf(component, format string, args ...any) {
	l.Warn(component, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(component, msg string) {
	l.write(l.error("[ERROR]"), component, msg)
}

func (l *Logger) Errorf(component, format string, args ...any) {
	l.Error(component, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(component, msg string) {
	if !l.debug {
		return
	}
	l.write(l.dbg("[DEBUG]"), component, msg)
}

func (l *Logger) Fatal(component, msg string) {
	l.write(l.error("[FATAL]"), component, msg)
	os.Exit(1)
}

func (l *Logger) write(level, component, msg string) {
	l.out.Printf("%s [%s] %s", level, component, msg)
}

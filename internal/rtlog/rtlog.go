// Package rtlog provides the runtime's structured logging, one logger per
// subsystem.
//
// src/log.go colorizes output by hand with text_color_set() and
// dw_printf() calls scattered through every file. go.mod already pulled in
// github.com/charmbracelet/log for exactly this purpose but never finished
// wiring it in; rtlog is that wiring completed, with one logger per
// subsystem name instead of one global dw_printf.
package rtlog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

var (
	mu      sync.Mutex
	loggers = map[string]*log.Logger{}
	base    = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
)

// For returns the logger for a named subsystem (e.g. "memseg", "nvm",
// "tone"), creating it on first use. Loggers are cheap to share: callers
// may hold the returned pointer for the lifetime of the process.
func For(subsystem string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[subsystem]; ok {
		return l
	}
	l := base.WithPrefix(subsystem)
	loggers[subsystem] = l
	return l
}

// SetLevel adjusts the verbosity of every logger created through For, past
// and future. Mirrors the single global verbosity knob log.go used to set
// directly on dw_printf's text_color_set state.
func SetLevel(level log.Level) {
	mu.Lock()
	defer mu.Unlock()
	base.SetLevel(level)
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

// TraceFileName formats a rotating trace-log file name from a strftime
// pattern, the same daily-rotation concern as log_init's daily_names mode,
// just delegated to a real strftime implementation instead of
// time.Format's fixed reference-date layout.
func TraceFileName(pattern string, when time.Time) (string, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return "", fmt.Errorf("rtlog: bad trace file pattern %q: %w", pattern, err)
	}
	return f.FormatString(when), nil
}

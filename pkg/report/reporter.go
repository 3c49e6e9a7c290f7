package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pterm/pterm"
)

// LogLevel selects which messages a Reporter displays.
type LogLevel int

// Enumeration of the log levels, from least to most output.
const (
	LogLevelSilent  LogLevel = iota // Displays no output.
	LogLevelError                   // Displays only errors.
	LogLevelWarn                    // Displays warnings and errors.
	LogLevelVerbose                 // Displays all compilation messages.
)

var logLevelNames = [...]string{
	LogLevelSilent:  "silent",
	LogLevelError:   "error",
	LogLevelWarn:    "warn",
	LogLevelVerbose: "verbose",
}

func (l LogLevel) String() string {
	if int(l) >= 0 && int(l) < len(logLevelNames) {
		return logLevelNames[l]
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ParseLogLevel converts a level name as accepted on the command line or in
// lilcc.toml into a LogLevel.
func ParseLogLevel(name string) (LogLevel, error) {
	for i, n := range logLevelNames {
		if strings.EqualFold(n, name) {
			return LogLevel(i), nil
		}
	}
	return LogLevelError, fmt.Errorf("unknown log level %q (want silent, error, warn or verbose)", name)
}

// Reporter writes diagnostics and progress messages to a stream. It is safe
// for use by several goroutines compiling different units.
type Reporter struct {
	m        sync.Mutex
	w        io.Writer
	logLevel LogLevel
	errCount int
}

// NewReporter returns a reporter writing to w. When color is false pterm
// styling is switched off for the whole process.
func NewReporter(w io.Writer, level LogLevel, color bool) *Reporter {
	if !color {
		pterm.DisableStyling()
	}
	if level == LogLevelVerbose {
		pterm.EnableDebugMessages()
	}
	return &Reporter{w: w, logLevel: level}
}

// LogLevel returns the level the reporter was created with.
func (r *Reporter) LogLevel() LogLevel {
	return r.logLevel
}

// ErrorCount returns the number of errors reported so far.
func (r *Reporter) ErrorCount() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.errCount
}

// CompileError reports err against the source of file. Errors carrying a
// span are rendered with the offending source line and a caret; any other
// error is printed on a single line.
func (r *Reporter) CompileError(file, src string, err error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.errCount++
	if r.logLevel == LogLevelSilent {
		return
	}

	label := pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("error")
	var se Spanned
	if errors.As(err, &se) {
		fmt.Fprint(r.w, Render(file, src, se.Span(), label, se.Message()))
		return
	}
	fmt.Fprint(r.w, Render(file, src, Span{}, label, err.Error()))
}

// Fatal reports an error that is not tied to a source position: missing
// input files, a failing assembler, bad configuration.
func (r *Reporter) Fatal(format string, args ...any) {
	r.m.Lock()
	defer r.m.Unlock()
	r.errCount++
	if r.logLevel == LogLevelSilent {
		return
	}
	fmt.Fprintln(r.w, pterm.Error.Sprint(fmt.Sprintf(format, args...)))
}

// Warn reports a warning.
func (r *Reporter) Warn(format string, args ...any) {
	if r.logLevel < LogLevelWarn {
		return
	}
	r.m.Lock()
	defer r.m.Unlock()
	fmt.Fprintln(r.w, pterm.Warning.Sprint(fmt.Sprintf(format, args...)))
}

// Info reports compilation progress; only shown at verbose level.
func (r *Reporter) Info(format string, args ...any) {
	if r.logLevel < LogLevelVerbose {
		return
	}
	r.m.Lock()
	defer r.m.Unlock()
	fmt.Fprintln(r.w, pterm.Info.Sprint(fmt.Sprintf(format, args...)))
}

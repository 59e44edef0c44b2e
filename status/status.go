// Leveled logging for ecloudframes.
//
// Messages at or above the logger's level are printed to stderr (if installed) and forwarded to an
// underlying logger (if installed), normally syslog for the daemons.  A message is always a single
// line; the underlying logger sees it without the level prefix since syslog carries the priority
// itself.

package status

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"strings"
	"sync"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelCritical
)

var levelNames = [...]string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelCritical {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return levelNames[l]
}

// Parse a level name, case-insensitively.  "warn" is accepted for "warning".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarning, nil
	case "error":
		return LogLevelError, nil
	case "critical":
		return LogLevelCritical, nil
	}
	return LogLevelError, fmt.Errorf("Unknown log level %q", s)
}

// Implementations of this must be thread-safe.  None of the printing methods may exit or panic.
type Logger interface {
	// Print only messages at level l or above
	SetLevel(l LogLevel)

	// Lower log level at least to l
	LowerLevelTo(l LogLevel)

	Level() LogLevel

	// Print on this stream, if non-nil
	SetStderr(w io.Writer)

	// Print on this underlying logger, if non-nil
	SetUnderlying(w UnderlyingLogger)

	Debug(xs ...any)
	Debugf(format string, args ...any)
	Info(xs ...any)
	Infof(format string, args ...any)
	Warning(xs ...any)
	Warningf(format string, args ...any)
	Error(xs ...any)
	Errorf(format string, args ...any)
	Critical(xs ...any)
	Criticalf(format string, args ...any)
}

// log/syslog.Writer implements UnderlyingLogger.  An underlying logger must be thread-safe.
type UnderlyingLogger interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
	Crit(m string) error
}

type StandardLogger struct {
	sync.Mutex
	level      LogLevel
	stderr     io.Writer
	underlying UnderlyingLogger
}

func New(level LogLevel, stderr io.Writer) *StandardLogger {
	return &StandardLogger{level: level, stderr: stderr}
}

// MT: Constant after initialization; thread-safe
var defaultLogger Logger = New(LogLevelWarning, os.Stderr)

func Default() Logger {
	return defaultLogger
}

func (sl *StandardLogger) SetLevel(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()
	sl.level = l
}

func (sl *StandardLogger) LowerLevelTo(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()
	if l < sl.level {
		sl.level = l
	}
}

func (sl *StandardLogger) Level() LogLevel {
	sl.Lock()
	defer sl.Unlock()
	return sl.level
}

func (sl *StandardLogger) SetStderr(stderr io.Writer) {
	sl.Lock()
	defer sl.Unlock()
	sl.stderr = stderr
}

func (sl *StandardLogger) SetUnderlying(underlying UnderlyingLogger) {
	sl.Lock()
	defer sl.Unlock()
	sl.underlying = underlying
}

func (sl *StandardLogger) emit(l LogLevel, s string) {
	sl.Lock()
	defer sl.Unlock()

	if l < sl.level {
		return
	}
	if sl.stderr != nil {
		fmt.Fprintf(sl.stderr, "%s: %s\n", l, s)
	}
	if sl.underlying != nil {
		// Errors from syslog have nowhere useful to go.
		switch l {
		case LogLevelDebug:
			sl.underlying.Debug(s)
		case LogLevelInfo:
			sl.underlying.Info(s)
		case LogLevelWarning:
			sl.underlying.Warning(s)
		case LogLevelError:
			sl.underlying.Err(s)
		default:
			sl.underlying.Crit(s)
		}
	}
}

func (sl *StandardLogger) Debug(xs ...any) { sl.emit(LogLevelDebug, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Debugf(format string, args ...any) {
	sl.emit(LogLevelDebug, fmt.Sprintf(format, args...))
}

func (sl *StandardLogger) Info(xs ...any) { sl.emit(LogLevelInfo, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Infof(format string, args ...any) {
	sl.emit(LogLevelInfo, fmt.Sprintf(format, args...))
}

func (sl *StandardLogger) Warning(xs ...any) { sl.emit(LogLevelWarning, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Warningf(format string, args ...any) {
	sl.emit(LogLevelWarning, fmt.Sprintf(format, args...))
}

func (sl *StandardLogger) Error(xs ...any) { sl.emit(LogLevelError, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Errorf(format string, args ...any) {
	sl.emit(LogLevelError, fmt.Sprintf(format, args...))
}

func (sl *StandardLogger) Critical(xs ...any) { sl.emit(LogLevelCritical, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Criticalf(format string, args ...any) {
	sl.emit(LogLevelCritical, fmt.Sprintf(format, args...))
}

// Attach the default logger to the local syslog daemon under logTag.  The daemons call this early;
// a failure to connect is fatal since a daemon without a log is flying blind.

func Start(logTag string) {
	// The "","" address connects us to the Unix syslog daemon.  The priority is a placeholder, the
	// logger methods override it.
	w, err := syslog.Dial("", "", syslog.LOG_INFO|syslog.LOG_USER, logTag)
	if err != nil {
		Fatal(err.Error())
	}
	defaultLogger.SetUnderlying(w)
}

func Fatal(msg string) {
	defaultLogger.Critical(msg)
	os.Exit(1)
}

func Fatalf(format string, args ...any) {
	defaultLogger.Criticalf(format, args...)
	os.Exit(1)
}

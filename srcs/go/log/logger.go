// Package log is a leveled logger. Child loggers made by With share the
// output and level of their parent and add a tag, such as the group and
// rank of a process group.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lsds/ncclpg/srcs/go/config"
	"github.com/lsds/ncclpg/srcs/go/utils/xterm"
)

type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = []string{`DEBUG`, `INFO`, `WARN`, `ERROR`}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", int32(l))
}

// ParseLevel returns Info for unknown names.
func ParseLevel(name string) Level {
	for i, n := range levelNames {
		if strings.EqualFold(n, name) {
			return Level(i)
		}
	}
	return Info
}

const (
	ShowTimestamp = 1 << iota
)

// sink is the output shared by a logger and its children.
type sink struct {
	mu    sync.Mutex
	w     io.Writer
	buf   []byte
	t0    time.Time
	flags atomic.Uint32
	level atomic.Int32
}

type Logger struct {
	s   *sink
	tag string
}

func New() *Logger {
	s := &sink{w: os.Stdout, t0: time.Now()}
	s.level.Store(int32(ParseLevel(config.LogLevel)))
	return &Logger{s: s}
}

// With returns a logger that writes tag after the level of every line.
func (l *Logger) With(tag string) *Logger {
	if len(l.tag) > 0 {
		tag = l.tag + " " + tag
	}
	return &Logger{s: l.s, tag: tag}
}

// Enabled reports whether lines of level are written.
func (l *Logger) Enabled(level Level) bool {
	return int32(level) >= l.s.level.Load()
}

// fmtDuration renders d as days, clock time and milliseconds.
func fmtDuration(d time.Duration) string {
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hh := d / time.Hour
	d -= hh * time.Hour
	mm := d / time.Minute
	d -= mm * time.Minute
	ss := d / time.Second
	d -= ss * time.Second
	return fmt.Sprintf("%dd %02d:%02d:%02d %6.2fms", days, hh, mm, ss, float64(d)/float64(time.Millisecond))
}

func (l *Logger) logf(level Level, mark, format string, v ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	msg := strings.TrimSuffix(fmt.Sprintf(format, v...), "\n")
	s := l.s
	s.mu.Lock()
	defer s.mu.Unlock()
	b := append(s.buf[:0], mark...)
	if s.flags.Load()&ShowTimestamp != 0 {
		b = append(b, " ["...)
		b = append(b, fmtDuration(time.Since(s.t0))...)
		b = append(b, ']')
	}
	b = append(b, ' ')
	if len(l.tag) > 0 {
		b = append(b, l.tag...)
		b = append(b, ' ')
	}
	b = append(b, msg...)
	b = append(b, '\n')
	s.w.Write(b)
	s.buf = b
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logf(Debug, "[D]", format, v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.logf(Info, "[I]", format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logf(Warn, "[W]", format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logf(Error, xterm.Warn.S("[E]"), format, v...)
}

// Exitf logs at error level regardless of the level and exits.
func (l *Logger) Exitf(format string, v ...interface{}) {
	l.s.level.Store(int32(Debug))
	l.logf(Error, xterm.Warn.S("[F]"), format, v...)
	os.Exit(1)
}

func (l *Logger) SetOutput(w io.Writer) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.w = w
}

func (l *Logger) SetLevel(level Level) {
	l.s.level.Store(int32(level))
}

func (l *Logger) SetFlags(fs ...uint32) {
	var flags uint32
	for _, f := range fs {
		flags |= f
	}
	l.s.flags.Store(flags)
}

var std = New()

var (
	Debugf    = std.Debugf
	Infof     = std.Infof
	Warnf     = std.Warnf
	Errorf    = std.Errorf
	Exitf     = std.Exitf
	SetFlags  = std.SetFlags
	SetLevel  = std.SetLevel
	SetOutput = std.SetOutput
	Enabled   = std.Enabled
	With      = std.With
)

// Package lol (log of location) prints leveled log lines carrying a timestamp
// and the source location of the print, so a trace of a relay session can be
// followed back to the code that produced it.
package lol

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

const (
	Off = iota
	Fatal
	Error
	Warn
	Info
	Debug
	Trace
)

type level struct {
	name  string
	tag   string
	paint func(a ...any) string
}

var levels = [...]level{
	Off:   {"off", "", func(a ...any) string { return "" }},
	Fatal: {"fatal", "FTL", color.New(color.BgRed, color.FgHiWhite).Sprint},
	Error: {"error", "ERR", color.New(color.FgHiRed).Sprint},
	Warn:  {"warn", "WRN", color.New(color.FgHiYellow).Sprint},
	Info:  {"info", "INF", color.New(color.FgHiGreen).Sprint},
	Debug: {"debug", "DBG", color.New(color.FgHiBlue).Sprint},
	Trace: {"trace", "TRC", color.New(color.FgHiMagenta).Sprint},
}

type (
	// Ln prints its arguments separated by spaces.
	Ln func(a ...any)
	// F prints like fmt.Printf.
	F func(format string, a ...any)
	// S prints a spew dump of the values.
	S func(a ...any)
	// C runs the closure only when the level is printing.
	C func(closure func() string)
	// Chk prints a non-nil error and reports whether there was one.
	Chk func(e error) bool
	// Err builds an error with fmt.Errorf and logs it before returning it.
	Err func(format string, a ...any) error

	// LevelPrinter is the set of printers for one level.
	LevelPrinter struct {
		Ln
		F
		S
		C
		Chk
		Err
	}
)

// Log is a printer per level.
type Log struct {
	F, E, W, I, D, T LevelPrinter
}

// Check is the Chk of each level.
type Check struct {
	F, E, W, I, D, T Chk
}

// Errorf is the Err of each level.
type Errorf struct {
	F, E, W, I, D, T Err
}

// Logger bundles the three views of one set of printers.
type Logger struct {
	*Log
	*Check
	*Errorf
}

var (
	// Level is the highest level that is printed.
	Level atomic.Int32
	// NoTimeStamp drops the timestamp prefix, mostly for tests.
	NoTimeStamp atomic.Bool
	// Main writes to stderr and is what every package's log, chk and errorf
	// point at.
	Main = &Logger{}
)

func init() {
	Main.Log, Main.Check, Main.Errorf = New(os.Stderr)
	Level.Store(Info)
}

// SetLoggers sets the printing level, falling back to Info when out of range.
func SetLoggers(l int) {
	if l < Off || l > Trace {
		l = Info
	}
	Level.Store(int32(l))
	Main.Log.T.F("log level %s", levels[l].paint(levels[l].name))
}

// GetLogLevel maps a level name to its number, Info if the name is unknown.
func GetLogLevel(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range levels {
		if levels[i].name == name {
			return i
		}
	}
	return Info
}

// SetLogLevel sets the level from its name.
func SetLogLevel(name string) { SetLoggers(GetLogLevel(name)) }

var locColor = color.New(color.FgBlue).Sprint

type sink struct {
	sync.Mutex
	w io.Writer
}

func (s *sink) emit(l int32, text string) {
	var ts string
	if !NoTimeStamp.Load() {
		ts = time.Now().Format("2006-01-02T15:04:05.000Z07:00 ")
	}
	line := fmt.Sprintf("%s%s %s %s\n", locColor(ts), levels[l].paint(levels[l].tag),
		strings.TrimRight(text, "\n"), locColor(caller(3)))
	s.Lock()
	_, _ = io.WriteString(s.w, line)
	s.Unlock()
}

func (s *sink) printer(l int32) LevelPrinter {
	on := func() bool { return Level.Load() >= l }
	return LevelPrinter{
		Ln: func(a ...any) {
			if on() {
				s.emit(l, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
			}
		},
		F: func(format string, a ...any) {
			if on() {
				s.emit(l, fmt.Sprintf(format, a...))
			}
		},
		S: func(a ...any) {
			if on() {
				s.emit(l, spew.Sdump(a...))
			}
		},
		C: func(closure func() string) {
			if on() {
				s.emit(l, closure())
			}
		},
		Chk: func(e error) bool {
			if e == nil {
				return false
			}
			if on() {
				s.emit(l, e.Error())
			}
			return true
		},
		Err: func(format string, a ...any) (err error) {
			err = fmt.Errorf(format, a...)
			if on() {
				s.emit(l, err.Error())
			}
			return
		},
	}
}

// New makes a set of printers writing to w. Writes from concurrent goroutines
// are serialized so lines do not interleave.
func New(w io.Writer) (l *Log, c *Check, e *Errorf) {
	s := &sink{w: w}
	l = &Log{
		F: s.printer(Fatal),
		E: s.printer(Error),
		W: s.printer(Warn),
		I: s.printer(Info),
		D: s.printer(Debug),
		T: s.printer(Trace),
	}
	c = &Check{l.F.Chk, l.E.Chk, l.W.Chk, l.I.Chk, l.D.Chk, l.T.Chk}
	e = &Errorf{l.F.Err, l.E.Err, l.W.Err, l.I.Err, l.D.Err, l.T.Err}
	return
}

// caller is the file:line skip frames up, with the path cut to the last two
// elements.
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?"
	}
	dir, name := filepath.Split(file)
	return fmt.Sprintf("%s:%d", filepath.Join(filepath.Base(dir), name), line)
}

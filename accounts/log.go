package accounts

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"luminaflow.lol/lol"
)

// NewLogger creates a badger logger that prints through the lol logger.
func NewLogger(logLevel no, label st) (l *logger) {
	log.T.Ln("getting logger for", label)
	l = &logger{Label: label}
	l.Level.Store(int32(logLevel))
	return
}

type logger struct {
	Level atomic.Int32
	Label st
}

// SetLogLevel atomically adjusts the log level to the given log level code.
func (l *logger) SetLogLevel(level no) { l.Level.Store(int32(level)) }

func (l *logger) text(s st, i ...any) st {
	txt := fmt.Sprintf(l.Label+": "+s, i...)
	_, file, line, _ := runtime.Caller(2)
	return fmt.Sprintf("%s\n%s:%d", strings.TrimSpace(txt), file, line)
}

func (l *logger) Errorf(s st, i ...any) {
	if l.Level.Load() >= lol.Error {
		log.E.Ln(l.text(s, i...))
	}
}

func (l *logger) Warningf(s st, i ...any) {
	if l.Level.Load() >= lol.Warn {
		log.W.Ln(l.text(s, i...))
	}
}

func (l *logger) Infof(s st, i ...any) {
	if l.Level.Load() >= lol.Info {
		log.D.Ln(l.text(s, i...))
	}
}

func (l *logger) Debugf(s st, i ...any) {
	if l.Level.Load() >= lol.Debug {
		log.T.Ln(l.text(s, i...))
	}
}

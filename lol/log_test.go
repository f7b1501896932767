package lol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPrinterFiltersByLevel(t *testing.T) {
	NoTimeStamp.Store(true)
	defer NoTimeStamp.Store(false)
	prev := Level.Load()
	defer Level.Store(prev)
	var buf bytes.Buffer
	l, c, e := New(&buf)
	Level.Store(Warn)
	l.D.F("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("debug printed at warn level: %q", buf.String())
	}
	l.W.Ln("shown", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Fatalf("warn not printed: %q", buf.String())
	}
	buf.Reset()
	if c.D(errors.New("quiet")) != true {
		t.Fatal("check must report a non-nil error even when not printing")
	}
	if buf.Len() != 0 {
		t.Fatalf("debug check printed at warn level")
	}
	if c.E(nil) {
		t.Fatal("check reported a nil error")
	}
	err := e.E("boom %s", "here")
	if err == nil || err.Error() != "boom here" {
		t.Fatalf("unexpected error %v", err)
	}
	if !strings.Contains(buf.String(), "boom here") {
		t.Fatalf("errorf did not log: %q", buf.String())
	}
}

func TestGetLogLevel(t *testing.T) {
	if GetLogLevel("debug") != Debug {
		t.Fatal("debug")
	}
	if GetLogLevel("nonsense") != Info {
		t.Fatal("unknown names fall back to info")
	}
}

func TestSetLogLevel(t *testing.T) {
	prev := Level.Load()
	defer Level.Store(prev)
	SetLogLevel("trace")
	if Level.Load() != Trace {
		t.Fatalf("level %d, want trace", Level.Load())
	}
	SetLoggers(42)
	if Level.Load() != Info {
		t.Fatalf("out of range level gave %d, want info", Level.Load())
	}
	Main.Log.D.Ln("main logger prints")
	if !Main.Check.E(errors.New("main check")) {
		t.Fatal("main check ignored an error")
	}
}

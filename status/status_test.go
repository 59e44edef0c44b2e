package status

import (
	"bytes"
	"slices"
	"testing"
)

type recordingSyslog struct {
	lines []string
}

func (r *recordingSyslog) Debug(m string) error   { r.lines = append(r.lines, "d:"+m); return nil }
func (r *recordingSyslog) Info(m string) error    { r.lines = append(r.lines, "i:"+m); return nil }
func (r *recordingSyslog) Warning(m string) error { r.lines = append(r.lines, "w:"+m); return nil }
func (r *recordingSyslog) Err(m string) error     { r.lines = append(r.lines, "e:"+m); return nil }
func (r *recordingSyslog) Crit(m string) error    { r.lines = append(r.lines, "c:"+m); return nil }

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(LogLevelWarning, &buf)
	l.Info("hidden")
	l.Warningf("run %d", 7)
	l.Error("bad")
	if s := buf.String(); s != "WARNING: run 7\nERROR: bad\n" {
		t.Fatalf("Filtered output: %q", s)
	}

	l.LowerLevelTo(LogLevelInfo)
	l.LowerLevelTo(LogLevelError) // Never raises
	if l.Level() != LogLevelInfo {
		t.Fatalf("Level %v", l.Level())
	}
	buf.Reset()
	l.Info("shown")
	if s := buf.String(); s != "INFO: shown\n" {
		t.Fatalf("Lowered output: %q", s)
	}
}

func TestUnderlying(t *testing.T) {
	r := new(recordingSyslog)
	l := New(LogLevelDebug, nil)
	l.SetUnderlying(r)
	l.Debug("a")
	l.Infof("%s", "b")
	l.Warning("c")
	l.Error("d")
	l.Critical("e")
	if !slices.Equal(r.lines, []string{"d:a", "i:b", "w:c", "e:d", "c:e"}) {
		t.Fatalf("Underlying got %v", r.lines)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, c := range []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{" INFO", LogLevelInfo},
		{"warn", LogLevelWarning},
		{"Warning", LogLevelWarning},
		{"error", LogLevelError},
		{"critical", LogLevelCritical},
	} {
		l, err := ParseLogLevel(c.in)
		if err != nil {
			t.Fatal(err)
		}
		if l != c.want {
			t.Fatalf("%q: expected %v, got %v", c.in, c.want, l)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Fatal("Expected error, got none")
	}
	if s := LogLevel(9).String(); s != "LogLevel(9)" {
		t.Fatalf("Unknown level prints as %q", s)
	}
}

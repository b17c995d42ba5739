package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"TRACE":   LevelDebug,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelsAndPrefix(t *testing.T) {
	var buf syncBuffer
	SetOutput(&buf)
	SetPrefix("api")
	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)
	defer SetPrefix("")

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	Errorf("boom %s", "x")
	Flush()

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("info line must be filtered at warn level: %q", got)
	}
	if !strings.Contains(got, "[api] WARN shown 2") {
		t.Errorf("missing warn line: %q", got)
	}
	if !strings.Contains(got, "[api] ERROR boom x") {
		t.Errorf("missing error line: %q", got)
	}
}

func TestLogDurationOnlySlowAtInfo(t *testing.T) {
	var buf syncBuffer
	SetOutput(&buf)
	SetLevel(LevelInfo)

	LogDuration("fast.op", time.Now())
	LogDuration("slow.op", time.Now().Add(-200*time.Millisecond))
	Flush()

	got := buf.String()
	if strings.Contains(got, "fast.op") {
		t.Errorf("fast call must not be logged at info: %q", got)
	}
	if !strings.Contains(got, "fn=slow.op") {
		t.Errorf("slow call must be logged: %q", got)
	}
}

package logging

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonwraymond/dbmcp"
)

func TestLogger_Interface(t *testing.T) {
	var _ Logger = Nop()
	var _ Logger = (*Zap)(nil)
	var _ Logger = (*Recorder)(nil)
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) = nil, want Nop")
	}
	r := &Recorder{}
	if OrNop(r) != Logger(r) {
		t.Error("OrNop should return a non-nil logger unchanged")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("loud"); !errors.Is(err, dbmcp.ErrConfiguration) {
		t.Errorf("ParseLevel(loud) error = %v, want ErrConfiguration", err)
	}
}

func TestZap_Logf(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	z := NewZap(zap.New(core)).With("adapter", "sqlite:default")

	z.Logf("connected in %dms", 12)
	z.Warnf("slow probe")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Message != "connected in 12ms" || entries[0].Level != zapcore.InfoLevel {
		t.Errorf("entry[0] = %q at %v", entries[0].Message, entries[0].Level)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("entry[1] level = %v, want warn", entries[1].Level)
	}
	if got := entries[0].ContextMap()["adapter"]; got != "sqlite:default" {
		t.Errorf("adapter field = %v, want sqlite:default", got)
	}
}

func TestNewZap_NilLogger(t *testing.T) {
	NewZap(nil).Logf("discarded")
}

func TestNewProduction_BadLevel(t *testing.T) {
	if _, err := NewProduction("verbose"); err == nil {
		t.Error("NewProduction(verbose) error = nil, want error")
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	r := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Logf("line %d", i)
		}(i)
	}
	wg.Wait()

	if got := len(r.Lines()); got != 20 {
		t.Errorf("len(Lines()) = %d, want 20", got)
	}
	if !r.Contains("line 7") {
		t.Error("Contains(line 7) = false")
	}
}

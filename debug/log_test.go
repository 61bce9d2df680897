package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogDisabled(t *testing.T) {
	Disable()
	Log("seq", "should not panic %d", 1)
}

func TestLogWriter(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(&buf)
	defer Disable()

	Log("seq", "start bpm=%d", 120)
	if !strings.Contains(buf.String(), "seq") || !strings.Contains(buf.String(), "start bpm=120") {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}

func TestLogEvery(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(&buf)
	defer Disable()

	for i := 0; i < 10; i++ {
		LogEvery(5, "step", "tick-every-test")
	}
	if got := strings.Count(buf.String(), "tick-every-test"); got != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", got, buf.String())
	}
}

func TestEnableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	Log("cfg", "loaded")
	Disable()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Debug logging started") || !strings.Contains(string(data), "loaded") {
		t.Fatalf("unexpected file contents: %q", data)
	}
}

package bootlog

import (
	"bytes"
	"testing"

	"nocciolo/kernel/kfmt"
)

func withCapturedOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	defer kfmt.SetOutputSink(nil)
	fn()
	return buf.String()
}

func TestLevelString(t *testing.T) {
	specs := []struct {
		level Level
		want  string
	}{
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(0xff), "UNKNOWN"},
	}

	for _, spec := range specs {
		if got := spec.level.String(); got != spec.want {
			t.Errorf("Level(%d).String(): expected %q; got %q", spec.level, spec.want, got)
		}
	}
}

func TestLoggerInfoWarnError(t *testing.T) {
	log := New("pci")

	specs := []struct {
		name string
		call func()
		want string
	}{
		{"Info", func() { log.Info("vendor=%x", 0x8086) }, "[pci] [INFO] vendor=8086\n"},
		{"Warn", func() { log.Warn("missing %s", "BAR0") }, "[pci] [WARN] missing BAR0\n"},
		{"Error", func() { log.Error("init failed: %d", 5) }, "[pci] [ERROR] init failed: 5\n"},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			got := withCapturedOutput(t, spec.call)
			if got != spec.want {
				t.Errorf("expected %q; got %q", spec.want, got)
			}
		})
	}
}

func TestNewTagsEveryLineWithTarget(t *testing.T) {
	log := New("kmain")
	got := withCapturedOutput(t, func() { log.Info("starting nocciolo") })
	want := "[kmain] [INFO] starting nocciolo\n"
	if got != want {
		t.Errorf("expected %q; got %q", want, got)
	}
}

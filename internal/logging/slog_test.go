package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewRespectsDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info message not logged")
	}

	buf.Reset()
	New(&buf, true).Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("debug message not logged in debug mode")
	}
}

func TestAttributeHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)

	logger.Info("call finished",
		Operation("create_task"),
		Tool("create_task"),
		Status(StatusSuccess),
		Duration(250*time.Millisecond),
	)

	out := buf.String()
	for _, want := range []string{
		KeyOperation + "=create_task",
		KeyTool + "=create_task",
		KeyStatus + "=" + StatusSuccess,
		KeyDuration + "=250ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestErr(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)

	logger.Info("failed", Err(errors.New("boom")))
	if !strings.Contains(buf.String(), KeyError+"=boom") {
		t.Errorf("error attribute missing: %s", buf.String())
	}

	// A nil error must produce an empty group that slog omits entirely.
	if attr := Err(nil); !attr.Equal(slog.Group("")) {
		t.Errorf("Err(nil) = %v, want empty group", attr)
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)

	WithService(WithTool(WithOperation(logger, "op"), "tool"), "svc").Info("scoped")

	out := buf.String()
	for _, want := range []string{"operation=op", "tool=tool", "service=svc"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "<empty>"},
		{"abc", "[token:3 chars]"},
		{"a-very-long-access-token", "[token:24 chars]"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.input); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if strings.Contains(SanitizeToken("super-secret-token"), "secret") {
		t.Error("sanitized token leaks token content")
	}
}

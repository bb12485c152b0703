package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestSlogBridge_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Service: "weather-dashboard", Component: "test"}, &buf)
	l := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "abc123")
	ctx = WithSource(ctx, "nws_forecast")
	l.InfoContext(ctx, "cache miss", "key", "nws_forecast:8:abc", "attempt", 2, "stale", true)

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"msg":        "cache miss",
		"level":      "info",
		"request_id": "abc123",
		"source":     "nws_forecast",
		"service":    "weather-dashboard",
		"key":        "nws_forecast:8:abc",
		"stale":      true,
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("field %s=%v want %v (line=%s)", k, rec[k], v, buf.String())
		}
	}
	if rec["attempt"] != float64(2) {
		t.Fatalf("attempt=%v want 2", rec["attempt"])
	}
}

func TestSlogBridge_WithAttrsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	l := NewSlog(&zl).With("component", "search")

	l.Info("dropped below level")
	l.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped below level") {
		t.Fatalf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"component":"search"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("missing attrs in %s", out)
	}
	Build(Config{Level: "info"}, &buf)
}

func TestNewID_IsHex16(t *testing.T) {
	id := NewID()
	if len(id) != 16 {
		t.Fatalf("len=%d want 16", len(id))
	}
	if WithRequestID(context.Background(), "") == nil {
		t.Fatal("nil ctx")
	}
	if got := RequestID(WithRequestID(context.Background(), "")); len(got) != 16 {
		t.Fatalf("generated request id=%q", got)
	}
}

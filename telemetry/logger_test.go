package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("WARN", "text", WithOutput(&buf))

	logger.Debug("debug message", nil)
	logger.Info("info message", nil)
	logger.Warn("warn message", nil)

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Fatalf("levels below WARN leaked through: %q", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Fatalf("WARN should be logged: %q", out)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("INFO", "json", WithOutput(&buf), WithServiceName("storefront-test"))

	logger.Info("cache refresh", map[string]interface{}{
		"key":   "get_products?cat=|q=|min=|max=|sort=name",
		"count": 20,
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["level"] != "INFO" || entry["message"] != "cache refresh" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["service"] != "storefront-test" {
		t.Fatalf("service name missing: %v", entry)
	}
	if entry["count"] != float64(20) {
		t.Fatalf("fields not carried: %v", entry)
	}
}

func TestLogger_TextFormatCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("INFO", "text", WithOutput(&buf))

	logger.Info("request", map[string]interface{}{"status": 200})

	if !strings.Contains(buf.String(), "status=200") {
		t.Fatalf("field missing from text output: %q", buf.String())
	}
}

func TestLogger_ErrorRateLimited(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("ERROR", "text", WithOutput(&buf))

	for i := 0; i < 10; i++ {
		logger.Error("backend down", nil)
	}

	if got := strings.Count(buf.String(), "backend down"); got != 1 {
		t.Fatalf("expected 1 error line within the rate window, got %d", got)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("ERROR", "text", WithOutput(&buf))

	logger.Info("hidden", nil)
	logger.SetLevel("DEBUG")
	logger.Info("visible", nil)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("INFO should be filtered at ERROR level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("INFO should pass after SetLevel(DEBUG): %q", out)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(50 * time.Millisecond)

	if !rl.Allow() {
		t.Fatal("first action should be allowed")
	}
	if rl.Allow() {
		t.Fatal("second immediate action should be limited")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow() {
		t.Fatal("action after the interval should be allowed")
	}
}

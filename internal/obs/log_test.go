package obs

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestLogEmitsLeveledJSON(t *testing.T) {
	logger := Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	Log("warn", "slow_query", map[string]any{"table": "sessions", "level": "should-lose"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if entry["level"] != "warn" || entry["msg"] != "slow_query" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["table"] != "sessions" {
		t.Fatalf("expected caller field to survive, got %v", entry)
	}
	if entry["ts"] == nil {
		t.Fatal("expected a timestamp")
	}
}

package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestValidLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"debug", true},
		{" WARNING ", true},
		{"error", true},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := ValidLevel(tt.in); got != tt.want {
			t.Fatalf("ValidLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSONFieldsAndLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewJSON(&buf, "info").With(String("comp", "test"))

	log.Debug("hidden")
	log.Warn("shown", Int("n", 2), Err(errors.New("boom")), Err(nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["comp"] != "test" || entry["n"] != float64(2) || entry["error"] != "boom" {
		t.Fatalf("entry = %v", entry)
	}
	if entry["caller"] == nil {
		t.Fatalf("caller missing: %v", entry)
	}
}

func TestZeroAndNop(t *testing.T) {
	t.Parallel()
	var zero Logger
	if !zero.IsZero() || Nop().IsZero() {
		t.Fatal("IsZero mismatch")
	}
	zero.Info("discarded")
	Nop().With(String("k", "v")).Error("discarded")
}

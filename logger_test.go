package niforms

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerStacks(t *testing.T) {
	log := NewLogger(nil)

	if log.CurrentStage() != "" || log.CurrentHandler() != "" {
		t.Fatal("new logger should have empty stacks")
	}

	log.PushStage("process").PushStage("preprocess")
	log.PushHandler("honeypot")

	if got := log.CurrentStage(); got != "preprocess" {
		t.Errorf("CurrentStage() = %q, want preprocess", got)
	}
	if got := log.CountStage(); got != 2 {
		t.Errorf("CountStage() = %d, want 2", got)
	}
	if got := log.PopStage(); got != "preprocess" {
		t.Errorf("PopStage() = %q, want preprocess", got)
	}
	if got := log.CurrentStage(); got != "process" {
		t.Errorf("CurrentStage() after pop = %q, want process", got)
	}
	if got := log.PopHandler(); got != "honeypot" {
		t.Errorf("PopHandler() = %q, want honeypot", got)
	}
	if got := log.PopHandler(); got != "" {
		t.Errorf("PopHandler() on empty stack = %q, want empty", got)
	}

	log.PushHandler("a").PushHandler("b").ClearHandler()
	log.ClearStage()
	if log.CountHandler() != 0 || log.CountStage() != 0 {
		t.Error("Clear should empty the stacks")
	}
}

func TestLoggerEntriesAreTagged(t *testing.T) {
	log := NewLogger(nil)
	log.Info("outside", nil)

	log.PushStage("preform").PushHandler("honeypot")
	ctx := map[string]any{"form": "f1"}
	log.Warning("inside", ctx)
	ctx["form"] = "changed"
	log.PopHandler()
	log.Error("after handler", nil)

	want := []LogEntry{
		{Level: LevelInfo, Message: "outside"},
		{Level: LevelWarning, Message: "inside", Context: map[string]any{"form": "f1"}, Stage: "preform", Handler: "honeypot"},
		{Level: LevelError, Message: "after handler", Stage: "preform"},
	}
	if diff := cmp.Diff(want, log.Logs()); diff != "" {
		t.Errorf("Logs() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoggerLevels(t *testing.T) {
	log := NewLogger(nil)
	log.Emergency("m", nil)
	log.Alert("m", nil)
	log.Critical("m", nil)
	log.Error("m", nil)
	log.Warning("m", nil)
	log.Notice("m", nil)
	log.Info("m", nil)
	log.Debug("m", nil)

	want := []Level{LevelEmergency, LevelAlert, LevelCritical, LevelError, LevelWarning, LevelNotice, LevelInfo, LevelDebug}
	var got []Level
	for _, e := range log.Logs() {
		got = append(got, e.Level)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestLoggerFiltered(t *testing.T) {
	log := NewLogger(nil)
	log.PushStage("preprocess").PushHandler("honeypot")
	log.Notice("token missing", nil)
	log.PopHandler()
	log.PushHandler("spam")
	log.Warning("looks like spam", nil)
	log.PopHandler()
	log.PopStage()
	log.PushStage("postprocess")
	log.Warning("late", nil)

	tests := []struct {
		name   string
		filter LogFilter
		want   []string
	}{
		{"no filter", nil, []string{"token missing", "looks like spam", "late"}},
		{"by stage", LogFilter{"stage": {"preprocess"}}, []string{"token missing", "looks like spam"}},
		{"by level", LogFilter{"level": {"warning"}}, []string{"looks like spam", "late"}},
		{"any of", LogFilter{"handler": {"honeypot", "spam"}}, []string{"token missing", "looks like spam"}},
		{"all keys", LogFilter{"level": {"warning"}, "stage": {"preprocess"}}, []string{"looks like spam"}},
		{"unknown key", LogFilter{"color": {"red"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range log.Filtered(tt.filter) {
				got = append(got, e.Message)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filtered() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoggerMirrorsToZap(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLogger(zap.New(core))

	log.PushStage("process").PushHandler("email")
	log.Critical("send failed", map[string]any{"to": "a@example.com"})

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("observed %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.ErrorLevel {
		t.Errorf("zap level = %v, want error", e.Level)
	}
	if e.Message != "send failed" {
		t.Errorf("message = %q", e.Message)
	}
	want := map[string]any{
		"psr_level": "critical",
		"stage":     "process",
		"handler":   "email",
		"to":        "a@example.com",
	}
	if diff := cmp.Diff(want, e.ContextMap()); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestScanHandler(t *testing.T) {
	t.Run("formats tab-delimited records", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		h := &scanHandler{w: &buf, runID: "run-1", level: slog.LevelInfo}

		rec := slog.NewRecord(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), slog.LevelInfo, "scan started", 0)
		rec.AddAttrs(slog.String("input", "/evidence"), slog.Int("count", 3))
		if err := h.Handle(context.Background(), rec); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}

		got := buf.String()
		want := "2026-08-30T10:00:00Z\tINFO\trun-1\tscan started\tinput=/evidence\tcount=3\n"
		if got != want {
			t.Errorf("log line = %q, want %q", got, want)
		}
	})

	t.Run("level threshold", func(t *testing.T) {
		t.Parallel()
		h := &scanHandler{w: &bytes.Buffer{}, runID: "run-1", level: slog.LevelInfo}

		if h.Enabled(context.Background(), slog.LevelDebug) {
			t.Error("Enabled(debug) = true at info threshold")
		}
		if !h.Enabled(context.Background(), slog.LevelWarn) {
			t.Error("Enabled(warn) = false at info threshold")
		}
	})

	t.Run("WithAttrs carries preset attrs on every record", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		base := &scanHandler{w: &buf, runID: "run-1", level: slog.LevelInfo}
		h := base.WithAttrs([]slog.Attr{slog.String("container", "case.ufdr")})

		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "member processed", 0)
		if err := h.Handle(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\tcontainer=case.ufdr") {
			t.Errorf("log line = %q, want preset attr", buf.String())
		}
	})
}

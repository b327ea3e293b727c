package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"paycore.org/internal/obs"
)

type captureSink struct {
	entries []Entry
	err     error
}

func (c *captureSink) Append(ctx context.Context, entry Entry) error {
	if c.err != nil {
		return c.err
	}
	c.entries = append(c.entries, entry)
	return nil
}

func TestRecorderFillsDefaults(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink)

	ctx := WithRequestID(context.Background(), "req-7")
	rec.Record(ctx, Entry{
		Actor:    "usr-1",
		Action:   "payroll.run.create",
		Resource: "pay_run",
	})

	if len(sink.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(sink.entries))
	}
	got := sink.entries[0]
	if got.ID == "" {
		t.Fatal("id not generated")
	}
	if got.Time.IsZero() {
		t.Fatal("timestamp not stamped")
	}
	if got.Result != Success {
		t.Fatalf("default result = %q, want success", got.Result)
	}
	if got.RequestID != "req-7" {
		t.Fatalf("request id not propagated: %q", got.RequestID)
	}
}

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	broken := &captureSink{err: errors.New("disk full")}
	healthy := &captureSink{}
	rec := NewRecorder(broken, healthy)

	// Must not panic or propagate; the healthy sink still receives the entry.
	rec.Record(context.Background(), Entry{
		Actor: "usr-1", Action: "payroll.run.delete", Resource: "pay_run", Result: Denied,
	})

	if len(healthy.entries) != 1 {
		t.Fatalf("healthy sink missed the entry: %d", len(healthy.entries))
	}
	if healthy.entries[0].Result != Denied {
		t.Fatalf("result overwritten: %q", healthy.entries[0].Result)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.Record(context.Background(), Entry{Action: "noop"})
}

func TestLogSinkWritesJSON(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	err := LogSink{}.Append(context.Background(), Entry{
		ID:         "ent-1",
		Time:       time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		Actor:      "usr-1",
		Action:     "payroll.run.status_change",
		Resource:   "pay_run",
		ResourceID: "run-1",
		Details:    map[string]any{"from": "draft", "to": "pending_approval"},
		RequestID:  "req-9",
		Result:     Success,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if line["type"] != "audit" {
		t.Fatalf("unexpected type: %v", line["type"])
	}
	if line["action"] != "payroll.run.status_change" {
		t.Fatalf("unexpected action: %v", line["action"])
	}
	if line["result"] != "success" {
		t.Fatalf("unexpected result: %v", line["result"])
	}
	details, ok := line["details"].(map[string]any)
	if !ok || details["to"] != "pending_approval" {
		t.Fatalf("details missing or incorrect: %v", line["details"])
	}
}

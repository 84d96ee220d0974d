package events

import (
	"context"
	"errors"
	"testing"
)

func TestNoOpPublisher(t *testing.T) {
	pub := &NoOpPublisher{}
	err := pub.PublishDispatched(context.Background(), &DispatchEvent{
		Operation: "browse",
		Outcome:   "ok",
	})
	if err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}
}

func TestCallbackPublisher(t *testing.T) {
	var captured *DispatchEvent

	pub := NewCallbackPublisher(func(_ context.Context, event *DispatchEvent) error {
		captured = event
		return nil
	})

	event := &DispatchEvent{
		RequestID:  "req-1",
		Transport:  "rest",
		Operation:  "browse",
		Variant:    "categories",
		Outcome:    "ok",
		DurationMs: 12,
		Timestamp:  "2025-01-01T00:00:00Z",
	}

	if err := pub.PublishDispatched(context.Background(), event); err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}

	if captured == nil {
		t.Fatal("events:publisher_test - expected callback to be called")
	}
	if captured.Variant != "categories" {
		t.Errorf("events:publisher_test - Variant = %q, want categories", captured.Variant)
	}
	if !captured.OK() {
		t.Error("events:publisher_test - expected OK() = true")
	}
}

func TestMultiPublisher_CallsAllAndJoinsErrors(t *testing.T) {
	calls := 0
	failing := NewCallbackPublisher(func(context.Context, *DispatchEvent) error {
		calls++
		return errors.New("boom")
	})
	counting := NewCallbackPublisher(func(context.Context, *DispatchEvent) error {
		calls++
		return nil
	})

	multi := NewMultiPublisher(failing, nil, counting)
	if multi.Len() != 2 {
		t.Fatalf("events:publisher_test - Len = %d, want 2 (nil skipped)", multi.Len())
	}

	err := multi.PublishDispatched(context.Background(), &DispatchEvent{Operation: "search", Outcome: "UpstreamError"})
	if err == nil {
		t.Fatal("events:publisher_test - expected joined error")
	}
	if calls != 2 {
		t.Errorf("events:publisher_test - calls = %d, want 2", calls)
	}
}

func TestMultiPublisher_Empty(t *testing.T) {
	multi := NewMultiPublisher()
	if err := multi.PublishDispatched(context.Background(), &DispatchEvent{}); err != nil {
		t.Errorf("events:publisher_test - empty multi publisher returned %v", err)
	}
}

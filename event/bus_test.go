package event_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Thijssvd/SommOS-sub001/event"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := event.NewBus()
	ctx := context.Background()

	evt, err := bus.Publish(ctx, "report.ready", []byte(`{"id":"rpt_1"}`))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if evt.Name != "report.ready" {
		t.Errorf("Name = %q, want %q", evt.Name, "report.ready")
	}
	if string(evt.Payload) != `{"id":"rpt_1"}` {
		t.Errorf("Payload = %q", string(evt.Payload))
	}

	// Subscribe should find the event without blocking.
	got, err := bus.Subscribe(ctx, "report.ready", 1*time.Second)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if got == nil {
		t.Fatal("expected event, got nil")
	}
	if got.ID.String() != evt.ID.String() {
		t.Errorf("event ID = %s, want %s", got.ID, evt.ID)
	}
}

func TestBus_SubscribeBlocksUntilPublish(t *testing.T) {
	bus := event.NewBus()
	ctx := context.Background()

	done := make(chan *event.Event, 1)
	go func() {
		evt, _ := bus.Subscribe(ctx, "late", 2*time.Second)
		done <- evt
	}()

	// Give the subscriber time to block, then publish.
	time.Sleep(20 * time.Millisecond)
	if _, err := bus.Publish(ctx, "late", nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case evt := <-done:
		if evt == nil {
			t.Fatal("subscriber woke with nil event")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("subscriber never woke")
	}
}

func TestBus_SubscribeTimeout(t *testing.T) {
	bus := event.NewBus()

	got, err := bus.Subscribe(context.Background(), "nonexistent", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil event on timeout, got %+v", got)
	}
}

func TestBus_Ack(t *testing.T) {
	bus := event.NewBus()
	ctx := context.Background()

	evt, err := bus.Publish(ctx, "ack-test", nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if bus.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", bus.Pending())
	}

	if ackErr := bus.Ack(ctx, evt.ID); ackErr != nil {
		t.Fatalf("Ack: %v", ackErr)
	}
	if bus.Pending() != 0 {
		t.Errorf("Pending after ack = %d, want 0", bus.Pending())
	}

	got, err := bus.Subscribe(ctx, "ack-test", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Subscribe after ack: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after ack, got %+v", got)
	}
}

func TestBus_AckEvictsEvent(t *testing.T) {
	bus := event.NewBus()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		evt, err := bus.Publish(ctx, "burn", nil)
		if err != nil {
			t.Fatalf("Publish: %v", err)
		}
		if ackErr := bus.Ack(ctx, evt.ID); ackErr != nil {
			t.Fatalf("Ack: %v", ackErr)
		}
	}

	if bus.Pending() != 0 {
		t.Errorf("Pending after publish/ack cycles = %d, want 0 (acked events evicted)", bus.Pending())
	}
}

func TestExtension_BridgesTerminalTransitions(t *testing.T) {
	bus := event.NewBus()
	ext := event.NewExtension(bus)
	ctx := context.Background()

	j := &job.Job{
		ID:           id.NewJobID(),
		Type:         "resize-image",
		AttemptCount: 1,
	}
	if err := ext.OnJobCompleted(ctx, j, 10*time.Millisecond); err != nil {
		t.Fatalf("OnJobCompleted: %v", err)
	}

	// Broadcast form.
	evt, err := bus.Subscribe(ctx, event.JobCompleted, 1*time.Second)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if evt == nil {
		t.Fatal("expected broadcast event")
	}
	var body struct {
		JobID   string `json:"job_id"`
		JobType string `json:"job_type"`
	}
	if err := json.Unmarshal(evt.Payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body.JobID != j.ID.String() {
		t.Errorf("job_id = %q, want %q", body.JobID, j.ID)
	}
	if body.JobType != "resize-image" {
		t.Errorf("job_type = %q", body.JobType)
	}

	// Per-job form.
	perJob, err := bus.Subscribe(ctx, event.JobCompleted+":"+j.ID.String(), 1*time.Second)
	if err != nil {
		t.Fatalf("Subscribe per-job: %v", err)
	}
	if perJob == nil {
		t.Fatal("expected per-job event")
	}
}

package audithook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	audithook "github.com/Thijssvd/SommOS-sub001/audit_hook"
	"github.com/Thijssvd/SommOS-sub001/id"
	"github.com/Thijssvd/SommOS-sub001/job"
)

func auditJob() *job.Job {
	return &job.Job{
		ID:           id.NewJobID(),
		Type:         "send-email",
		Priority:     3,
		MaxAttempts:  3,
		AttemptCount: 2,
	}
}

func TestExtension_JobCompleted(t *testing.T) {
	rec := audithook.NewMemoryRecorder()
	e := audithook.New(rec)
	j := auditJob()

	if err := e.OnJobCompleted(context.Background(), j, 125*time.Millisecond); err != nil {
		t.Fatalf("OnJobCompleted: %v", err)
	}

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	evt := events[0]
	if evt.Action != audithook.ActionJobCompleted {
		t.Errorf("action = %q, want %q", evt.Action, audithook.ActionJobCompleted)
	}
	if evt.ResourceID != j.ID.String() {
		t.Errorf("resource_id = %q, want %q", evt.ResourceID, j.ID)
	}
	if evt.Outcome != audithook.OutcomeSuccess {
		t.Errorf("outcome = %q, want success", evt.Outcome)
	}
	if evt.Metadata["elapsed_ms"] != int64(125) {
		t.Errorf("elapsed_ms = %v, want 125", evt.Metadata["elapsed_ms"])
	}
	if evt.Metadata["job_type"] != "send-email" {
		t.Errorf("job_type = %v", evt.Metadata["job_type"])
	}
}

func TestExtension_JobFailedCarriesReason(t *testing.T) {
	rec := audithook.NewMemoryRecorder()
	e := audithook.New(rec)

	boom := errors.New("smtp unreachable")
	_ = e.OnJobFailed(context.Background(), auditJob(), boom)

	events := rec.ByAction(audithook.ActionJobFailed)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Severity != audithook.SeverityCritical {
		t.Errorf("severity = %q, want critical", events[0].Severity)
	}
	if events[0].Reason != "smtp unreachable" {
		t.Errorf("reason = %q", events[0].Reason)
	}
	if events[0].Metadata["error"] != "smtp unreachable" {
		t.Errorf("metadata error = %v", events[0].Metadata["error"])
	}
}

func TestExtension_WorkerExitedSeverity(t *testing.T) {
	rec := audithook.NewMemoryRecorder()
	e := audithook.New(rec)

	_ = e.OnWorkerExited(context.Background(), id.NewWorkerID(), nil)
	_ = e.OnWorkerExited(context.Background(), id.NewWorkerID(), errors.New("panic"))

	events := rec.ByAction(audithook.ActionWorkerExited)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Severity != audithook.SeverityInfo {
		t.Errorf("graceful exit severity = %q, want info", events[0].Severity)
	}
	if events[1].Severity != audithook.SeverityCritical {
		t.Errorf("crash exit severity = %q, want critical", events[1].Severity)
	}
}

func TestExtension_WithActionsFilters(t *testing.T) {
	rec := audithook.NewMemoryRecorder()
	e := audithook.New(rec, audithook.WithActions(audithook.ActionJobFailed))

	_ = e.OnJobQueued(context.Background(), auditJob())
	_ = e.OnJobCompleted(context.Background(), auditJob(), time.Millisecond)
	_ = e.OnJobFailed(context.Background(), auditJob(), errors.New("x"))

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1 (only job.failed enabled)", len(events))
	}
	if events[0].Action != audithook.ActionJobFailed {
		t.Errorf("action = %q, want job.failed", events[0].Action)
	}
}

func TestExtension_RecorderErrorSwallowed(t *testing.T) {
	failing := audithook.RecorderFunc(func(_ context.Context, _ *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	e := audithook.New(failing)

	// Hook errors must never reach the engine loop.
	if err := e.OnJobQueued(context.Background(), auditJob()); err != nil {
		t.Errorf("OnJobQueued with failing recorder = %v, want nil", err)
	}
}

func TestAllActions(t *testing.T) {
	if len(audithook.AllActions()) != 9 {
		t.Errorf("AllActions = %d entries, want 9", len(audithook.AllActions()))
	}
}

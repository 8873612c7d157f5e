package queue_test

import (
	"testing"

	"github.com/Thijssvd/SommOS-sub001/queue"
)

func TestLimiter_ConcurrencyCap(t *testing.T) {
	l := queue.NewLimiter(queue.Config{Type: "report", MaxConcurrency: 2})

	if !l.Acquire("report") {
		t.Fatal("Acquire 1 = false, want true")
	}
	if !l.Acquire("report") {
		t.Fatal("Acquire 2 = false, want true")
	}
	if l.Acquire("report") {
		t.Fatal("Acquire 3 = true, want false (cap is 2)")
	}

	l.Release("report")
	if !l.Acquire("report") {
		t.Error("Acquire after Release = false, want true")
	}
	if got := l.ActiveCount("report"); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
}

func TestLimiter_ConcurrencyBlockDoesNotBurnRateTokens(t *testing.T) {
	// One slot, two tokens. Rejections while the slot is busy must not
	// consume the token the freed slot needs.
	l := queue.NewLimiter(queue.Config{
		Type:           "export",
		MaxConcurrency: 1,
		RateLimit:      0.001,
		RateBurst:      2,
	})

	if !l.Acquire("export") {
		t.Fatal("first Acquire = false, want true")
	}
	for i := 0; i < 20; i++ {
		if l.Acquire("export") {
			t.Fatal("Acquire while slot busy = true, want false")
		}
	}

	l.Release("export")
	if !l.Acquire("export") {
		t.Error("Acquire after Release = false; retries while blocked consumed the rate token")
	}
}

func TestLimiter_UnconfiguredTypeIsUnlimited(t *testing.T) {
	l := queue.NewLimiter(queue.Config{Type: "report", MaxConcurrency: 1})

	for i := range 50 {
		if !l.Acquire("email") {
			t.Fatalf("Acquire %d on unconfigured type = false, want true", i)
		}
	}
}

func TestLimiter_RateLimitExhaustsBurst(t *testing.T) {
	l := queue.NewLimiter(queue.Config{Type: "sync", RateLimit: 1, RateBurst: 2})

	if !l.Acquire("sync") {
		t.Fatal("Acquire 1 = false, want true")
	}
	if !l.Acquire("sync") {
		t.Fatal("Acquire 2 = false, want true")
	}
	// Burst of 2 spent; at 1/s the third token is not there yet.
	if l.Acquire("sync") {
		t.Fatal("Acquire 3 = true, want false (burst exhausted)")
	}
}

func TestLimiter_SetConfigReplacesLimits(t *testing.T) {
	l := queue.NewLimiter(queue.Config{Type: "report", MaxConcurrency: 1})

	if !l.Acquire("report") {
		t.Fatal("Acquire = false, want true")
	}
	if l.Acquire("report") {
		t.Fatal("Acquire over cap = true, want false")
	}

	l.SetConfig(queue.Config{Type: "report", MaxConcurrency: 3})
	if !l.Acquire("report") {
		t.Error("Acquire after raising cap = false, want true")
	}
}

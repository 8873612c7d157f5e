package backoff_test

import (
	"testing"
	"time"

	"github.com/Thijssvd/SommOS-sub001/backoff"
)

func TestConstant(t *testing.T) {
	s := backoff.NewConstant(5 * time.Second)
	for _, attempt := range []int{1, 2, 10} {
		if got := s.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want 5s", attempt, got)
		}
	}
}

func TestLinear_GrowsLinearly(t *testing.T) {
	l := backoff.NewLinear(time.Second, time.Minute)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
		{5, 5 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := l.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestLinear_CapsAtMax(t *testing.T) {
	l := backoff.NewLinear(time.Second, 5*time.Second)

	if got := l.Delay(10); got != 5*time.Second {
		t.Errorf("Delay(10) = %v, want %v (capped at Max)", got, 5*time.Second)
	}
	if got := l.Delay(100); got != 5*time.Second {
		t.Errorf("Delay(100) = %v, want %v (capped at Max)", got, 5*time.Second)
	}
}

func TestExponential_Doubles(t *testing.T) {
	s := backoff.NewExponential(time.Second, time.Hour)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
	}
	for _, tt := range tests {
		if got := s.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_Cap(t *testing.T) {
	s := backoff.NewExponential(time.Second, 10*time.Second)

	if got := s.Delay(4); got != 8*time.Second {
		t.Errorf("Delay(4) = %v, want 8s", got)
	}
	if got := s.Delay(5); got != 10*time.Second {
		t.Errorf("Delay(5) = %v, want 10s (capped)", got)
	}
	if got := s.Delay(60); got != 10*time.Second {
		t.Errorf("Delay(60) = %v, want 10s (capped, no overflow)", got)
	}
}

func TestExponential_ZeroAndNegativeAttempt(t *testing.T) {
	s := backoff.NewExponential(time.Second, time.Hour)
	if got := s.Delay(0); got != time.Second {
		t.Errorf("Delay(0) = %v, want 1s", got)
	}
	if got := s.Delay(-3); got != time.Second {
		t.Errorf("Delay(-3) = %v, want 1s", got)
	}
}

func TestExponentialWithJitter_Bounds(t *testing.T) {
	s := backoff.NewExponentialWithJitter(time.Second, time.Hour)

	for attempt := 1; attempt <= 6; attempt++ {
		full := time.Duration(1<<(attempt-1)) * time.Second
		for range 100 {
			got := s.Delay(attempt)
			if got < 0 || got > full {
				t.Fatalf("Delay(%d) = %v, want in [0, %v]", attempt, got, full)
			}
		}
	}
}

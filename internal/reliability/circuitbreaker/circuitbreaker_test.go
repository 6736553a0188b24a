package circuitbreaker

import (
	"testing"
	"time"
)

func TestTripsOpenAfterThreshold(t *testing.T) {
	cb := New(2, 1, time.Minute)
	if !cb.Allow() {
		t.Fatalf("closed breaker must allow")
	}
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Fatalf("one failure should not trip")
	}
	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after threshold")
	}
	if cb.Allow() {
		t.Fatalf("open breaker must reject before timeout")
	}
}

func TestHalfOpenAfterTimeout(t *testing.T) {
	cb := New(1, 1, 10*time.Millisecond)
	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open")
	}
	time.Sleep(20 * time.Millisecond)
	if !cb.Allow() {
		t.Fatalf("expected probe allowed after timeout")
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("expected half-open, got %v", cb.GetState())
	}
	cb.RecordSuccess()
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after successful probe")
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(1, 1, 10*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	cb.Allow()
	cb.RecordFailure()
	if cb.GetState() != StateOpen {
		t.Fatalf("expected reopen on half-open failure")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(2, 1, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	if cb.GetState() != StateClosed {
		t.Fatalf("interleaved success should reset the failure count")
	}
}

func TestStateChangeCallback(t *testing.T) {
	cb := New(1, 1, time.Minute)
	var from, to State
	cb.OnStateChange(func(f, tt State) { from, to = f, tt })
	cb.RecordFailure()
	if from != StateClosed || to != StateOpen {
		t.Fatalf("expected closed->open callback, got %v->%v", from, to)
	}
}

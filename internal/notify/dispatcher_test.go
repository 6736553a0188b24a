package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeSink struct {
	mu    sync.Mutex
	calls int
	fail  int // fail this many calls before succeeding
}

func (f *fakeSink) NotifyResetCode(ctx context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fail {
		return errors.New("sink down")
	}
	return nil
}

func TestDispatchDeliversThroughSink(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, nil)
	if err := d.NotifyResetCode(context.Background(), "a@b.co", "1234"); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if sink.calls != 1 {
		t.Fatalf("expected one sink call, got %d", sink.calls)
	}
}

func TestDispatchRetriesTransientFailure(t *testing.T) {
	sink := &fakeSink{fail: 2}
	d := NewDispatcher(sink, nil)
	d.retry.InitialBackoff = 0
	if err := d.NotifyResetCode(context.Background(), "a@b.co", "1234"); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if sink.calls != 3 {
		t.Fatalf("expected 3 sink calls, got %d", sink.calls)
	}
}

func TestDispatchReportsExhaustion(t *testing.T) {
	sink := &fakeSink{fail: 100}
	d := NewDispatcher(sink, nil)
	d.retry.InitialBackoff = 0
	if err := d.NotifyResetCode(context.Background(), "a@b.co", "1234"); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
}

func TestBreakerSkipsWhenOpen(t *testing.T) {
	sink := &fakeSink{fail: 1000}
	d := NewDispatcher(sink, nil)
	d.retry.InitialBackoff = 0
	// Five failed dispatches trip the breaker.
	for i := 0; i < 5; i++ {
		_ = d.NotifyResetCode(context.Background(), "a@b.co", "1234")
	}
	before := sink.calls
	if err := d.NotifyResetCode(context.Background(), "a@b.co", "1234"); err == nil {
		t.Fatalf("expected open breaker to fail fast")
	}
	if sink.calls != before {
		t.Fatalf("open breaker must not touch the sink")
	}
}

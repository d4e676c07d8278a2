package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegister_Validation(t *testing.T) {
	s := New()
	if err := s.Register("zero", func(context.Context) error { return nil }, 0); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if err := s.Register("nil", nil, time.Second); err == nil {
		t.Fatalf("expected error for nil func")
	}
}

func TestRun_TicksAndStops(t *testing.T) {
	s := New()
	var ok, failing, panicking atomic.Int32
	_ = s.Register("ok", func(context.Context) error { ok.Add(1); return nil }, 5*time.Millisecond)
	_ = s.Register("fail", func(context.Context) error { failing.Add(1); return errors.New("x") }, 5*time.Millisecond)
	_ = s.Register("panic", func(context.Context) error { panicking.Add(1); panic("boom") }, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if ok.Load() < 2 || failing.Load() < 2 || panicking.Load() < 2 {
		t.Fatalf("tasks must keep running after errors and panics: ok=%d fail=%d panic=%d",
			ok.Load(), failing.Load(), panicking.Load())
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-relay-backend/internal/queue"
	"github.com/tbourn/go-relay-backend/internal/repo"
	"github.com/tbourn/go-relay-backend/internal/transport"
)

type panicTransport struct{}

func (panicTransport) Send(context.Context, int64, json.RawMessage) (int64, error) {
	panic("transport exploded")
}

func (panicTransport) Replay(context.Context, int64, int64, transport.Event) error { return nil }

func TestOutcome_String(t *testing.T) {
	cases := map[Outcome]string{
		OutcomeSent: "sent", OutcomeRetrying: "retrying",
		OutcomeDropped: "dropped", OutcomeCancelled: "cancelled",
	}
	for o, want := range cases {
		if o.String() != want {
			t.Fatalf("%d: got %q want %q", int(o), o.String(), want)
		}
	}
	if Outcome(42).String() == "" {
		t.Fatalf("unknown outcome must still render")
	}
}

func TestProcess_SentRecordsCopy(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	lid := e.reg.Allocate(1)
	before := testutil.ToFloat64(deliveries.WithLabelValues("sent"))

	out := e.disp.Process(ctx, queue.Job{LogicalID: lid, Recipient: 2, EnqueuedAt: time.Now()})
	if out != OutcomeSent {
		t.Fatalf("expected sent, got %v", out)
	}
	wid, ok := e.reg.WireFor(2, lid)
	if !ok {
		t.Fatalf("registry copy missing")
	}
	got, err := repo.ResolveByRecipientAndWire(ctx, e.db, 2, wid, e.bot)
	if err != nil || got != lid {
		t.Fatalf("durable mapping missing: got %d err=%v", got, err)
	}
	if ok, _ := e.reach.IsReachable(ctx, 2); !ok {
		t.Fatalf("delivered recipient must be reachable")
	}
	if after := testutil.ToFloat64(deliveries.WithLabelValues("sent")); after != before+1 {
		t.Fatalf("sent counter: before=%v after=%v", before, after)
	}
}

func TestProcess_CancelledWhenExpired(t *testing.T) {
	e := newEngine(t)
	out := e.disp.Process(context.Background(), queue.Job{LogicalID: 99, Recipient: 2, EnqueuedAt: time.Now()})
	if out != OutcomeCancelled {
		t.Fatalf("expected cancelled, got %v", out)
	}
	if len(e.tp.Deliveries()) != 0 {
		t.Fatalf("cancelled job must not be sent")
	}
}

func TestProcess_TransientRetriesWithinWindow(t *testing.T) {
	e := newEngine(t)
	lid := e.reg.Allocate(1)
	e.tp.FailSend(2, errors.New("timeout"))

	job := queue.Job{LogicalID: lid, Recipient: 2, EnqueuedAt: time.Now(), Tier: queue.TierRelay}
	if out := e.disp.Process(context.Background(), job); out != OutcomeRetrying {
		t.Fatalf("expected retrying, got %v", out)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	retried, ok := e.q.Pop(ctx)
	if !ok {
		t.Fatalf("job was not re-queued")
	}
	if retried.Attempts != 1 || !retried.EnqueuedAt.Equal(job.EnqueuedAt) {
		t.Fatalf("unexpected retried job %+v", retried)
	}
	if out := e.disp.Process(context.Background(), retried); out != OutcomeSent {
		t.Fatalf("expected sent on retry, got %v", out)
	}
}

func TestProcess_DroppedAfterWindow(t *testing.T) {
	e := newEngine(t)
	lid := e.reg.Allocate(1)
	e.tp.FailSend(2, errors.New("timeout"))

	job := queue.Job{LogicalID: lid, Recipient: 2, EnqueuedAt: time.Now().Add(-2 * time.Minute)}
	if out := e.disp.Process(context.Background(), job); out != OutcomeDropped {
		t.Fatalf("expected dropped, got %v", out)
	}
	time.Sleep(5 * time.Millisecond)
	if e.q.Len() != 0 {
		t.Fatalf("dropped job must not be re-queued")
	}
}

func TestProcess_RequeuedJobPastWindowNotResent(t *testing.T) {
	e := newEngine(t)
	lid := e.reg.Allocate(1)

	t0 := time.Now()
	now := t0
	e.disp.Now = func() time.Time { return now }
	e.tp.FailSend(2, errors.New("timeout"))

	job := queue.Job{LogicalID: lid, Recipient: 2, EnqueuedAt: t0, Tier: queue.TierRelay}
	if out := e.disp.Process(context.Background(), job); out != OutcomeRetrying {
		t.Fatalf("expected retrying, got %v", out)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	retried, ok := e.q.Pop(ctx)
	if !ok {
		t.Fatalf("job was not re-queued")
	}

	// the retry is popped only after the window has closed
	now = t0.Add(e.disp.RetryWindow + time.Second)
	if out := e.disp.Process(context.Background(), retried); out != OutcomeDropped {
		t.Fatalf("expected dropped, got %v", out)
	}
	if n := len(e.tp.Deliveries()); n != 0 {
		t.Fatalf("late retry must not be sent, got %d deliveries", n)
	}
	if _, ok := e.reg.WireFor(2, lid); ok {
		t.Fatalf("late retry must not record a copy")
	}
	time.Sleep(5 * time.Millisecond)
	if e.q.Len() != 0 {
		t.Fatalf("dropped job must not be re-queued")
	}
}

func TestProcess_NoRetryWhenBackoffCrossesWindow(t *testing.T) {
	e := newEngine(t)
	lid := e.reg.Allocate(1)
	e.disp.RetryBackoff = 10 * time.Second
	e.tp.FailSend(2, errors.New("timeout"))

	job := queue.Job{LogicalID: lid, Recipient: 2, EnqueuedAt: time.Now().Add(-55 * time.Second)}
	if out := e.disp.Process(context.Background(), job); out != OutcomeDropped {
		t.Fatalf("expected dropped, got %v", out)
	}
	if e.q.Len() != 0 {
		t.Fatalf("job must not be re-queued past the window")
	}
}

func TestProcess_PanicIsRecovered(t *testing.T) {
	e := newEngine(t)
	e.disp.Transport = panicTransport{}
	lid := e.reg.Allocate(1)
	if out := e.disp.Process(context.Background(), queue.Job{LogicalID: lid, Recipient: 2, EnqueuedAt: time.Now()}); out != OutcomeDropped {
		t.Fatalf("expected dropped after panic, got %v", out)
	}
}

func TestRun_DeliversAndStops(t *testing.T) {
	e := newEngine(t)
	e.disp.Workers = 3
	e.disp.Limiter = rate.NewLimiter(rate.Inf, 1)
	lid := e.reg.Allocate(1)
	for rid := int64(10); rid < 20; rid++ {
		e.disp.Enqueue(lid, payload("x"), rid)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.disp.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(e.tp.Deliveries()) < 10 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
	if n := len(e.tp.Deliveries()); n != 10 {
		t.Fatalf("expected 10 deliveries, got %d", n)
	}
	if len(e.reg.Copies(lid)) != 10 {
		t.Fatalf("expected 10 registry copies, got %d", len(e.reg.Copies(lid)))
	}
}

func TestEnqueueTier_SystemFirst(t *testing.T) {
	e := newEngine(t)
	e.disp.Enqueue(1, nil, 5)
	e.disp.EnqueueTier(queue.TierSystem, 2, nil, 6)
	job, _ := e.q.Pop(context.Background())
	if job.LogicalID != 2 {
		t.Fatalf("system tier must be dispatched first, got %+v", job)
	}
}

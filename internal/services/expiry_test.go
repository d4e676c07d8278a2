package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-relay-backend/internal/repo"
)

// Expiring a logical id cancels its queued jobs and drops the in-process
// copies, but rows already written to the durable store stay queryable.
func TestSweep_CancelsQueuedJobsKeepsDurableRows(t *testing.T) {
	e := newEngine(t)
	e.join(t, 100, 200, 300)
	ctx := context.Background()

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e.reg.Now = func() time.Time { return t0 }

	if _, err := e.relay.Relay(ctx, 100, 1, payload("x")); err != nil {
		t.Fatal(err)
	}
	// deliver 200 only; 300 stays queued
	job, _ := e.q.Pop(ctx)
	if job.Recipient != 200 {
		t.Fatalf("expected 200 first, got %d", job.Recipient)
	}
	if out := e.disp.Process(ctx, job); out != OutcomeSent {
		t.Fatalf("expected sent, got %v", out)
	}
	w200, _ := e.reg.WireFor(200, 1)

	before := testutil.ToFloat64(cancelledJobs)
	e.reg.Now = func() time.Time { return t0.Add(49 * time.Hour) }
	res := e.expiry.Sweep(ctx)
	if res.Expired != 1 || res.Cancelled != 1 {
		t.Fatalf("unexpected sweep %+v", res)
	}
	if e.q.Len() != 0 {
		t.Fatalf("queued job for 300 must be cancelled")
	}
	if got := testutil.ToFloat64(cancelledJobs); got != before+1 {
		t.Fatalf("cancelled counter: before=%v after=%v", before, got)
	}
	if len(e.reg.Copies(1)) != 0 {
		t.Fatalf("in-process copies must be dropped")
	}

	rows, err := repo.ResolveRecipientsByLogicalID(ctx, e.db, 1, e.bot)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range rows {
		if r.RecipientID == 200 && r.WireID == w200 {
			found = true
		}
		if r.RecipientID == 300 {
			t.Fatalf("300 was never delivered, got row %+v", r)
		}
	}
	if !found {
		t.Fatalf("durable row for 200 must remain, got %+v", rows)
	}
}

func TestSweep_NothingToExpire(t *testing.T) {
	e := newEngine(t)
	e.reg.Allocate(1)
	if res := e.expiry.Sweep(context.Background()); res.Expired != 0 || res.Cancelled != 0 {
		t.Fatalf("unexpected sweep %+v", res)
	}
	if err := e.expiry.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSweep_LateRetryIsCancelled(t *testing.T) {
	e := newEngine(t)
	lid := e.reg.Allocate(1)
	e.reg.ExpireOlderThan(time.Now().Add(72 * time.Hour))
	e.disp.Enqueue(lid, nil, 2)
	if out := e.drain(t); len(out) != 1 || out[0] != OutcomeCancelled {
		t.Fatalf("expected cancelled, got %v", out)
	}
}

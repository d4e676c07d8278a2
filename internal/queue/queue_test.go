package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPop_TierOrderThenFIFO(t *testing.T) {
	q := New()
	q.Push(TierRelay, Job{LogicalID: 1, Recipient: 1})
	q.Push(TierRelay, Job{LogicalID: 1, Recipient: 2})
	q.Push(TierSystem, Job{LogicalID: 2, Recipient: 9})

	ctx := context.Background()
	want := []struct {
		lid, rid int64
		tier     Tier
	}{{2, 9, TierSystem}, {1, 1, TierRelay}, {1, 2, TierRelay}}
	for _, w := range want {
		j, ok := q.Pop(ctx)
		if !ok || j.LogicalID != w.lid || j.Recipient != w.rid || j.Tier != w.tier {
			t.Fatalf("expected %+v, got %+v ok=%v", w, j, ok)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}

func TestPop_BlocksUntilPush(t *testing.T) {
	q := New()
	got := make(chan Job, 1)
	go func() {
		j, _ := q.Pop(context.Background())
		got <- j
	}()

	select {
	case <-got:
		t.Fatalf("Pop returned before any push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(TierRelay, Job{LogicalID: 5})
	select {
	case j := <-got:
		if j.LogicalID != 5 {
			t.Fatalf("unexpected job %+v", j)
		}
	case <-time.After(time.Second):
		t.Fatalf("Pop did not wake up")
	}
}

func TestPop_ContextCancel(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, ok := q.Pop(ctx); ok {
		t.Fatalf("expected ok=false on cancelled context")
	}
}

func TestPop_ManyWaiters(t *testing.T) {
	q := New()
	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int64]bool{}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			for {
				j, ok := q.Pop(ctx)
				if !ok {
					return
				}
				mu.Lock()
				seen[j.Recipient] = true
				done := len(seen) == n
				mu.Unlock()
				if done {
					return
				}
			}
		}()
	}
	for i := int64(0); i < n; i++ {
		q.Push(TierRelay, Job{Recipient: i})
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("expected %d jobs consumed, got %d", n, len(seen))
	}
}

func TestDelete_BySelector(t *testing.T) {
	q := New()
	for rid := int64(1); rid <= 3; rid++ {
		q.Push(TierRelay, Job{LogicalID: 7, Recipient: rid})
	}
	q.Push(TierSystem, Job{LogicalID: 7, Recipient: 4})
	q.Push(TierRelay, Job{LogicalID: 8, Recipient: 1})

	n := q.Delete(func(j Job) bool { return j.LogicalID == 7 })
	if n != 4 {
		t.Fatalf("expected 4 deleted, got %d", n)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", q.Len())
	}
	j, _ := q.Pop(context.Background())
	if j.LogicalID != 8 {
		t.Fatalf("unexpected survivor %+v", j)
	}
}

func TestPush_ClampsTier(t *testing.T) {
	q := New()
	q.Push(Tier(99), Job{LogicalID: 1})
	q.Push(Tier(-3), Job{LogicalID: 2})
	j, _ := q.Pop(context.Background())
	if j.LogicalID != 2 || j.Tier != TierSystem {
		t.Fatalf("expected clamped system job first, got %+v", j)
	}
}

// Package queue is the in-process delivery queue: priority tiers with FIFO
// order inside each tier, a blocking Pop, and selective deletion of pending
// jobs.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Tier orders jobs between tiers. Lower tiers are dispatched first.
type Tier int

const (
	TierSystem Tier = iota
	TierRelay

	numTiers
)

// Job is one pending delivery of a logical message to one recipient.
type Job struct {
	LogicalID  int64           `json:"logical_id"`
	Payload    json.RawMessage `json:"payload"`
	Recipient  int64           `json:"recipient"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempts   int             `json:"attempts"`

	Tier Tier `json:"tier"`
}

// Queue is safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	tiers [numTiers][]Job
	ready chan struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends job to tier. Out-of-range tiers are clamped.
func (q *Queue) Push(tier Tier, job Job) {
	if tier < 0 {
		tier = 0
	}
	if tier >= numTiers {
		tier = numTiers - 1
	}
	job.Tier = tier
	q.mu.Lock()
	q.tiers[tier] = append(q.tiers[tier], job)
	q.mu.Unlock()
	q.signal()
}

// Pop removes and returns the oldest job of the lowest non-empty tier,
// blocking until one is available. ok is false when ctx is done first.
func (q *Queue) Pop(ctx context.Context) (Job, bool) {
	for {
		if job, ok := q.tryPop(); ok {
			return job, true
		}
		select {
		case <-ctx.Done():
			return Job{}, false
		case <-q.ready:
		}
	}
}

func (q *Queue) tryPop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.tiers {
		if len(q.tiers[i]) == 0 {
			continue
		}
		job := q.tiers[i][0]
		q.tiers[i][0] = Job{}
		q.tiers[i] = q.tiers[i][1:]
		if q.lenLocked() > 0 {
			// wake another waiter
			select {
			case q.ready <- struct{}{}:
			default:
			}
		}
		return job, true
	}
	return Job{}, false
}

// Delete removes every pending job for which match returns true and reports
// how many were removed.
func (q *Queue) Delete(match func(Job) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for i := range q.tiers {
		kept := q.tiers[i][:0]
		for _, j := range q.tiers[i] {
			if match(j) {
				n++
				continue
			}
			kept = append(kept, j)
		}
		for k := len(kept); k < len(q.tiers[i]); k++ {
			q.tiers[i][k] = Job{}
		}
		q.tiers[i] = kept
	}
	return n
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *Queue) lenLocked() int {
	n := 0
	for i := range q.tiers {
		n += len(q.tiers[i])
	}
	return n
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Package services – ExpiryTask
//
// This file implements the periodic registry sweep. Logical messages older
// than the registry retention window are dropped from memory, and any
// deliveries still queued for them are cancelled so a stale copy is never
// sent.
//
// Semantics: durable recipient mappings are not touched. An expired message
// can still be resolved from the database by a later reaction, but it can no
// longer collect votes or receive new copies.
//
// Observability: every pass updates the expired/cancelled counters and the
// queue depth gauge. Passes that cancel work log at warn level.

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-relay-backend/internal/queue"
	"github.com/tbourn/go-relay-backend/internal/registry"
)

// DefaultExpiryInterval is how often ExpiryTask sweeps the registry.
const DefaultExpiryInterval = 6 * time.Hour

// SweepResult reports one expiry pass.
type SweepResult struct {
	Expired   int `json:"expired"`
	Cancelled int `json:"cancelled"`
}

// ExpiryTask drops expired logical messages from the registry and cancels
// their pending deliveries. Durable mapping rows are left alone.
type ExpiryTask struct {
	Registry *registry.Registry
	Queue    *queue.Queue
}

// Sweep runs one expiry pass.
//
// The registry is swept first and the queue second, so a job popped between
// the two steps is cancelled by the dispatcher's own registry check.
func (t *ExpiryTask) Sweep(ctx context.Context) SweepResult {
	ids := t.Registry.ExpireOlderThan(nowOr(t.Registry.Now))
	if len(ids) == 0 {
		return SweepResult{}
	}
	expired := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		expired[id] = struct{}{}
	}
	cancelled := t.Queue.Delete(func(j queue.Job) bool {
		_, ok := expired[j.LogicalID]
		return ok
	})

	expiredMessages.Add(float64(len(ids)))
	cancelledJobs.Add(float64(cancelled))
	queueDepth.Set(float64(t.Queue.Len()))

	if cancelled > 0 {
		log.Warn().Int("expired", len(ids)).Int("cancelled", cancelled).
			Msg("expiry: cancelled queued deliveries of expired messages")
	} else {
		log.Info().Int("expired", len(ids)).Msg("expiry: registry sweep")
	}
	return SweepResult{Expired: len(ids), Cancelled: cancelled}
}

// Run adapts Sweep to the scheduler task signature.
func (t *ExpiryTask) Run(ctx context.Context) error {
	t.Sweep(ctx)
	// a sweep never fails; the scheduler keeps the task registered
	return nil
}

// Package services – Dispatcher
//
// Dispatcher drains the delivery queue with a fixed pool of workers. Each
// job is one logical message for one recipient and ends in exactly one of
// the outcomes below; transient failures are re-queued until the retry
// window measured from the first enqueue has elapsed.
//
//	Enqueued -> Sent
//	Enqueued -> Retrying -> Enqueued
//	Enqueued -> Dropped    (permanent failure or retry window exhausted)
//	Enqueued -> Cancelled  (logical id expired before delivery)
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-relay-backend/internal/queue"
	"github.com/tbourn/go-relay-backend/internal/registry"
	"github.com/tbourn/go-relay-backend/internal/transport"
)

// Outcome is the result of one delivery attempt.
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeRetrying
	OutcomeDropped
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeRetrying:
		return "retrying"
	case OutcomeDropped:
		return "dropped"
	case OutcomeCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

const (
	DefaultRetryWindow  = 60 * time.Second
	DefaultRetryBackoff = 500 * time.Millisecond
)

// Dispatcher delivers queued jobs through Transport.
type Dispatcher struct {
	Queue     *queue.Queue
	Registry  *registry.Registry
	Store     MappingStore
	Reach     *ReachabilityCache
	Transport transport.Client
	BotID     *int64

	Workers      int
	RetryWindow  time.Duration
	RetryBackoff time.Duration
	Limiter      *rate.Limiter
	Now          func() time.Time

	retries sync.WaitGroup
}

// Enqueue schedules payload for recipient on the relay tier.
func (d *Dispatcher) Enqueue(logicalID int64, payload json.RawMessage, recipient int64) {
	d.EnqueueTier(queue.TierRelay, logicalID, payload, recipient)
}

// EnqueueTier schedules payload for recipient on tier.
func (d *Dispatcher) EnqueueTier(tier queue.Tier, logicalID int64, payload json.RawMessage, recipient int64) {
	d.Queue.Push(tier, queue.Job{
		LogicalID:  logicalID,
		Payload:    payload,
		Recipient:  recipient,
		EnqueuedAt: nowOr(d.Now),
	})
	queueDepth.Set(float64(d.Queue.Len()))
}

// Run processes jobs until ctx is cancelled, then waits for the workers and
// any pending retry timers.
func (d *Dispatcher) Run(ctx context.Context) error {
	n := d.Workers
	if n <= 0 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, ok := d.Queue.Pop(ctx)
				if !ok {
					return
				}
				queueDepth.Set(float64(d.Queue.Len()))
				d.Process(ctx, job)
			}
		}()
	}
	log.Info().Int("workers", n).Msg("dispatcher: started")
	wg.Wait()
	d.retries.Wait()
	log.Info().Int("pending", d.Queue.Len()).Msg("dispatcher: stopped")
	return nil
}

// Process makes one delivery attempt for job.
func (d *Dispatcher) Process(ctx context.Context, job queue.Job) (out Outcome) {
	tr := otel.Tracer("services/Dispatcher")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(
			attribute.Int64("message.logical_id", job.LogicalID),
			attribute.Int64("recipient.id", job.Recipient),
			attribute.Int("attempts", job.Attempts),
		),
	)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).
				Int64("logical_id", job.LogicalID).
				Int64("recipient", job.Recipient).
				Msg("dispatcher: job panicked")
			out = OutcomeDropped
		}
		span.SetAttributes(attribute.String("outcome", out.String()))
		deliveries.WithLabelValues(out.String()).Inc()
		span.End()
	}()

	if _, ok := d.Registry.Get(job.LogicalID); !ok {
		return OutcomeCancelled
	}

	// A re-queued job may sit behind a backlog; it never goes out past the window.
	if age := nowOr(d.Now).Sub(job.EnqueuedAt); job.Attempts > 0 && age >= d.retryWindow() {
		log.Warn().
			Int64("logical_id", job.LogicalID).
			Int64("recipient", job.Recipient).
			Int("attempts", job.Attempts).
			Dur("age", age).
			Msg("dispatcher: retry window elapsed before resend")
		return OutcomeDropped
	}

	var err error
	if d.Limiter != nil {
		err = d.Limiter.Wait(ctx)
	}
	var wid int64
	if err == nil {
		wid, err = d.Transport.Send(ctx, job.Recipient, job.Payload)
	}

	switch {
	case err == nil:
		d.delivered(ctx, job, wid)
		return OutcomeSent

	case transport.IsPermanent(err):
		log.Info().Err(err).Int64("recipient", job.Recipient).Msg("dispatcher: recipient unreachable")
		if d.Reach != nil {
			if merr := d.Reach.MarkUnreachable(ctx, job.Recipient); merr != nil {
				log.Warn().Err(merr).Int64("recipient", job.Recipient).Msg("dispatcher: mark unreachable failed")
			}
		}
		return OutcomeDropped
	}

	age := nowOr(d.Now).Sub(job.EnqueuedAt)
	if age+d.retryBackoff() < d.retryWindow() && ctx.Err() == nil {
		job.Attempts++
		d.retryLater(job)
		log.Debug().Err(err).
			Int64("logical_id", job.LogicalID).
			Int64("recipient", job.Recipient).
			Int("attempts", job.Attempts).
			Msg("dispatcher: transient failure, retrying")
		return OutcomeRetrying
	}

	log.Warn().Err(err).
		Int64("logical_id", job.LogicalID).
		Int64("recipient", job.Recipient).
		Int("attempts", job.Attempts+1).
		Dur("age", age).
		Msg("dispatcher: giving up on delivery")
	return OutcomeDropped
}

func (d *Dispatcher) delivered(ctx context.Context, job queue.Job, wid int64) {
	d.Registry.SaveCopy(job.Recipient, job.LogicalID, wid)
	if d.Store != nil {
		if err := d.Store.SaveMapping(ctx, job.LogicalID, job.Recipient, wid, d.BotID); err != nil {
			log.Warn().Err(err).
				Int64("logical_id", job.LogicalID).
				Int64("recipient", job.Recipient).
				Msg("dispatcher: durable mapping write failed")
		}
	}
	if d.Reach != nil {
		if err := d.Reach.MarkSeen(ctx, job.Recipient); err != nil {
			log.Warn().Err(err).Int64("recipient", job.Recipient).Msg("dispatcher: mark seen failed")
		}
	}
}

func (d *Dispatcher) retryLater(job queue.Job) {
	d.retries.Add(1)
	time.AfterFunc(d.retryBackoff(), func() {
		defer d.retries.Done()
		d.Queue.Push(job.Tier, job)
		queueDepth.Set(float64(d.Queue.Len()))
	})
}

func (d *Dispatcher) retryWindow() time.Duration {
	if d.RetryWindow <= 0 {
		return DefaultRetryWindow
	}
	return d.RetryWindow
}

func (d *Dispatcher) retryBackoff() time.Duration {
	if d.RetryBackoff <= 0 {
		return DefaultRetryBackoff
	}
	return d.RetryBackoff
}

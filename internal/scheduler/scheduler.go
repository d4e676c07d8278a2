// Package scheduler runs named tasks at fixed intervals until stopped.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is a periodic unit of work.
type Task func(ctx context.Context) error

type entry struct {
	name     string
	fn       Task
	interval time.Duration
}

// Scheduler holds registered tasks. Register must be called before Run.
type Scheduler struct {
	mu    sync.Mutex
	tasks []entry
}

// New returns an empty scheduler.
func New() *Scheduler { return &Scheduler{} }

// Register adds fn to be called every interval. The first call happens one
// interval after Run starts.
func (s *Scheduler) Register(name string, fn Task, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: task %q: interval must be > 0", name)
	}
	if fn == nil {
		return fmt.Errorf("scheduler: task %q: nil func", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, entry{name: name, fn: fn, interval: interval})
	return nil
}

// Run starts one goroutine per task and blocks until ctx is done and every
// task has returned.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	tasks := append([]entry(nil), s.tasks...)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t entry) {
			defer wg.Done()
			loop(ctx, t)
		}(t)
	}
	wg.Wait()
}

func loop(ctx context.Context, t entry) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	log.Info().Str("task", t.name).Dur("interval", t.interval).Msg("scheduler: task started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("task", t.name).Msg("scheduler: task stopped")
			return
		case <-ticker.C:
			runOnce(ctx, t)
		}
	}
}

func runOnce(ctx context.Context, t entry) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("task", t.name).Interface("panic", rec).Msg("scheduler: task panicked")
		}
	}()
	start := time.Now()
	if err := t.fn(ctx); err != nil {
		log.Error().Err(err).Str("task", t.name).Msg("scheduler: task failed")
		return
	}
	log.Debug().Str("task", t.name).Dur("took", time.Since(start)).Msg("scheduler: task done")
}

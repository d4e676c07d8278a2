package transport

import (
	"context"
	"encoding/json"
	"sync"
)

// Delivery is a payload accepted by Loopback.
type Delivery struct {
	RecipientID int64
	WireID      int64
	Payload     json.RawMessage
}

// Replayed is an event accepted by Loopback.
type Replayed struct {
	RecipientID int64
	WireID      int64
	Event       Event
}

// Loopback is an in-memory Client. Each recipient gets its own sequence of
// wire ids starting at 1. Failures can be programmed per recipient.
type Loopback struct {
	mu         sync.Mutex
	next       map[int64]int64
	sendErr    map[int64][]error
	replayErr  map[int64]error
	deliveries []Delivery
	replays    []Replayed
}

// NewLoopback returns an empty Loopback.
func NewLoopback() *Loopback {
	return &Loopback{
		next:      make(map[int64]int64),
		sendErr:   make(map[int64][]error),
		replayErr: make(map[int64]error),
	}
}

// FailSend queues errs to be returned by the next Send calls for recipient,
// one per call, before sends succeed again.
func (l *Loopback) FailSend(recipient int64, errs ...error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr[recipient] = append(l.sendErr[recipient], errs...)
}

// FailReplay makes every Replay for recipient return err. A nil err clears it.
func (l *Loopback) FailReplay(recipient int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.replayErr, recipient)
		return
	}
	l.replayErr[recipient] = err
}

// Send implements Client.
func (l *Loopback) Send(ctx context.Context, recipientID int64, payload json.RawMessage) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if q := l.sendErr[recipientID]; len(q) > 0 {
		err := q[0]
		l.sendErr[recipientID] = q[1:]
		return 0, err
	}
	l.next[recipientID]++
	wid := l.next[recipientID]
	l.deliveries = append(l.deliveries, Delivery{RecipientID: recipientID, WireID: wid, Payload: payload})
	return wid, nil
}

// Replay implements Client.
func (l *Loopback) Replay(ctx context.Context, recipientID, wireID int64, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.replayErr[recipientID]; err != nil {
		return err
	}
	l.replays = append(l.replays, Replayed{RecipientID: recipientID, WireID: wireID, Event: ev})
	return nil
}

// Deliveries returns a copy of every accepted delivery in order.
func (l *Loopback) Deliveries() []Delivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Delivery(nil), l.deliveries...)
}

// Replays returns a copy of every accepted replay in order.
func (l *Loopback) Replays() []Replayed {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Replayed(nil), l.replays...)
}

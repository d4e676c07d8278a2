// Package registry holds the in-process view of recently relayed messages:
// logical ids, vote sets, the warned flag, and the copies delivered to each
// recipient. Entries live for a fixed retention window and are then dropped.
//
// Semantics:
//   - logical ids start at 1, increase monotonically and are never reused
//   - a voter holds at most one vote per message; a new vote replaces the
//     opposite one
//   - (recipient, wire) resolves to at most one logical id
//
// All operations run under one mutex and perform no I/O. Durable copies live
// in the repo package; this package is the fast path in front of it.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired logical ids.
var ErrNotFound = errors.New("registry: message not found")

// DefaultRetention is how long a logical message stays resolvable.
const DefaultRetention = 48 * time.Hour

// Vote is a karma vote cast on a logical message.
type Vote int

// The zero Vote means no vote.
const (
	VoteUp Vote = iota + 1
	VoteDown
)

// Message is a snapshot of one registry entry.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	CreatedAt  time.Time `json:"created_at"`
	Warned     bool      `json:"warned"`
	Upvoters   []int64   `json:"upvoters"`
	Downvoters []int64   `json:"downvoters"`
}

// Copy is the wire id a recipient holds for a logical message.
type Copy struct {
	RecipientID int64 `json:"recipient_id"`
	WireID      int64 `json:"wire_id"`
}

// entry is the mutable state behind a Message snapshot.
type entry struct {
	sender    int64
	createdAt time.Time
	warned    bool
	up        map[int64]struct{}
	down      map[int64]struct{}
}

// wireKey indexes the reverse (recipient, wire) -> logical lookup.
type wireKey struct {
	recipient int64
	wire      int64
}

// Registry is safe for concurrent use.
type Registry struct {
	// Now is the clock used for CreatedAt; tests may replace it.
	Now func() time.Time

	mu        sync.Mutex
	retention time.Duration
	counter   int64
	msgs      map[int64]*entry
	copies    map[int64]map[int64]int64 // logical -> recipient -> wire
	rev       map[wireKey]int64
}

// New returns an empty registry. A non-positive retention selects
// DefaultRetention.
func New(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		Now:       time.Now,
		retention: retention,
		msgs:      make(map[int64]*entry),
		copies:    make(map[int64]map[int64]int64),
		rev:       make(map[wireKey]int64),
	}
}

// Retention returns the configured retention window.
func (r *Registry) Retention() time.Duration { return r.retention }

// Allocate registers a new logical message from senderID and returns its id.
// Ids start at 1 and are never reused.
func (r *Registry) Allocate(senderID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	r.msgs[r.counter] = &entry{
		sender:    senderID,
		createdAt: r.Now().UTC(),
		up:        make(map[int64]struct{}),
		down:      make(map[int64]struct{}),
	}
	return r.counter
}

// Get returns a snapshot of id.
func (r *Registry) Get(id int64) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.msgs[id]
	if !ok {
		return Message{}, false
	}
	return Message{
		ID:         id,
		SenderID:   e.sender,
		CreatedAt:  e.createdAt,
		Warned:     e.warned,
		Upvoters:   sortedKeys(e.up),
		Downvoters: sortedKeys(e.down),
	}, true
}

// RecordVote places voter in the set for v, removing it from the other set.
// changed is false when the voter already held that vote.
func (r *Registry) RecordVote(id, voter int64, v Vote) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.msgs[id]
	if !ok {
		return false, ErrNotFound
	}
	add, other := e.up, e.down
	if v == VoteDown {
		add, other = e.down, e.up
	}
	if _, dup := add[voter]; dup {
		return false, nil
	}
	delete(other, voter)
	add[voter] = struct{}{}
	return true, nil
}

// SetWarned flags id as warned. first is false when it already was.
func (r *Registry) SetWarned(id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.msgs[id]
	if !ok {
		return false, ErrNotFound
	}
	if e.warned {
		return false, nil
	}
	e.warned = true
	return true, nil
}

// SaveCopy records that recipient holds id under wire. A later call for the
// same (id, recipient) replaces the earlier wire id.
//
// When (recipient, wire) already pointed at another logical id, that older
// copy is forgotten so the reverse index stays one-to-one.
func (r *Registry) SaveCopy(recipient, id, wire int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.copies[id]
	if !ok {
		m = make(map[int64]int64)
		r.copies[id] = m
	}
	if old, ok := m[recipient]; ok && old != wire {
		delete(r.rev, wireKey{recipient, old})
	}
	key := wireKey{recipient, wire}
	if prev, ok := r.rev[key]; ok && prev != id {
		delete(r.copies[prev], recipient)
	}
	m[recipient] = wire
	r.rev[key] = id
}

// Resolve maps a recipient's wire id back to its logical id.
func (r *Registry) Resolve(recipient, wire int64) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.rev[wireKey{recipient, wire}]
	return id, ok
}

// WireFor returns the wire id recipient holds for id.
func (r *Registry) WireFor(recipient, id int64) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.copies[id][recipient]
	return w, ok
}

// Copies lists every known copy of id ordered by recipient.
func (r *Registry) Copies(id int64) []Copy {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.copies[id]
	out := make([]Copy, 0, len(m))
	for rid, wid := range m {
		out = append(out, Copy{RecipientID: rid, WireID: wid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipientID < out[j].RecipientID })
	return out
}

// MessagesBy lists the live logical ids sent by sender in ascending order.
func (r *Registry) MessagesBy(sender int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id, e := range r.msgs {
		if e.sender == sender {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ExpireOlderThan drops every entry whose retention ended at or before now,
// together with its copies, and returns the dropped ids in ascending order.
//
// Callers are expected to cancel queued work for the returned ids.
func (r *Registry) ExpireOlderThan(now time.Time) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id, e := range r.msgs {
		if e.createdAt.Add(r.retention).After(now) {
			continue
		}
		ids = append(ids, id)
		delete(r.msgs, id)
		for rid, wid := range r.copies[id] {
			delete(r.rev, wireKey{rid, wid})
		}
		delete(r.copies, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

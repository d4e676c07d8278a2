package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-relay-backend/internal/registry"
	"github.com/tbourn/go-relay-backend/internal/repo"
	"github.com/tbourn/go-relay-backend/internal/transport"
)

// relayed posts one message from sender and delivers it to every recipient.
func relayed(t *testing.T, e *engine, sender, wire int64) int64 {
	t.Helper()
	res, err := e.relay.Relay(context.Background(), sender, wire, payload("m"))
	if err != nil {
		t.Fatalf("Relay: %v", err)
	}
	e.drain(t)
	return res.LogicalID
}

func TestMirror_ReactionSkipsObserver(t *testing.T) {
	e := newEngine(t)
	e.join(t, 100, 200, 300)
	lid := relayed(t, e, 100, 5000)
	w200, _ := e.reg.WireFor(200, lid)
	w300, _ := e.reg.WireFor(300, lid)

	res, err := e.mirror.Mirror(context.Background(), 200, w200,
		transport.Event{Kind: transport.EventReaction, Emoji: "👍", ActorID: 200})
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if res.LogicalID != lid || res.Replayed != 2 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	got := map[int64]int64{}
	for _, r := range e.tp.Replays() {
		got[r.RecipientID] = r.WireID
		if r.Event.ActorID != 0 {
			t.Fatalf("replayed reaction leaks actor %d to %d", r.Event.ActorID, r.RecipientID)
		}
		if r.Event.Emoji != "👍" {
			t.Fatalf("replayed emoji = %q", r.Event.Emoji)
		}
	}
	if _, ok := got[200]; ok {
		t.Fatalf("observer must not receive its own reaction")
	}
	if got[300] != w300 || got[100] != 5000 {
		t.Fatalf("unexpected replays %v", got)
	}
}

func TestMirror_VoteTargetsSender(t *testing.T) {
	e := newEngine(t)
	e.join(t, 100, 200, 300)
	lid := relayed(t, e, 100, 1)
	ctx := context.Background()
	w200, _ := e.reg.WireFor(200, lid)

	up := transport.Event{Kind: transport.EventReaction, Emoji: "🔥", ActorID: 200}
	res, err := e.mirror.Mirror(ctx, 200, w200, up)
	if err != nil || !res.VoteChanged || res.Vote != "up" {
		t.Fatalf("expected up vote, got %+v err=%v", res, err)
	}
	if res, _ = e.mirror.Mirror(ctx, 200, w200, up); res.VoteChanged {
		t.Fatalf("repeated vote must not change karma")
	}
	sender, _ := e.store.GetUser(ctx, 100)
	if sender.Karma != 1 {
		t.Fatalf("expected sender karma 1, got %d", sender.Karma)
	}

	down := transport.Event{Kind: transport.EventReaction, Emoji: "👎", ActorID: 200}
	if res, _ = e.mirror.Mirror(ctx, 200, w200, down); !res.VoteChanged || res.Vote != "down" {
		t.Fatalf("expected switch to down, got %+v", res)
	}
	sender, _ = e.store.GetUser(ctx, 100)
	if sender.Karma != -1 {
		t.Fatalf("expected sender karma -1 after switch, got %d", sender.Karma)
	}
	observer, _ := e.store.GetUser(ctx, 200)
	if observer.Karma != 0 {
		t.Fatalf("observer karma must not change, got %d", observer.Karma)
	}
}

func TestMirror_HeartWithPresentationSelector(t *testing.T) {
	e := newEngine(t)
	e.join(t, 100, 200, 300)
	lid := relayed(t, e, 100, 1)
	ctx := context.Background()
	w200, _ := e.reg.WireFor(200, lid)

	res, err := e.mirror.Mirror(ctx, 200, w200,
		transport.Event{Kind: transport.EventReaction, Emoji: "❤️", ActorID: 200})
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if res.Replayed != 2 || !res.VoteChanged || res.Vote != "up" {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, r := range e.tp.Replays() {
		if r.Event.Emoji != "❤️" || r.Event.ActorID != 0 {
			t.Fatalf("unexpected replay %+v", r)
		}
	}
	sender, _ := e.store.GetUser(ctx, 100)
	if sender.Karma != 1 {
		t.Fatalf("expected sender karma 1, got %d", sender.Karma)
	}
}

func TestMirror_SelfVoteIgnored(t *testing.T) {
	e := newEngine(t)
	e.join(t, 100, 200)
	lid := relayed(t, e, 100, 1)

	res, err := e.mirror.Mirror(context.Background(), 100, 1,
		transport.Event{Kind: transport.EventReaction, Emoji: "👍", ActorID: 100})
	if err != nil {
		t.Fatal(err)
	}
	if res.VoteChanged || res.Replayed != 1 {
		t.Fatalf("self vote must only be mirrored, got %+v", res)
	}
	msg, _ := e.reg.Get(lid)
	if len(msg.Upvoters) != 0 {
		t.Fatalf("self vote recorded: %+v", msg)
	}
}

func TestMirror_NeutralReactionNoVote(t *testing.T) {
	e := newEngine(t)
	e.join(t, 1, 2)
	lid := relayed(t, e, 1, 1)
	w, _ := e.reg.WireFor(2, lid)
	res, err := e.mirror.Mirror(context.Background(), 2, w,
		transport.Event{Kind: transport.EventReaction, Emoji: "🤔"})
	if err != nil || res.VoteChanged || res.Replayed != 1 {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
}

func TestMirror_DurableFallbackAfterRestart(t *testing.T) {
	e := newEngine(t)
	e.join(t, 100, 200, 300)
	lid := relayed(t, e, 100, 1)
	w200, _ := e.reg.WireFor(200, lid)

	// fresh process: empty registry, same store
	e.mirror.Registry = registry.New(time.Hour)

	res, err := e.mirror.Mirror(context.Background(), 200, w200, transport.Event{Kind: transport.EventPin, ActorID: 200})
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if res.LogicalID != lid || res.Replayed != 2 {
		t.Fatalf("expected durable fallback to reach 2 copies, got %+v", res)
	}
}

func TestMirror_UnresolvedIsNotFound(t *testing.T) {
	e := newEngine(t)
	_, err := e.mirror.Mirror(context.Background(), 1, 1, transport.Event{Kind: transport.EventDelete})
	if !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestMirror_ZeroCopiesIsNoop(t *testing.T) {
	e := newEngine(t)
	if err := e.store.SaveMapping(context.Background(), 8, 1, 1, e.bot); err != nil {
		t.Fatal(err)
	}
	res, err := e.mirror.Mirror(context.Background(), 1, 1, transport.Event{Kind: transport.EventDelete})
	if err != nil || res.Replayed != 0 || res.Failed != 0 {
		t.Fatalf("expected no-op, got %+v err=%v", res, err)
	}
}

func TestMirror_FailedReplayDoesNotAbort(t *testing.T) {
	e := newEngine(t)
	e.join(t, 1, 2, 3, 4)
	lid := relayed(t, e, 1, 1)
	e.tp.FailReplay(2, errors.New("flood wait"))

	w3, _ := e.reg.WireFor(3, lid)
	res, err := e.mirror.Mirror(context.Background(), 3, w3, transport.Event{Kind: transport.EventDelete})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Replayed != 2 {
		t.Fatalf("expected 1 failed and 2 replayed, got %+v", res)
	}
}

func TestMirror_Validation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	if _, err := e.mirror.Mirror(ctx, 1, 1, transport.Event{Kind: "edit"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if _, err := e.mirror.Mirror(ctx, 1, 1, transport.Event{Kind: transport.EventReaction, Emoji: "ok"}); !errors.Is(err, ErrInvalidReaction) {
		t.Fatalf("expected ErrInvalidReaction, got %v", err)
	}
}

func TestMirror_BotPartition(t *testing.T) {
	e := newEngine(t)
	other := int64(5)
	if err := e.store.SaveMapping(context.Background(), 3, 1, 1, &other); err != nil {
		t.Fatal(err)
	}
	if _, err := e.mirror.Resolve(context.Background(), 1, 1); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("rows of another bot must not resolve, got %v", err)
	}
	if _, err := repo.ResolveByRecipientAndWire(context.Background(), e.db, 1, 1, nil); err != nil {
		t.Fatalf("row must exist: %v", err)
	}
}

func TestDescribe_LiveAndDurable(t *testing.T) {
	e := newEngine(t)
	e.join(t, 1, 2, 3)
	lid := relayed(t, e, 1, 9)
	ctx := context.Background()

	v, err := e.mirror.Describe(ctx, lid)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if !v.Live || v.CreatedAt == nil || len(v.Copies) != 3 {
		t.Fatalf("unexpected live view %+v", v)
	}

	e.mirror.Registry = registry.New(time.Hour)
	v, err = e.mirror.Describe(ctx, lid)
	if err != nil {
		t.Fatalf("Describe after restart: %v", err)
	}
	if v.Live || v.CreatedAt != nil || len(v.Copies) != 3 {
		t.Fatalf("unexpected durable view %+v", v)
	}

	if _, err := e.mirror.Describe(ctx, 999); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

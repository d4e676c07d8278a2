// Package services – MirrorService
//
// MirrorService replays an action observed on one copy of a logical message
// (reaction, delete, pin) onto every other copy. Lookups prefer the
// in-process registry and fall back to the durable mapping store, so copies
// stay reachable after a restart or from another process sharing the store.

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-relay-backend/internal/karma"
	"github.com/tbourn/go-relay-backend/internal/registry"
	"github.com/tbourn/go-relay-backend/internal/repo"
	"github.com/tbourn/go-relay-backend/internal/transport"
)

// MirrorResult summarizes one mirrored event.
type MirrorResult struct {
	LogicalID   int64  `json:"logical_id"`
	Replayed    int    `json:"replayed"`
	Failed      int    `json:"failed"`
	Vote        string `json:"vote,omitempty"`
	VoteChanged bool   `json:"vote_changed"`
}

// MirrorService mirrors events across delivered copies.
type MirrorService struct {
	Registry  *registry.Registry
	Store     MappingStore
	Transport transport.Client
	Users     UserDirectory
	BotID     *int64
}

// Mirror replays ev, observed by observerID on observerWire, onto every other
// copy of the same logical message.
func (s *MirrorService) Mirror(ctx context.Context, observerID, observerWire int64, ev transport.Event) (*MirrorResult, error) {
	tr := otel.Tracer("services/MirrorService")
	ctx, span := tr.Start(ctx, "Mirror",
		trace.WithAttributes(
			attribute.Int64("observer.id", observerID),
			attribute.Int64("observer.wire_id", observerWire),
			attribute.String("event.kind", string(ev.Kind)),
		),
	)
	defer span.End()

	if !ev.Kind.Valid() {
		return nil, ErrInvalidEvent
	}
	if ev.Kind == transport.EventReaction {
		if err := karma.Validate(ev.Emoji); err != nil {
			return nil, ErrInvalidReaction
		}
	}

	lid, err := s.Resolve(ctx, observerID, observerWire)
	if err != nil {
		return nil, err
	}
	res := &MirrorResult{LogicalID: lid}

	// Reaction copies never carry who reacted.
	out := ev
	if ev.Kind == transport.EventReaction {
		out.ActorID = 0
	}

	for _, c := range s.Copies(ctx, lid) {
		if c.RecipientID == observerID {
			continue
		}
		if err := s.Transport.Replay(ctx, c.RecipientID, c.WireID, out); err != nil {
			res.Failed++
			mirrorReplays.WithLabelValues("failed").Inc()
			log.Warn().Err(err).
				Int64("logical_id", lid).
				Int64("recipient", c.RecipientID).
				Str("kind", string(ev.Kind)).
				Msg("mirror: replay failed")
			continue
		}
		res.Replayed++
		mirrorReplays.WithLabelValues("ok").Inc()
	}

	if ev.Kind == transport.EventReaction {
		s.vote(ctx, lid, observerID, ev.Emoji, res)
	}

	span.SetAttributes(
		attribute.Int64("message.logical_id", lid),
		attribute.Int("replayed", res.Replayed),
		attribute.Int("failed", res.Failed),
	)
	return res, nil
}

// Resolve maps (recipientID, wireID) to a logical id: registry first, then
// the durable store.
func (s *MirrorService) Resolve(ctx context.Context, recipientID, wireID int64) (int64, error) {
	if lid, ok := s.Registry.Resolve(recipientID, wireID); ok {
		return lid, nil
	}
	lid, err := s.Store.ResolveByRecipientAndWire(ctx, recipientID, wireID, s.BotID)
	if err == nil {
		return lid, nil
	}
	if !repo.IsNotFound(err) {
		log.Warn().Err(err).Int64("recipient", recipientID).Msg("mirror: durable resolve failed")
	}
	return 0, ErrMessageNotFound
}

// Copies lists every copy of lid: registry first, durable store only when the
// registry knows none.
func (s *MirrorService) Copies(ctx context.Context, lid int64) []registry.Copy {
	if copies := s.Registry.Copies(lid); len(copies) > 0 {
		return copies
	}
	rows, err := s.Store.ResolveRecipientsByLogicalID(ctx, lid, s.BotID)
	if err != nil {
		log.Warn().Err(err).Int64("logical_id", lid).Msg("mirror: durable copies lookup failed")
		return nil
	}
	out := make([]registry.Copy, 0, len(rows))
	for _, r := range rows {
		out = append(out, registry.Copy{RecipientID: r.RecipientID, WireID: r.WireID})
	}
	return out
}

// MessageView is the operator view of a logical message. The sender is
// never part of it.
type MessageView struct {
	LogicalID int64           `json:"logical_id"`
	Live      bool            `json:"live"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Warned    bool            `json:"warned"`
	Upvotes   int             `json:"upvotes"`
	Downvotes int             `json:"downvotes"`
	Copies    []registry.Copy `json:"copies"`
}

// Describe returns the view of lid. Expired messages that still have durable
// copies are reported with Live false.
func (s *MirrorService) Describe(ctx context.Context, lid int64) (*MessageView, error) {
	view := &MessageView{LogicalID: lid}
	if msg, ok := s.Registry.Get(lid); ok {
		created := msg.CreatedAt
		view.Live = true
		view.CreatedAt = &created
		view.Warned = msg.Warned
		view.Upvotes = len(msg.Upvoters)
		view.Downvotes = len(msg.Downvoters)
	}
	view.Copies = s.Copies(ctx, lid)
	if !view.Live && len(view.Copies) == 0 {
		return nil, ErrMessageNotFound
	}
	return view, nil
}

// vote books a karma vote of voter against the sender of lid.
func (s *MirrorService) vote(ctx context.Context, lid, voter int64, emoji string, res *MirrorResult) {
	v := karma.Classify(emoji)
	if v == karma.None {
		return
	}
	msg, ok := s.Registry.Get(lid)
	if !ok || msg.SenderID == voter {
		return
	}
	prev := voteOf(msg, voter)
	changed, err := s.Registry.RecordVote(lid, voter, v)
	if err != nil || !changed {
		return
	}
	res.VoteChanged = true
	res.Vote = "up"
	delta := 1
	if v == registry.VoteDown {
		res.Vote = "down"
		delta = -1
	}
	if prev != karma.None {
		delta *= 2
	}
	if s.Users == nil {
		return
	}
	if err := s.Users.AdjustKarma(ctx, msg.SenderID, delta); err != nil {
		log.Warn().Err(err).Int64("sender", msg.SenderID).Msg("mirror: karma update failed")
	}
}

func voteOf(m registry.Message, voter int64) registry.Vote {
	for _, id := range m.Upvoters {
		if id == voter {
			return registry.VoteUp
		}
	}
	for _, id := range m.Downvoters {
		if id == voter {
			return registry.VoteDown
		}
	}
	return karma.None
}

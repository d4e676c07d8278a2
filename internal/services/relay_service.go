// Package services – RelayService
//
// RelayService turns one inbound message into a logical message and fans it
// out: the sender's own copy is recorded, and one delivery job is queued for
// every other joined, non-blacklisted, reachable participant.

package services

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/registry"
	"github.com/tbourn/go-relay-backend/internal/repo"
)

// RelayResult describes the fanout of one inbound message.
type RelayResult struct {
	LogicalID int64 `json:"logical_id"`
	Queued    int   `json:"queued"`
	Duplicate bool  `json:"duplicate"`
}

// RelayService fans inbound messages out to the channel.
type RelayService struct {
	Registry   *registry.Registry
	Store      MappingStore
	Users      UserDirectory
	Reach      *ReachabilityCache
	Dispatcher *Dispatcher
	BotID      *int64
}

// Relay registers the message senderID posted as wireID and queues one
// delivery per recipient.
func (s *RelayService) Relay(ctx context.Context, senderID, wireID int64, payload json.RawMessage) (*RelayResult, error) {
	tr := otel.Tracer("services/RelayService")
	ctx, span := tr.Start(ctx, "Relay",
		trace.WithAttributes(
			attribute.Int64("sender.id", senderID),
			attribute.Int64("sender.wire_id", wireID),
		),
	)
	defer span.End()

	if lid, ok := s.existing(ctx, senderID, wireID); ok {
		span.SetAttributes(attribute.Bool("duplicate", true))
		return &RelayResult{LogicalID: lid, Duplicate: true}, nil
	}

	sender, err := s.Users.GetUser(ctx, senderID)
	if repo.IsNotFound(err) {
		return nil, ErrSenderNotJoined
	}
	if err != nil {
		return nil, err
	}
	if sender.IsBlacklisted() {
		return nil, ErrSenderBlacklisted
	}
	if !sender.IsJoined() {
		return nil, ErrSenderNotJoined
	}

	if s.Reach != nil {
		if err := s.Reach.MarkSeen(ctx, senderID); err != nil {
			log.Warn().Err(err).Int64("sender", senderID).Msg("relay: mark seen failed")
		}
	}
	if err := s.Users.TouchLastActive(ctx, senderID, nowOr(s.Registry.Now)); err != nil {
		log.Warn().Err(err).Int64("sender", senderID).Msg("relay: touch last_active failed")
	}

	lid := s.Registry.Allocate(senderID)
	s.Registry.SaveCopy(senderID, lid, wireID)
	if err := s.Store.SaveMapping(ctx, lid, senderID, wireID, s.BotID); err != nil {
		log.Warn().Err(err).Int64("logical_id", lid).Msg("relay: durable mapping write failed")
	}

	var reachable map[int64]struct{}
	if s.Reach != nil {
		if reachable, err = s.Reach.Reachable(ctx); err != nil {
			// deliver to everyone; the transport reports unreachable recipients
			log.Warn().Err(err).Msg("relay: reachability lookup failed")
			reachable = nil
		}
	}

	queued := 0
	err = s.Users.IterateJoinedRecipients(ctx, func(u domain.User) error {
		if u.ID == senderID || !u.IsJoined() || u.IsBlacklisted() {
			return nil
		}
		if reachable != nil {
			if _, ok := reachable[u.ID]; !ok {
				return nil
			}
		}
		s.Dispatcher.Enqueue(lid, payload, u.ID)
		queued++
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("message.logical_id", lid),
		attribute.Int("queued", queued),
	)
	log.Debug().Int64("logical_id", lid).Int64("sender", senderID).Int("queued", queued).Msg("relay: fanned out")
	return &RelayResult{LogicalID: lid, Queued: queued}, nil
}

func (s *RelayService) existing(ctx context.Context, senderID, wireID int64) (int64, bool) {
	if lid, ok := s.Registry.Resolve(senderID, wireID); ok {
		return lid, true
	}
	lid, err := s.Store.ResolveByRecipientAndWire(ctx, senderID, wireID, s.BotID)
	if err == nil {
		return lid, true
	}
	if !repo.IsNotFound(err) {
		log.Warn().Err(err).Int64("sender", senderID).Msg("relay: duplicate check failed")
	}
	return 0, false
}

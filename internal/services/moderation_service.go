// Package services – ModerationService
//
// Moderation touches the relay in two places: warning a logical message
// (once) and removing every delivered copy of it. Rank rules beyond the
// moderator threshold live outside this package.

package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-relay-backend/internal/registry"
	"github.com/tbourn/go-relay-backend/internal/repo"
	"github.com/tbourn/go-relay-backend/internal/transport"
)

// WarnResult identifies the warned message. The sender stays server-side.
type WarnResult struct {
	LogicalID int64 `json:"logical_id"`
	SenderID  int64 `json:"-"`
}

// PurgeResult summarizes a purge of every live message of one sender.
type PurgeResult struct {
	SenderID int64 `json:"-"`
	Messages int   `json:"messages"`
	Replayed int   `json:"replayed"`
	Failed   int   `json:"failed"`
}

// ModerationService applies moderator actions to relayed messages.
type ModerationService struct {
	Registry  *registry.Registry
	Users     UserDirectory
	Mirror    *MirrorService
	Transport transport.Client
}

// Warn flags the message modID points at (recipientID, wireID) as warned and
// increments its sender's warning counter.
func (s *ModerationService) Warn(ctx context.Context, modID, recipientID, wireID int64) (*WarnResult, error) {
	tr := otel.Tracer("services/ModerationService")
	ctx, span := tr.Start(ctx, "Warn",
		trace.WithAttributes(
			attribute.Int64("moderator.id", modID),
			attribute.Int64("recipient.id", recipientID),
			attribute.Int64("wire.id", wireID),
		),
	)
	defer span.End()

	if err := s.requireMod(ctx, modID); err != nil {
		return nil, err
	}
	msg, err := s.live(ctx, recipientID, wireID)
	if err != nil {
		return nil, err
	}
	first, err := s.Registry.SetWarned(msg.ID)
	if errors.Is(err, registry.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, ErrAlreadyWarned
	}
	if err := s.Users.AddWarning(ctx, msg.SenderID); err != nil && !repo.IsNotFound(err) {
		return nil, err
	}
	log.Info().Int64("moderator", modID).Int64("logical_id", msg.ID).Int64("sender", msg.SenderID).Msg("moderation: warned")
	return &WarnResult{LogicalID: msg.ID, SenderID: msg.SenderID}, nil
}

// Remove deletes every other copy of the message modID points at.
func (s *ModerationService) Remove(ctx context.Context, modID, recipientID, wireID int64) (*MirrorResult, error) {
	tr := otel.Tracer("services/ModerationService")
	ctx, span := tr.Start(ctx, "Remove",
		trace.WithAttributes(
			attribute.Int64("moderator.id", modID),
			attribute.Int64("recipient.id", recipientID),
			attribute.Int64("wire.id", wireID),
		),
	)
	defer span.End()

	if err := s.requireMod(ctx, modID); err != nil {
		return nil, err
	}
	res, err := s.Mirror.Mirror(ctx, recipientID, wireID, transport.Event{Kind: transport.EventDelete, ActorID: modID})
	if err != nil {
		return nil, err
	}
	log.Info().Int64("moderator", modID).Int64("logical_id", res.LogicalID).Int("replayed", res.Replayed).Msg("moderation: removed")
	return res, nil
}

// Purge deletes every copy of every live message sent by the author of the
// message modID points at.
func (s *ModerationService) Purge(ctx context.Context, modID, recipientID, wireID int64) (*PurgeResult, error) {
	tr := otel.Tracer("services/ModerationService")
	ctx, span := tr.Start(ctx, "Purge",
		trace.WithAttributes(attribute.Int64("moderator.id", modID)),
	)
	defer span.End()

	if err := s.requireMod(ctx, modID); err != nil {
		return nil, err
	}
	msg, err := s.live(ctx, recipientID, wireID)
	if err != nil {
		return nil, err
	}

	res := &PurgeResult{SenderID: msg.SenderID}
	ev := transport.Event{Kind: transport.EventDelete, ActorID: modID}
	for _, lid := range s.Registry.MessagesBy(msg.SenderID) {
		res.Messages++
		for _, c := range s.Mirror.Copies(ctx, lid) {
			if err := s.Transport.Replay(ctx, c.RecipientID, c.WireID, ev); err != nil {
				res.Failed++
				mirrorReplays.WithLabelValues("failed").Inc()
				continue
			}
			res.Replayed++
			mirrorReplays.WithLabelValues("ok").Inc()
		}
	}
	log.Info().Int64("moderator", modID).Int64("sender", msg.SenderID).
		Int("messages", res.Messages).Int("replayed", res.Replayed).Msg("moderation: purged")
	return res, nil
}

func (s *ModerationService) requireMod(ctx context.Context, modID int64) error {
	u, err := s.Users.GetUser(ctx, modID)
	if repo.IsNotFound(err) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if !u.CanModerate() || !u.IsJoined() {
		return ErrForbidden
	}
	return nil
}

// live resolves (recipientID, wireID) to a registry entry. Durable rows alone
// are not enough since they do not record the sender.
func (s *ModerationService) live(ctx context.Context, recipientID, wireID int64) (registry.Message, error) {
	lid, err := s.Mirror.Resolve(ctx, recipientID, wireID)
	if err != nil {
		return registry.Message{}, err
	}
	msg, ok := s.Registry.Get(lid)
	if !ok {
		return registry.Message{}, ErrMessageNotFound
	}
	return msg, nil
}

// Package services – UserService
//
// This file implements channel membership: joining, leaving, blacklisting
// and lookup of participants. Membership decides who receives relayed
// copies; a user who left or was blacklisted drops out of every fanout.
//
// Semantics: usernames are stored without a leading "@" and an empty
// username is stored as NULL. Blacklisting is final; the user cannot rejoin.
//
// Observability: Join, Leave and Blacklist are OpenTelemetry-instrumented;
// spans carry the user id and, for Blacklist, the moderator id.

package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/repo"
)

// UserService manages channel membership.
type UserService struct {
	Users UserDirectory
	Reach *ReachabilityCache
	Now   func() time.Time
}

// Join adds id to the channel, or re-adds a user who left. Blacklisted users
// cannot rejoin.
//
// A successful join also marks the user as seen, so the first relay after
// joining already treats them as reachable.
func (s *UserService) Join(ctx context.Context, id int64, username *string, realname string) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Join", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	existing, err := s.Users.GetUser(ctx, id)
	switch {
	case err == nil && existing.IsBlacklisted():
		return nil, ErrSenderBlacklisted
	case err != nil && !repo.IsNotFound(err):
		return nil, err
	}

	if username != nil {
		u := strings.TrimPrefix(strings.TrimSpace(*username), "@")
		if u == "" {
			username = nil
		} else {
			username = &u
		}
	}
	u, err := s.Users.JoinUser(ctx, id, username, strings.TrimSpace(realname), nowOr(s.Now))
	if err != nil {
		return nil, err
	}
	if s.Reach != nil {
		if err := s.Reach.MarkSeen(ctx, id); err != nil {
			log.Warn().Err(err).Int64("user", id).Msg("users: mark seen failed")
		}
	}
	return u, nil
}

// Leave removes id from the channel.
func (s *UserService) Leave(ctx context.Context, id int64) error {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Leave", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	if err := s.Users.LeaveUser(ctx, id, nowOr(s.Now)); err != nil {
		if repo.IsNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// Blacklist bans id. The acting user must be a moderator of higher rank.
//
// Errors:
//   - ErrForbidden when the actor is unknown, not a moderator, or does not
//     outrank the target
//   - ErrUserNotFound when the target is unknown
func (s *UserService) Blacklist(ctx context.Context, modID, id int64, reason string) error {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Blacklist",
		trace.WithAttributes(
			attribute.Int64("moderator.id", modID),
			attribute.Int64("user.id", id),
		),
	)
	defer span.End()

	mod, err := s.Users.GetUser(ctx, modID)
	if repo.IsNotFound(err) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	target, err := s.Users.GetUser(ctx, id)
	if repo.IsNotFound(err) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if !mod.CanModerate() || target.Rank >= mod.Rank {
		return ErrForbidden
	}
	if err := s.Users.BlacklistUser(ctx, id, strings.TrimSpace(reason), nowOr(s.Now)); err != nil {
		return err
	}
	log.Info().Int64("moderator", modID).Int64("user", id).Msg("users: blacklisted")
	return nil
}

// Get returns the user or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.Users.GetUser(ctx, id)
	if repo.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	return u, err
}

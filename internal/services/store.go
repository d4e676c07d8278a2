// Package services – storage ports
//
// This file declares the persistence interfaces the services depend on. The
// GORM-backed repo.Store satisfies all of them; tests use the same store on
// an in-memory SQLite database.
//
// Semantics: a nil botID selects the bot-agnostic partition of the mapping
// table. Lookups that find nothing return an error matched by
// repo.IsNotFound; services translate it into their own sentinel errors.

package services

import (
	"context"
	"time"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// MappingStore is the durable recipient mapping store. Rows outlive the
// in-memory registry and back reaction resolution after a restart.
type MappingStore interface {
	SaveMapping(ctx context.Context, logicalID, recipientID, wireID int64, botID *int64) error
	ResolveByRecipientAndWire(ctx context.Context, recipientID, wireID int64, botID *int64) (int64, error)
	ResolveRecipientsByLogicalID(ctx context.Context, logicalID int64, botID *int64) ([]domain.RecipientMapping, error)
}

// ReachabilityStore persists per-bot reachability records.
type ReachabilityStore interface {
	MarkSeen(ctx context.Context, botID, uid int64, at time.Time) error
	MarkUnreachable(ctx context.Context, botID, uid int64) error
	ListReachable(ctx context.Context, botID int64) ([]int64, error)
}

// UserDirectory is the participant directory.
//
// IterateJoinedRecipients visits every joined, non-blacklisted user; fn
// returning an error stops the walk and the error is returned.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	JoinUser(ctx context.Context, id int64, username *string, realname string, at time.Time) (*domain.User, error)
	LeaveUser(ctx context.Context, id int64, at time.Time) error
	BlacklistUser(ctx context.Context, id int64, reason string, at time.Time) error
	TouchLastActive(ctx context.Context, id int64, at time.Time) error
	AdjustKarma(ctx context.Context, id int64, delta int) error
	AddWarning(ctx context.Context, id int64) error
	IterateJoinedRecipients(ctx context.Context, fn func(domain.User) error) error
}

// nowOr returns f() when a test clock is set, otherwise time.Now().
func nowOr(f func() time.Time) time.Time {
	if f != nil {
		return f()
	}
	return time.Now()
}

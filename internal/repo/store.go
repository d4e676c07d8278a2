package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// Store binds the package-level repository functions to one *gorm.DB so it
// can be injected where the service layer expects an interface.
type Store struct {
	DB *gorm.DB
}

// NewStore wraps db.
func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// SaveMapping proxies SaveMapping.
func (s *Store) SaveMapping(ctx context.Context, logicalID, recipientID, wireID int64, botID *int64) error {
	return SaveMapping(ctx, s.DB, logicalID, recipientID, wireID, botID)
}

// ResolveByRecipientAndWire proxies ResolveByRecipientAndWire.
func (s *Store) ResolveByRecipientAndWire(ctx context.Context, recipientID, wireID int64, botID *int64) (int64, error) {
	return ResolveByRecipientAndWire(ctx, s.DB, recipientID, wireID, botID)
}

// ResolveRecipientsByLogicalID proxies ResolveRecipientsByLogicalID.
func (s *Store) ResolveRecipientsByLogicalID(ctx context.Context, logicalID int64, botID *int64) ([]domain.RecipientMapping, error) {
	return ResolveRecipientsByLogicalID(ctx, s.DB, logicalID, botID)
}

// MarkSeen proxies MarkSeen.
func (s *Store) MarkSeen(ctx context.Context, botID, uid int64, at time.Time) error {
	return MarkSeen(ctx, s.DB, botID, uid, at)
}

// MarkUnreachable proxies MarkUnreachable.
func (s *Store) MarkUnreachable(ctx context.Context, botID, uid int64) error {
	return MarkUnreachable(ctx, s.DB, botID, uid)
}

// ListReachable proxies ListReachable.
func (s *Store) ListReachable(ctx context.Context, botID int64) ([]int64, error) {
	return ListReachable(ctx, s.DB, botID)
}

// GetUser proxies GetUser.
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return GetUser(ctx, s.DB, id)
}

// JoinUser proxies JoinUser.
func (s *Store) JoinUser(ctx context.Context, id int64, username *string, realname string, at time.Time) (*domain.User, error) {
	return JoinUser(ctx, s.DB, id, username, realname, at)
}

// LeaveUser proxies LeaveUser.
func (s *Store) LeaveUser(ctx context.Context, id int64, at time.Time) error {
	return LeaveUser(ctx, s.DB, id, at)
}

// BlacklistUser proxies BlacklistUser.
func (s *Store) BlacklistUser(ctx context.Context, id int64, reason string, at time.Time) error {
	return BlacklistUser(ctx, s.DB, id, reason, at)
}

// TouchLastActive proxies TouchLastActive.
func (s *Store) TouchLastActive(ctx context.Context, id int64, at time.Time) error {
	return TouchLastActive(ctx, s.DB, id, at)
}

// AdjustKarma proxies AdjustKarma.
func (s *Store) AdjustKarma(ctx context.Context, id int64, delta int) error {
	return AdjustKarma(ctx, s.DB, id, delta)
}

// AddWarning proxies AddWarning.
func (s *Store) AddWarning(ctx context.Context, id int64) error {
	return AddWarning(ctx, s.DB, id)
}

// IterateJoinedRecipients proxies IterateJoinedRecipients.
func (s *Store) IterateJoinedRecipients(ctx context.Context, fn func(domain.User) error) error {
	return IterateJoinedRecipients(ctx, s.DB, fn)
}

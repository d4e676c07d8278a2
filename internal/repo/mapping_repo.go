// Package repo implements the durable store of the relay, backed by GORM.
// This file provides the recipient mapping queries: the table that turns a
// recipient's wire-level message id back into a logical message id and lists
// every copy of a logical message.
//
// All writes are single-statement upserts so that retries and several
// processes writing the same rows need no cross-process locking.
//
// Bot identity matching:
//   - botID == nil: no filter, every row matches.
//   - botID != nil: rows with bot_id = *botID OR bot_id IS NULL (legacy rows
//     written before the store was partitioned).
package repo

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// visibleTo restricts q to rows visible to botID.
func visibleTo(q *gorm.DB, botID *int64) *gorm.DB {
	if botID == nil {
		return q
	}
	return q.Where("(bot_id = ? OR bot_id IS NULL)", *botID)
}

// SaveMapping upserts the (recipientID, wireID) row. An existing row for the
// same key is overwritten with the new logical id, bot identity and time.
func SaveMapping(ctx context.Context, db *gorm.DB, logicalID, recipientID, wireID int64, botID *int64) error {
	row := &domain.RecipientMapping{
		LogicalID:   logicalID,
		RecipientID: recipientID,
		WireID:      wireID,
		CreatedAt:   time.Now().UTC(),
		BotID:       botID,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}, {Name: "message_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"msid", "created_at", "bot_id"}),
		}).
		Create(row).Error
}

// ResolveByRecipientAndWire returns the logical id of the copy wireID held by
// recipientID, or ErrNotFound.
func ResolveByRecipientAndWire(ctx context.Context, db *gorm.DB, recipientID, wireID int64, botID *int64) (int64, error) {
	var row domain.RecipientMapping
	err := visibleTo(db.WithContext(ctx), botID).
		Where("uid = ? AND message_id = ?", recipientID, wireID).
		First(&row).Error
	if err != nil {
		return 0, err
	}
	return row.LogicalID, nil
}

// ResolveRecipientsByLogicalID returns one row per recipient holding a copy
// of logicalID, ordered by recipient id. When a recipient holds several rows
// (the message was resent), the newest row wins.
func ResolveRecipientsByLogicalID(ctx context.Context, db *gorm.DB, logicalID int64, botID *int64) ([]domain.RecipientMapping, error) {
	var rows []domain.RecipientMapping
	err := visibleTo(db.WithContext(ctx), botID).
		Where("msid = ?", logicalID).
		Order("created_at DESC").
		Order("message_id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(rows))
	out := make([]domain.RecipientMapping, 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.RecipientID]; dup {
			continue
		}
		seen[r.RecipientID] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipientID < out[j].RecipientID })
	return out, nil
}

// IsNotFound reports whether err means "no such row".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

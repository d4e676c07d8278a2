// Package repo implements the durable store of the relay, backed by GORM.
// This file provides the per-bot reachability records (table bot_users).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

var botUserKey = []clause.Column{{Name: "bot_id"}, {Name: "uid"}}

// MarkSeen records an inbound interaction of uid with botID: last_seen is
// set to at and the recipient becomes sendable again.
func MarkSeen(ctx context.Context, db *gorm.DB, botID, uid int64, at time.Time) error {
	at = at.UTC()
	row := &domain.BotUser{BotID: botID, RecipientID: uid, LastSeen: &at, CanSend: true}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   botUserKey,
			DoUpdates: clause.AssignmentColumns([]string{"last_seen", "can_send"}),
		}).
		Create(row).Error
}

// MarkUnreachable flags uid as permanently unreachable for botID. last_seen
// is left untouched.
func MarkUnreachable(ctx context.Context, db *gorm.DB, botID, uid int64) error {
	row := &domain.BotUser{BotID: botID, RecipientID: uid, CanSend: false}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   botUserKey,
			DoUpdates: clause.Assignments(map[string]any{"can_send": false}),
		}).
		Create(row).Error
}

// ListReachable returns the ids of every recipient botID can currently send to.
func ListReachable(ctx context.Context, db *gorm.DB, botID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.BotUser{}).
		Where("bot_id = ? AND can_send = ?", botID, true).
		Order("uid ASC").
		Pluck("uid", &ids).Error
	return ids, err
}

// GetReachability returns the record of uid for botID, or ErrNotFound.
func GetReachability(ctx context.Context, db *gorm.DB, botID, uid int64) (*domain.BotUser, error) {
	var row domain.BotUser
	if err := db.WithContext(ctx).
		Where("bot_id = ? AND uid = ?", botID, uid).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

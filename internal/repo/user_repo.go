// Package repo implements the durable store of the relay, backed by GORM.
// This file provides the participant directory (table users).
//
// Functions are thin: no rank or cooldown rules live here, only persistence.
// Missing users surface as ErrNotFound.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// recipientBatchSize bounds how many users are loaded per round trip when
// streaming the broadcast set.
const recipientBatchSize = 500

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// JoinUser creates the user or marks an existing one as joined again.
// Blacklist state is not cleared here; callers decide whether a banned user
// may rejoin.
func JoinUser(ctx context.Context, db *gorm.DB, id int64, username *string, realname string, at time.Time) (*domain.User, error) {
	at = at.UTC()
	var out domain.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).First(&out).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out = domain.User{
				ID:         id,
				Username:   username,
				Realname:   realname,
				Rank:       domain.RankUser,
				Joined:     at,
				LastActive: at,
			}
			return tx.Create(&out).Error
		}
		if err != nil {
			return err
		}
		out.Left = nil
		out.LastActive = at
		out.Username = username
		if realname != "" {
			out.Realname = realname
		}
		return tx.Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
			"left_at":     nil,
			"last_active": at,
			"username":    username,
			"realname":    out.Realname,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LeaveUser marks the user as having left the channel.
func LeaveUser(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return updateUser(ctx, db, id, map[string]any{"left_at": at.UTC()})
}

// BlacklistUser bans the user: rank drops to banned and the user leaves.
func BlacklistUser(ctx context.Context, db *gorm.DB, id int64, reason string, at time.Time) error {
	return updateUser(ctx, db, id, map[string]any{
		"rank":             domain.RankBanned,
		"left_at":          at.UTC(),
		"blacklist_reason": reason,
	})
}

// TouchLastActive records activity of the user.
func TouchLastActive(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return updateUser(ctx, db, id, map[string]any{"last_active": at.UTC()})
}

// AdjustKarma adds delta (may be negative) to the user's karma.
func AdjustKarma(ctx context.Context, db *gorm.DB, id int64, delta int) error {
	return updateUser(ctx, db, id, map[string]any{"karma": gorm.Expr("karma + ?", delta)})
}

// AddWarning increments the user's warning counter.
func AddWarning(ctx context.Context, db *gorm.DB, id int64) error {
	return updateUser(ctx, db, id, map[string]any{"warnings": gorm.Expr("warnings + ?", 1)})
}

// IterateJoinedRecipients streams every joined, non-blacklisted user to fn in
// id order. A non-nil error from fn stops the iteration and is returned.
func IterateJoinedRecipients(ctx context.Context, db *gorm.DB, fn func(domain.User) error) error {
	var batch []domain.User
	return db.WithContext(ctx).
		Where("left_at IS NULL").
		Where("rank >= ?", domain.RankUser).
		Order("id ASC").
		FindInBatches(&batch, recipientBatchSize, func(tx *gorm.DB, _ int) error {
			for _, u := range batch {
				if err := fn(u); err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// updateUser applies fields to user id and maps "no rows" to ErrNotFound.
func updateUser(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
